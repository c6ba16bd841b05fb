package solana

import (
	"context"
	"time"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/pkg/logger"
)

// Poller is the fallback TransactionSource: it sweeps the tracked whale
// addresses over RPC on a fixed interval. Signatures the stream already
// delivered are dropped downstream by the ingest monitor.
type Poller struct {
	addresses []string
	interval  time.Duration
	limit     int
	client    *Client
	log       *logger.Logger
}

func NewPoller(addresses []string, interval time.Duration, limit int, client *Client, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if limit <= 0 {
		limit = 20
	}
	return &Poller{
		addresses: addresses,
		interval:  interval,
		limit:     limit,
		client:    client,
		log:       log,
	}
}

func (p *Poller) Name() string { return "rpc-poller" }

func (p *Poller) Run(ctx context.Context, out chan<- *models.RawTransaction) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, addr := range p.addresses {
			txs, err := p.client.RecentTransactions(ctx, addr, p.limit)
			if err != nil {
				p.log.Debug("poll sweep failed",
					logger.String("address", addr),
					logger.Error(err))
				continue
			}
			for _, tx := range txs {
				select {
				case out <- tx:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
