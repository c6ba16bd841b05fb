package ingest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/pkg/logger"

	"WhaleTrail/internal/domain/models"
)

const defaultSourceRetryDelay = 5 * time.Second

// Monitor fans in raw transactions from multiple independent sources and
// forwards each unique signature downstream exactly once. Sources are
// isolated from each other: a failing source is restarted after a fixed
// delay and never disturbs its siblings.
type Monitor struct {
	sources    []repository.TransactionSource
	seen       *signatureSet
	retryDelay time.Duration
	log        *logger.Logger
	metrics    repository.Metrics
}

type MonitorOption func(*Monitor)

func WithRetryDelay(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.retryDelay = d
		}
	}
}

func WithMonitorMetrics(rec repository.Metrics) MonitorOption {
	return func(m *Monitor) { m.metrics = rec }
}

// NewMonitor builds a monitor over the given sources. dedupeCapacity bounds
// the signature window shared by all sources.
func NewMonitor(log *logger.Logger, dedupeCapacity int, sources []repository.TransactionSource, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		sources:    sources,
		seen:       newSignatureSet(dedupeCapacity),
		retryDelay: defaultSourceRetryDelay,
		log:        log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drives every source until the context is cancelled, pushing unique
// transactions into out. It blocks until all sources have stopped and
// returns the context error, never a source error.
func (m *Monitor) Run(ctx context.Context, out chan<- *models.RawTransaction) error {
	raw := make(chan *models.RawTransaction, cap(out)+1)

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range m.sources {
		g.Go(func() error {
			m.runSource(ctx, src, raw)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for tx := range raw {
			if tx == nil || tx.Signature == "" {
				continue
			}
			if m.seen.Seen(tx.Signature) {
				if m.metrics != nil {
					m.metrics.RecordDuplicate("monitor")
				}
				continue
			}
			select {
			case out <- tx:
			case <-ctx.Done():
				return
			}
		}
	}()

	err := g.Wait()
	close(raw)
	<-done
	if err != nil {
		return err
	}
	return ctx.Err()
}

// runSource keeps a single source alive, restarting it after retryDelay on
// every failure until the context ends.
func (m *Monitor) runSource(ctx context.Context, src repository.TransactionSource, out chan<- *models.RawTransaction) {
	for {
		err := src.Run(ctx, out)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.log.Warn("transaction source stopped, restarting",
				logger.String("source", src.Name()),
				logger.Error(err),
				logger.Duration("retry_in", m.retryDelay))
			if m.metrics != nil {
				m.metrics.RecordError("source_" + src.Name())
			}
		}
		select {
		case <-time.After(m.retryDelay):
		case <-ctx.Done():
			return
		}
	}
}
