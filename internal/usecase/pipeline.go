package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	evcache "WhaleTrail/internal/cache"
	"WhaleTrail/internal/dex"
	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/internal/ingest"
	"WhaleTrail/internal/strategy"
	"WhaleTrail/pkg/logger"
	"WhaleTrail/pkg/queue"
)

// ExecuteSignalType routes accepted signals to the execution job.
const ExecuteSignalType = "execute_signal"

// tokenDecimals normalizes instruction amounts (native base units) to the
// display units the strategy and executor trade in.
const tokenDecimals = 9

// PipelineConfig carries the whale-detection policy.
type PipelineConfig struct {
	TrackedAddresses   []string
	MinimumBalance     uint64
	MinimumTransaction uint64
	BufferSize         int
}

// Pipeline is the detection path: raw transactions in, accepted signals
// handed to the execution queue. One Run call owns the whole flow.
type Pipeline struct {
	cfg        PipelineConfig
	monitor    *ingest.Monitor
	classifier *dex.Classifier
	cache      *evcache.EventCache
	engine     *strategy.Engine
	history    *strategy.History
	volumes    *strategy.VolumeTracker
	chain      repository.ChainClient
	prices     repository.PriceSource
	notifier   repository.Notifier
	store      repository.MovementStore
	queue      *queue.Queue
	metrics    repository.Metrics
	log        *logger.Logger

	tracked map[string]struct{}
}

type PipelineOption func(*Pipeline)

// WithNotifier publishes accepted signals to the notification stream.
func WithNotifier(n repository.Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

// WithMovementStore mirrors classified movements into the audit store.
func WithMovementStore(s repository.MovementStore) PipelineOption {
	return func(p *Pipeline) { p.store = s }
}

func WithPipelineMetrics(rec repository.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = rec }
}

func NewPipeline(
	log *logger.Logger,
	cfg PipelineConfig,
	monitor *ingest.Monitor,
	classifier *dex.Classifier,
	cache *evcache.EventCache,
	engine *strategy.Engine,
	history *strategy.History,
	volumes *strategy.VolumeTracker,
	chain repository.ChainClient,
	prices repository.PriceSource,
	q *queue.Queue,
	opts ...PipelineOption,
) *Pipeline {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	tracked := make(map[string]struct{}, len(cfg.TrackedAddresses))
	for _, a := range cfg.TrackedAddresses {
		tracked[a] = struct{}{}
	}
	p := &Pipeline{
		cfg:        cfg,
		monitor:    monitor,
		classifier: classifier,
		cache:      cache,
		engine:     engine,
		history:    history,
		volumes:    volumes,
		chain:      chain,
		prices:     prices,
		queue:      q,
		log:        log,
		tracked:    tracked,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives ingestion and processing until the context ends.
func (p *Pipeline) Run(ctx context.Context) error {
	txs := make(chan *models.RawTransaction, p.cfg.BufferSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.monitor.Run(ctx, txs)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case tx := <-txs:
				if tx == nil {
					continue
				}
				p.process(ctx, tx)
			}
		}
	})
	return g.Wait()
}

// process walks one transaction through whale check, classification,
// strategy and hand-off to execution. Every early return is a silent
// drop; only infrastructure trouble is logged.
func (p *Pipeline) process(ctx context.Context, tx *models.RawTransaction) {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.RecordTransactionSeen("pipeline")
	}

	if !p.isWhale(ctx, tx.FromAddress) {
		return
	}

	event, ok := p.classifier.Classify(tx)
	if !ok {
		// Whale traffic that is not a DEX swap still moves markets;
		// count it toward the spot side of the hot-pair volume.
		p.recordTransfer(ctx, tx)
		return
	}
	// Instruction amounts arrive in base units.
	event.Amount = event.Amount.Shift(-tokenDecimals)

	price, ok := p.tokenPrice(ctx, event.Token)
	if !ok {
		// Unpriced trades are excluded, never estimated.
		p.log.Debug("no price for token, movement dropped",
			logger.String("token", event.Token),
			logger.String("signature", tx.Signature))
		return
	}
	event.Price = price

	movement := &models.WhaleMovement{
		Transaction:  *tx,
		Event:        *event,
		WhaleAddress: tx.FromAddress,
		Confidence:   strategy.Confidence(tx.Lamports, p.cfg.MinimumTransaction),
		Price:        price,
	}

	p.cache.RecordMovement(movement)
	p.history.Append(movement)
	p.recordVolume(ctx, movement)
	if p.metrics != nil {
		p.metrics.RecordMovement(string(event.Venue), string(event.Direction))
		p.metrics.RecordLastPrice(event.Token, price)
	}
	p.audit(ctx, movement)

	p.log.Info("whale movement",
		logger.String("whale", movement.WhaleAddress),
		logger.String("venue", string(event.Venue)),
		logger.String("direction", string(event.Direction)),
		logger.String("token", event.Token),
		logger.String("amount", event.Amount.String()),
		logger.Float64("confidence", movement.Confidence))

	sig, ok := p.engine.Evaluate(movement)
	if !ok {
		return
	}

	if err := p.queue.Publish(ctx, ExecuteSignalType, sig); err != nil {
		p.log.Error("execution enqueue failed",
			logger.String("token", sig.Token),
			logger.Error(err))
		// The slot must not stay reserved for a signal that never ran.
		if _, cerr := p.engine.CloseTrade(sig.Token, sig.EntryPrice); cerr != nil {
			p.log.Error("orphaned trade release failed", logger.Error(cerr))
		}
		return
	}

	// Only signals that actually reached the execution queue are announced.
	if p.notifier != nil {
		if err := p.notifier.SignalAccepted(ctx, sig); err != nil {
			p.log.Warn("signal notification failed", logger.Error(err))
		}
	}

	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	}
}

// isWhale decides whether address qualifies, consulting the tracked list
// first, then the cached verdict, then the chain.
func (p *Pipeline) isWhale(ctx context.Context, address string) bool {
	if address == "" {
		return false
	}
	if _, ok := p.tracked[address]; ok {
		return true
	}
	if status, ok := p.cache.WhaleStatus(address); ok {
		return status
	}

	balance, ok := p.cache.Balance(address)
	if !ok {
		var err error
		balance, err = p.chain.Balance(ctx, address)
		if err != nil {
			p.log.Debug("balance lookup failed",
				logger.String("address", address),
				logger.Error(err))
			return false
		}
		p.cache.SetBalance(address, balance)
	}

	status := balance >= p.cfg.MinimumBalance
	p.cache.SetWhaleStatus(address, status)
	return status
}

// tokenPrice reads through the cache to the price source.
func (p *Pipeline) tokenPrice(ctx context.Context, token string) (float64, bool) {
	if pt, ok := p.cache.Price(token); ok {
		return pt.Price, true
	}
	price, err := p.prices.TokenPrice(ctx, token)
	if err != nil || price <= 0 {
		return 0, false
	}
	p.cache.SetPrice(token, price)
	return price, true
}

func (p *Pipeline) recordVolume(ctx context.Context, m *models.WhaleMovement) {
	if p.volumes == nil {
		return
	}
	name, ok := p.cache.TokenName(m.Event.Token)
	if !ok {
		if resolved, err := p.prices.TokenName(ctx, m.Event.Token); err == nil {
			name = resolved
			p.cache.SetTokenName(m.Event.Token, name)
		}
	}
	notional, _ := m.Event.Amount.Mul(decimal.NewFromFloat(m.Price)).Float64()
	p.volumes.Record(m.Event.Token, name, notional, true)
}

// recordTransfer books an unclassified whale transfer against the hot-pair
// tracker as spot volume. Plain SOL moves and unpriced tokens are skipped.
func (p *Pipeline) recordTransfer(ctx context.Context, tx *models.RawTransaction) {
	if p.volumes == nil {
		return
	}
	token, amount := tx.TokenIn, tx.TokenInAmount
	if token == "" || token == dex.SOLMint {
		token, amount = tx.TokenOut, tx.TokenOutAmount
	}
	if token == "" || token == dex.SOLMint || amount <= 0 {
		return
	}
	price, ok := p.tokenPrice(ctx, token)
	if !ok {
		return
	}
	name, ok := p.cache.TokenName(token)
	if !ok {
		if resolved, err := p.prices.TokenName(ctx, token); err == nil {
			name = resolved
			p.cache.SetTokenName(token, name)
		}
	}
	p.volumes.Record(token, name, amount*price, false)
}

func (p *Pipeline) audit(ctx context.Context, m *models.WhaleMovement) {
	if p.store == nil {
		return
	}
	if err := p.store.Append(ctx, m); err != nil {
		p.log.Warn("movement audit failed",
			logger.String("signature", m.Transaction.Signature),
			logger.Error(err))
		if p.metrics != nil {
			p.metrics.RecordError("audit")
		}
	}
}
