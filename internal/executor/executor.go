package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"WhaleTrail/internal/dex"
	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/pkg/cache"
	"WhaleTrail/pkg/logger"
)

const (
	// defaultToleranceBps is the slippage tolerance applied to the quoted
	// output (1%).
	defaultToleranceBps = 100

	availabilityTTL    = 5 * time.Minute
	availabilityPrefix = "venue:avail:"
	noVenue            = "none"

	// baseDecimals converts position sizes to native base units.
	baseDecimals = 9
)

// Signer signs venue payloads with the trading wallet.
type Signer interface {
	PublicKey() string
	Sign(payload []byte) ([]byte, error)
}

// Executor routes accepted signals to a venue and drives the swap through
// submission. Venue preference follows construction order; the first venue
// with liquidity wins. All network steps run behind the retry handler, and
// no internal lock is ever held across a network call.
type Executor struct {
	venues  []repository.VenueClient
	chain   repository.ChainClient
	signer  Signer
	retry   *RetryHandler
	avail   cache.Service
	log     *logger.Logger
	metrics repository.Metrics

	toleranceBps int64

	mu     sync.Mutex
	orders map[string]*models.OrderResult
}

type ExecutorOption func(*Executor)

// WithAvailabilityCache caches per-token venue availability so repeated
// signals skip the liquidity probe.
func WithAvailabilityCache(c cache.Service) ExecutorOption {
	return func(e *Executor) { e.avail = c }
}

func WithSlippageToleranceBps(bps int) ExecutorOption {
	return func(e *Executor) {
		if bps > 0 && bps < 10_000 {
			e.toleranceBps = int64(bps)
		}
	}
}

func WithExecutorMetrics(rec repository.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = rec }
}

func NewExecutor(log *logger.Logger, chain repository.ChainClient, signer Signer, retry *RetryHandler, venues []repository.VenueClient, opts ...ExecutorOption) *Executor {
	e := &Executor{
		venues:       venues,
		chain:        chain,
		signer:       signer,
		retry:        retry,
		log:          log,
		toleranceBps: defaultToleranceBps,
		orders:       make(map[string]*models.OrderResult),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute drives one signal to a terminal order result. The zero-size
// check runs before any network traffic; a signal that reaches no venue
// fails with the no-liquidity class.
func (e *Executor) Execute(ctx context.Context, sig *models.TradeSignal) (*models.OrderResult, error) {
	if sig == nil || !sig.Size.IsPositive() {
		return nil, execErr(KindInvalidOrder, "execute", errors.New("trade size must be positive"))
	}

	venue, err := e.selectVenue(ctx, sig.Token)
	if err != nil {
		return e.fail(sig, "", err), err
	}

	inputToken, outputToken := swapPair(sig)
	amountIn := uint64(sig.Size.Shift(baseDecimals).IntPart())

	var quote *models.VenueQuote
	err = e.retry.Do(ctx, "quote", func(ctx context.Context) error {
		q, qerr := venue.Quote(ctx, inputToken, outputToken, amountIn)
		if qerr != nil {
			return classify(qerr, KindNetwork, "quote")
		}
		quote = q
		return nil
	})
	if err != nil {
		return e.fail(sig, venue.Venue(), err), err
	}

	minOut := minOutput(quote.OutAmount, e.toleranceBps)

	var instr *models.SwapInstruction
	err = e.retry.Do(ctx, "swap_instruction", func(ctx context.Context) error {
		in, ierr := venue.SwapInstruction(ctx, &models.SwapRequest{
			InputToken:      inputToken,
			OutputToken:     outputToken,
			Amount:          amountIn,
			MinOutputAmount: minOut,
			UserPublicKey:   e.signer.PublicKey(),
			RoutePlan:       quote.RoutePlan,
		})
		if ierr != nil {
			return classify(ierr, KindNetwork, "swap_instruction")
		}
		instr = in
		return nil
	})
	if err != nil {
		return e.fail(sig, venue.Venue(), err), err
	}

	signed, err := e.signer.Sign(instr.Data)
	if err != nil {
		err = execErr(KindInvalidOrder, "sign", err)
		return e.fail(sig, venue.Venue(), err), err
	}

	// Blockhash and submit run inside one retry unit so every attempt
	// submits against a hash that is still live.
	var txSignature string
	err = e.retry.Do(ctx, "submit", func(ctx context.Context) error {
		if _, herr := e.chain.LatestBlockhash(ctx); herr != nil {
			return classify(herr, KindRPC, "blockhash")
		}
		s, serr := e.chain.SubmitTransaction(ctx, signed)
		if serr != nil {
			return classify(serr, KindRPC, "submit")
		}
		txSignature = s
		return nil
	})
	if err != nil {
		return e.fail(sig, venue.Venue(), err), err
	}

	res := &models.OrderResult{
		OrderID: txSignature,
		Venue:   venue.Venue(),
		Status:  models.OrderFilled,
		Fills: []models.Fill{{
			Price:     sig.EntryPrice,
			Size:      sig.Size,
			Timestamp: time.Now().UTC(),
		}},
		AveragePrice: decimal.NullDecimal{Decimal: sig.EntryPrice, Valid: true},
		Timestamp:    time.Now().UTC(),
	}
	e.record(res)

	e.log.Info("order filled",
		logger.String("order_id", res.OrderID),
		logger.String("venue", string(res.Venue)),
		logger.String("token", sig.Token),
		logger.String("size", sig.Size.String()))
	if e.metrics != nil {
		e.metrics.RecordOrder(string(models.OrderFilled))
	}
	return res, nil
}

// selectVenue picks the first venue with liquidity for token. A cached
// verdict short-circuits the probe entirely, including the cached absence
// of any venue.
func (e *Executor) selectVenue(ctx context.Context, token string) (repository.VenueClient, error) {
	key := availabilityPrefix + token

	if e.avail != nil {
		var name string
		if err := e.avail.Get(ctx, key, &name); err == nil {
			if name == noVenue {
				return nil, execErr(KindNoLiquidity, "select_venue", fmt.Errorf("no venue for token %s", token))
			}
			for _, v := range e.venues {
				if string(v.Venue()) == name {
					return v, nil
				}
			}
		}
	}

	for _, v := range e.venues {
		var liquidity float64
		err := e.retry.Do(ctx, "liquidity", func(ctx context.Context) error {
			l, lerr := v.Liquidity(ctx, token)
			if lerr != nil {
				return classify(lerr, KindNetwork, "liquidity")
			}
			liquidity = l
			return nil
		})
		if err != nil {
			e.log.Warn("liquidity probe failed",
				logger.String("venue", string(v.Venue())),
				logger.String("token", token),
				logger.Error(err))
			continue
		}
		if liquidity > 0 {
			e.cacheAvailability(ctx, key, string(v.Venue()))
			return v, nil
		}
	}

	e.cacheAvailability(ctx, key, noVenue)
	return nil, execErr(KindNoLiquidity, "select_venue", fmt.Errorf("no venue for token %s", token))
}

func (e *Executor) cacheAvailability(ctx context.Context, key, name string) {
	if e.avail == nil {
		return
	}
	if err := e.avail.Set(ctx, key, name, availabilityTTL); err != nil {
		e.log.Debug("availability cache write failed", logger.Error(err))
	}
}

func (e *Executor) fail(sig *models.TradeSignal, venue models.Venue, err error) *models.OrderResult {
	res := &models.OrderResult{
		Venue:     venue,
		Status:    models.OrderFailed,
		Reason:    err.Error(),
		Timestamp: time.Now().UTC(),
	}
	e.record(res)

	e.log.Warn("order failed",
		logger.String("token", sig.Token),
		logger.String("kind", string(KindOf(err))),
		logger.Error(err))
	if e.metrics != nil {
		e.metrics.RecordOrder(string(models.OrderFailed))
		e.metrics.RecordError("execution_" + string(KindOf(err)))
	}
	return res
}

func (e *Executor) record(res *models.OrderResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res.OrderID != "" {
		e.orders[res.OrderID] = res
	}
}

// Orders returns a snapshot of completed orders keyed by transaction
// signature.
func (e *Executor) Orders() map[string]*models.OrderResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]*models.OrderResult, len(e.orders))
	for k, v := range e.orders {
		cp := *v
		out[k] = &cp
	}
	return out
}

// swapPair maps the signal direction to venue input/output mints. Long
// positions spend the quote currency; shorts unwind back into it.
func swapPair(sig *models.TradeSignal) (input, output string) {
	if sig.Direction == models.TradeShort {
		return sig.Token, dex.SOLMint
	}
	return dex.SOLMint, sig.Token
}

// minOutput applies the slippage tolerance to the quoted output. The
// quotient and remainder are scaled separately so large quotes cannot
// overflow; the result floors exactly like quoted*keep/10_000.
func minOutput(quoted uint64, toleranceBps int64) uint64 {
	keep := uint64(10_000 - toleranceBps)
	return quoted/10_000*keep + quoted%10_000*keep/10_000
}

// classify wraps foreign errors with a fallback kind, preserving errors
// already in the taxonomy.
func classify(err error, fallback ErrorKind, op string) error {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return execErr(KindTimeout, op, err)
	}
	return execErr(fallback, op, err)
}
