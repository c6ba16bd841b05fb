package executor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/pkg/cache"
	"WhaleTrail/pkg/logger"
)

type fakeVenue struct {
	venue models.Venue

	mu               sync.Mutex
	liquidity        float64
	liquidityErr     error
	quoteErr         error
	quoteFailures    int // fail the first N quote calls with quoteErr
	quoteCalls       int
	liquidityCalls   int
	instructionCalls int
}

func (f *fakeVenue) Venue() models.Venue { return f.venue }

func (f *fakeVenue) Quote(_ context.Context, in, out string, amount uint64) (*models.VenueQuote, error) {
	f.mu.Lock()
	f.quoteCalls++
	calls := f.quoteCalls
	f.mu.Unlock()

	if f.quoteErr != nil && (f.quoteFailures == 0 || calls <= f.quoteFailures) {
		return nil, f.quoteErr
	}
	return &models.VenueQuote{
		InputToken:  in,
		OutputToken: out,
		InAmount:    amount,
		OutAmount:   amount * 2,
	}, nil
}

func (f *fakeVenue) SwapInstruction(_ context.Context, req *models.SwapRequest) (*models.SwapInstruction, error) {
	f.mu.Lock()
	f.instructionCalls++
	f.mu.Unlock()
	return &models.SwapInstruction{ProgramID: "prog", Data: []byte{1, 2, 3}}, nil
}

func (f *fakeVenue) Liquidity(_ context.Context, token string) (float64, error) {
	f.mu.Lock()
	f.liquidityCalls++
	f.mu.Unlock()
	if f.liquidityErr != nil {
		return 0, f.liquidityErr
	}
	return f.liquidity, nil
}

func (f *fakeVenue) calls() (liquidity, quote, instruction int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liquidityCalls, f.quoteCalls, f.instructionCalls
}

type fakeChain struct {
	mu          sync.Mutex
	submitErr   error
	submitFails int // fail the first N submit calls
	submitCalls int
}

func (f *fakeChain) RecentTransactions(context.Context, string, int) ([]*models.RawTransaction, error) {
	return nil, nil
}

func (f *fakeChain) LatestBlockhash(context.Context) (string, error) { return "hash", nil }

func (f *fakeChain) SubmitTransaction(context.Context, []byte) (string, error) {
	f.mu.Lock()
	f.submitCalls++
	calls := f.submitCalls
	f.mu.Unlock()
	if f.submitErr != nil && (f.submitFails == 0 || calls <= f.submitFails) {
		return "", f.submitErr
	}
	return "tx-signature", nil
}

func (f *fakeChain) Balance(context.Context, string) (uint64, error) { return 0, nil }

type fakeSigner struct{}

func (fakeSigner) PublicKey() string             { return "wallet-pubkey" }
func (fakeSigner) Sign(p []byte) ([]byte, error) { return p, nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func instantRetry(t *testing.T, log *logger.Logger, attempts int) (*RetryHandler, *[]time.Duration) {
	t.Helper()
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	r := NewRetryHandler(cfg, log)
	var delays []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return r, &delays
}

func signal(token string, size float64) *models.TradeSignal {
	return &models.TradeSignal{
		Direction:  models.TradeLong,
		Token:      token,
		Size:       decimal.NewFromFloat(size),
		EntryPrice: decimal.NewFromFloat(1.5),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestExecuteRejectsZeroSizeBeforeNetwork(t *testing.T) {
	log := testLogger(t)
	venue := &fakeVenue{venue: models.VenueJupiter, liquidity: 10}
	retry, _ := instantRetry(t, log, 3)
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry, []repository.VenueClient{venue})

	_, err := e.Execute(context.Background(), signal("tok", 0))
	if KindOf(err) != KindInvalidOrder {
		t.Fatalf("expected invalid_order, got %v", err)
	}
	if l, q, i := venue.calls(); l+q+i != 0 {
		t.Errorf("expected no network calls, got liquidity=%d quote=%d instruction=%d", l, q, i)
	}
}

func TestExecutePrefersJupiter(t *testing.T) {
	log := testLogger(t)
	jup := &fakeVenue{venue: models.VenueJupiter, liquidity: 10}
	ray := &fakeVenue{venue: models.VenueRaydium, liquidity: 10}
	retry, _ := instantRetry(t, log, 3)
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry, []repository.VenueClient{jup, ray})

	res, err := e.Execute(context.Background(), signal("tok", 1))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Venue != models.VenueJupiter {
		t.Errorf("expected jupiter, got %s", res.Venue)
	}
	if res.Status != models.OrderFilled {
		t.Errorf("expected filled, got %s", res.Status)
	}
	if l, _, _ := ray.calls(); l != 0 {
		t.Errorf("raydium probed despite jupiter liquidity: %d calls", l)
	}
}

func TestExecuteFallsBackToRaydium(t *testing.T) {
	log := testLogger(t)
	jup := &fakeVenue{venue: models.VenueJupiter, liquidity: 0}
	ray := &fakeVenue{venue: models.VenueRaydium, liquidity: 10}
	retry, _ := instantRetry(t, log, 3)
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry, []repository.VenueClient{jup, ray})

	res, err := e.Execute(context.Background(), signal("tok", 1))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Venue != models.VenueRaydium {
		t.Errorf("expected raydium fallback, got %s", res.Venue)
	}
}

func TestExecuteNoLiquidity(t *testing.T) {
	log := testLogger(t)
	jup := &fakeVenue{venue: models.VenueJupiter, liquidity: 0}
	ray := &fakeVenue{venue: models.VenueRaydium, liquidity: 0}
	retry, _ := instantRetry(t, log, 3)
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry, []repository.VenueClient{jup, ray})

	res, err := e.Execute(context.Background(), signal("tok", 1))
	if KindOf(err) != KindNoLiquidity {
		t.Fatalf("expected no_liquidity, got %v", err)
	}
	if res.Status != models.OrderFailed {
		t.Errorf("expected failed result, got %s", res.Status)
	}
	if _, q, i := jup.calls(); q+i != 0 {
		t.Errorf("expected no quote traffic, got quote=%d instruction=%d", q, i)
	}
}

func TestExecuteCachedNoLiquiditySkipsProbe(t *testing.T) {
	log := testLogger(t)
	jup := &fakeVenue{venue: models.VenueJupiter, liquidity: 0}
	retry, _ := instantRetry(t, log, 3)
	mem := cache.NewMemoryCache()
	defer mem.Close()
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry,
		[]repository.VenueClient{jup}, WithAvailabilityCache(mem))

	ctx := context.Background()
	if _, err := e.Execute(ctx, signal("tok", 1)); KindOf(err) != KindNoLiquidity {
		t.Fatalf("expected no_liquidity, got %v", err)
	}
	probesAfterFirst, _, _ := jup.calls()

	// The verdict is cached: the second attempt touches nothing.
	if _, err := e.Execute(ctx, signal("tok", 1)); KindOf(err) != KindNoLiquidity {
		t.Fatalf("expected cached no_liquidity, got %v", err)
	}
	if probes, _, _ := jup.calls(); probes != probesAfterFirst {
		t.Errorf("expected no further probes, got %d then %d", probesAfterFirst, probes)
	}
}

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	log := testLogger(t)
	venue := &fakeVenue{
		venue:         models.VenueJupiter,
		liquidity:     10,
		quoteErr:      execErr(KindNetwork, "quote", errors.New("connection reset")),
		quoteFailures: 2,
	}
	retry, delays := instantRetry(t, log, 3)
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry, []repository.VenueClient{venue})

	res, err := e.Execute(context.Background(), signal("tok", 1))
	if err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if res.Status != models.OrderFilled {
		t.Errorf("expected filled, got %s", res.Status)
	}
	if _, q, _ := venue.calls(); q != 3 {
		t.Errorf("expected 3 quote attempts, got %d", q)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d backoffs, got %v", len(want), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("backoff %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestExecuteNonRetryableFailsImmediately(t *testing.T) {
	log := testLogger(t)
	venue := &fakeVenue{
		venue:     models.VenueJupiter,
		liquidity: 10,
		quoteErr:  execErr(KindSlippageExceeded, "quote", errors.New("slippage above tolerance")),
	}
	retry, delays := instantRetry(t, log, 3)
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry, []repository.VenueClient{venue})

	_, err := e.Execute(context.Background(), signal("tok", 1))
	if KindOf(err) != KindSlippageExceeded {
		t.Fatalf("expected slippage_exceeded, got %v", err)
	}
	if _, q, _ := venue.calls(); q != 1 {
		t.Errorf("expected single quote attempt, got %d", q)
	}
	if len(*delays) != 0 {
		t.Errorf("expected no backoff, got %v", *delays)
	}
}

func TestExecuteRetriesExhausted(t *testing.T) {
	log := testLogger(t)
	venue := &fakeVenue{venue: models.VenueJupiter, liquidity: 10}
	chain := &fakeChain{submitErr: execErr(KindRPC, "submit", errors.New("node behind"))}
	retry, delays := instantRetry(t, log, 3)
	e := NewExecutor(log, chain, fakeSigner{}, retry, []repository.VenueClient{venue})

	res, err := e.Execute(context.Background(), signal("tok", 1))
	if KindOf(err) != KindRPC {
		t.Fatalf("expected rpc failure, got %v", err)
	}
	if res.Status != models.OrderFailed {
		t.Errorf("expected failed, got %s", res.Status)
	}
	if chain.submitCalls != 3 {
		t.Errorf("expected 3 submit attempts, got %d", chain.submitCalls)
	}
	if len(*delays) != 2 {
		t.Errorf("expected 2 backoffs, got %v", *delays)
	}
}

func TestMinOutputTolerance(t *testing.T) {
	if got := minOutput(1_000_000, 100); got != 990_000 {
		t.Errorf("expected 990000, got %d", got)
	}
	if got := minOutput(0, 100); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	// Quotes far beyond uint64/10_000 must not wrap.
	huge := uint64(math.MaxUint64) - 5_000
	want := huge / 10_000 * 9_900
	if got := minOutput(huge, 100); got < want {
		t.Errorf("large quote wrapped: got %d, want at least %d", got, want)
	}
	if got := minOutput(2_000_000_000_000_000_000, 100); got != 1_980_000_000_000_000_000 {
		t.Errorf("expected 1.98e18, got %d", got)
	}
}

func TestRetryBackoffCappedAtMax(t *testing.T) {
	log := testLogger(t)
	cfg := RetryConfig{
		MaxAttempts:   6,
		InitialDelay:  time.Second,
		MaxDelay:      4 * time.Second,
		BackoffFactor: 2.0,
	}
	r := NewRetryHandler(cfg, log)
	var delays []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	err := r.Do(context.Background(), "op", func(context.Context) error {
		return execErr(KindNetwork, "op", errors.New("down"))
	})
	if KindOf(err) != KindNetwork {
		t.Fatalf("expected network failure, got %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d delays, got %v", len(want), delays)
	}
	for i, d := range want {
		if delays[i] != d {
			t.Errorf("delay %d: expected %v, got %v", i, d, delays[i])
		}
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	log := testLogger(t)
	r := NewRetryHandler(DefaultRetryConfig(), log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, "op", func(context.Context) error {
		return execErr(KindNetwork, "op", errors.New("down"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOrdersSnapshot(t *testing.T) {
	log := testLogger(t)
	venue := &fakeVenue{venue: models.VenueJupiter, liquidity: 10}
	retry, _ := instantRetry(t, log, 3)
	e := NewExecutor(log, &fakeChain{}, fakeSigner{}, retry, []repository.VenueClient{venue})

	res, err := e.Execute(context.Background(), signal("tok", 1))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	orders := e.Orders()
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if _, ok := orders[res.OrderID]; !ok {
		t.Errorf("order %s missing from snapshot", res.OrderID)
	}
}
