package strategy

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testPortfolio(total float64) models.PortfolioState {
	return models.PortfolioState{
		TotalValue:       decimal.NewFromFloat(total),
		AvailableBalance: decimal.NewFromFloat(total),
	}
}

// testParams widens the stock SOL-denominated limits so a 1000 unit
// portfolio can trade at readable sizes.
func testParams() Params {
	p := DefaultParams()
	p.Risk.MaxPositionSize = decimal.NewFromInt(200)
	p.Risk.MaxLossPerTrade = decimal.NewFromInt(20)
	p.Risk.MaxTotalRisk = decimal.NewFromInt(500)
	return p
}

func movement(token string, amount, price, confidence float64) *models.WhaleMovement {
	return &models.WhaleMovement{
		Event: models.TradeEvent{
			Venue:     models.VenueJupiter,
			Direction: models.DirectionBuy,
			Token:     token,
			Amount:    decimal.NewFromFloat(amount),
			Signature: "sig-" + token,
		},
		WhaleAddress: "whale-1",
		Confidence:   confidence,
		Price:        price,
	}
}

func TestEvaluateAcceptsQualifyingBuy(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))

	// Whale notional 500; copy size 50, well inside every limit.
	sig, ok := e.Evaluate(movement("tokA", 500, 1.0, 0.9))
	if !ok {
		t.Fatal("expected signal")
	}
	if sig.Direction != models.TradeLong {
		t.Errorf("expected long, got %s", sig.Direction)
	}
	if !sig.Size.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected size 50, got %s", sig.Size)
	}
	wantStop := decimal.NewFromFloat(0.98)
	if !sig.StopLoss.Valid || !sig.StopLoss.Decimal.Equal(wantStop) {
		t.Errorf("expected stop 0.98, got %v", sig.StopLoss)
	}
	wantTarget := decimal.NewFromFloat(1.06)
	if !sig.TakeProfit.Valid || !sig.TakeProfit.Decimal.Equal(wantTarget) {
		t.Errorf("expected target 1.06, got %v", sig.TakeProfit)
	}

	trades := e.ActiveTrades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 active trade, got %d", len(trades))
	}
	if !trades[0].RiskAmount.Equal(sig.Size.Mul(decimal.NewFromFloat(0.02))) {
		t.Errorf("risk amount mismatch: %s", trades[0].RiskAmount)
	}
}

func TestEvaluateShortBands(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))

	m := movement("tokS", 500, 2.0, 0.9)
	m.Event.Direction = models.DirectionSell
	sig, ok := e.Evaluate(m)
	if !ok {
		t.Fatal("expected signal")
	}
	if sig.Direction != models.TradeShort {
		t.Fatalf("expected short, got %s", sig.Direction)
	}
	if !sig.StopLoss.Decimal.Equal(decimal.NewFromFloat(2.04)) {
		t.Errorf("expected stop 2.04, got %s", sig.StopLoss.Decimal)
	}
	if !sig.TakeProfit.Decimal.Equal(decimal.NewFromFloat(1.88)) {
		t.Errorf("expected target 1.88, got %s", sig.TakeProfit.Decimal)
	}
}

func TestEvaluateConfidenceBoundary(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))

	if _, ok := e.Evaluate(movement("tokLow", 500, 1.0, 0.79)); ok {
		t.Error("expected rejection below minimum confidence")
	}
	// Exactly at the minimum passes.
	if _, ok := e.Evaluate(movement("tokEdge", 500, 1.0, 0.8)); !ok {
		t.Error("expected acceptance at minimum confidence")
	}
}

func TestEvaluateCapsAtMaxPosition(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))

	// 10% of notional 5000 is 500, above the 200 position cap.
	sig, ok := e.Evaluate(movement("tokBig", 5000, 1.0, 0.9))
	if !ok {
		t.Fatal("expected signal")
	}
	if !sig.Size.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected size capped at 200, got %s", sig.Size)
	}
}

func TestEvaluateRiskBoundary(t *testing.T) {
	params := testParams()
	params.Risk.MaxPositionSize = decimal.NewFromInt(5000)

	// Worst-case loss exactly equals the 20 unit per-trade limit:
	// accepted without scaling.
	e := NewEngine(testLogger(t), params, testPortfolio(1000))
	sig, ok := e.Evaluate(movement("tokEq", 10000, 1.0, 0.9))
	if !ok {
		t.Fatal("expected signal")
	}
	if !sig.Size.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected unscaled size 1000, got %s", sig.Size)
	}

	// Double the notional: loss would be 40, twice the limit, so the
	// size is halved until the loss fits exactly.
	e2 := NewEngine(testLogger(t), params, testPortfolio(1000))
	sig2, ok := e2.Evaluate(movement("tokOver", 20000, 1.0, 0.9))
	if !ok {
		t.Fatal("expected scaled signal")
	}
	if !sig2.Size.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected size scaled to 1000, got %s", sig2.Size)
	}
	trades := e2.ActiveTrades()
	if !trades[0].RiskAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected risk pinned at 20, got %s", trades[0].RiskAmount)
	}
}

func TestEvaluateRejectsUnpriced(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))
	if _, ok := e.Evaluate(movement("tokFree", 500, 0, 0.9)); ok {
		t.Error("expected unpriced movement rejected")
	}
}

func TestEvaluateRejectsOpenToken(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))
	if _, ok := e.Evaluate(movement("tokDup", 500, 1.0, 0.9)); !ok {
		t.Fatal("expected first signal")
	}
	if _, ok := e.Evaluate(movement("tokDup", 500, 1.0, 0.9)); ok {
		t.Error("expected second signal on same token rejected")
	}
}

func TestRiskSumNeverExceedsLimit(t *testing.T) {
	params := testParams()
	params.Risk.MaxConcurrentTrades = 100
	e := NewEngine(testLogger(t), params, testPortfolio(1000))

	for i := 0; i < 100; i++ {
		e.Evaluate(movement(fmt.Sprintf("tok%d", i), 5000, 1.0, 0.9))
	}

	if e.TotalRisk().GreaterThan(params.Risk.MaxTotalRisk) {
		t.Errorf("total risk %s exceeds limit %s", e.TotalRisk(), params.Risk.MaxTotalRisk)
	}
}

func TestEvaluateOperatingBalanceFloor(t *testing.T) {
	params := testParams()
	params.MinOperatingBalance = decimal.NewFromInt(1000)

	// Exactly at the floor trades normally.
	e := NewEngine(testLogger(t), params, testPortfolio(1000))
	if _, ok := e.Evaluate(movement("tokFloor", 500, 1.0, 0.9)); !ok {
		t.Error("expected acceptance at the operating floor")
	}

	// Below the floor nothing opens, regardless of signal quality.
	e2 := NewEngine(testLogger(t), params, testPortfolio(999))
	if _, ok := e2.Evaluate(movement("tokUnder", 500, 1.0, 0.9)); ok {
		t.Error("expected rejection below the operating floor")
	}
}

func TestPositionCapStableAcrossLosses(t *testing.T) {
	// The caps are absolute amounts, so a losing close must not shrink
	// the size allowed on the next trade.
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))

	sig, ok := e.Evaluate(movement("tokL", 5000, 1.0, 0.9))
	if !ok {
		t.Fatal("expected first signal")
	}
	if !sig.Size.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected size 200, got %s", sig.Size)
	}
	if _, err := e.CloseTrade("tokL", decimal.NewFromFloat(0.97)); err != nil {
		t.Fatalf("close: %v", err)
	}

	sig2, ok := e.Evaluate(movement("tokM", 5000, 1.0, 0.9))
	if !ok {
		t.Fatal("expected second signal")
	}
	if !sig2.Size.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected cap unchanged at 200, got %s", sig2.Size)
	}
}

func TestConcurrentEvaluateSingleSlot(t *testing.T) {
	params := testParams()
	params.Risk.MaxConcurrentTrades = 1
	e := NewEngine(testLogger(t), params, testPortfolio(1000))

	const goroutines = 16
	var accepted int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, ok := e.Evaluate(movement(fmt.Sprintf("tok%d", i), 500, 1.0, 0.9)); ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("expected exactly 1 accepted signal, got %d", accepted)
	}
	if len(e.ActiveTrades()) != 1 {
		t.Errorf("expected 1 registered trade, got %d", len(e.ActiveTrades()))
	}
}

func TestCloseTradeReleasesSlot(t *testing.T) {
	params := testParams()
	params.Risk.MaxConcurrentTrades = 1
	e := NewEngine(testLogger(t), params, testPortfolio(1000))

	if _, ok := e.Evaluate(movement("tokC", 500, 1.0, 0.9)); !ok {
		t.Fatal("expected signal")
	}

	closed, err := e.CloseTrade("tokC", decimal.NewFromFloat(1.06))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != models.TradeTakeProfitHit {
		t.Errorf("expected take_profit_hit, got %s", closed.Status)
	}
	// 6% on a 50 unit position.
	if !closed.PnL.Decimal.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected pnl 3, got %s", closed.PnL.Decimal)
	}
	if !e.TotalRisk().IsZero() {
		t.Errorf("expected risk released, got %s", e.TotalRisk())
	}

	// The slot is free again.
	if _, ok := e.Evaluate(movement("tokD", 500, 1.0, 0.9)); !ok {
		t.Error("expected slot available after close")
	}
}

func TestCloseTradeStopStatus(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))
	if _, ok := e.Evaluate(movement("tokE", 500, 1.0, 0.9)); !ok {
		t.Fatal("expected signal")
	}
	closed, err := e.CloseTrade("tokE", decimal.NewFromFloat(0.97))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != models.TradeStopLossHit {
		t.Errorf("expected stop_loss_hit, got %s", closed.Status)
	}
	if !closed.PnL.Decimal.IsNegative() {
		t.Errorf("expected negative pnl, got %s", closed.PnL.Decimal)
	}
}

func TestCloseTradeUnknownToken(t *testing.T) {
	e := NewEngine(testLogger(t), testParams(), testPortfolio(1000))
	if _, err := e.CloseTrade("ghost", decimal.NewFromInt(1)); err == nil {
		t.Error("expected error for unknown token")
	}
}
