package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/pkg/logger"
)

// copyRatio is the fraction of the whale's notional mirrored per signal.
var copyRatio = decimal.NewFromFloat(0.1)

// Params are the policy knobs outside the risk limits proper.
// MinOperatingBalance is the portfolio value below which no new trades
// open; zero disables the floor.
type Params struct {
	Risk                models.RiskParams
	StopLossPct         decimal.Decimal
	TakeProfitPct       decimal.Decimal
	MinTradeSize        decimal.Decimal
	MinOperatingBalance decimal.Decimal
	MaxSlippage         float64
	MaxPriceImpact      float64
}

// DefaultParams mirrors the stock policy: 2% stop, 6% target, 0.01 minimum
// position.
func DefaultParams() Params {
	return Params{
		Risk:           models.DefaultRiskParams(),
		StopLossPct:    decimal.NewFromFloat(0.02),
		TakeProfitPct:  decimal.NewFromFloat(0.06),
		MinTradeSize:   decimal.NewFromFloat(0.01),
		MaxSlippage:    0.05,
		MaxPriceImpact: 0.03,
	}
}

// Engine turns whale movements into sized trade signals while holding the
// aggregate risk invariants. All state transitions happen under one mutex
// so a validated signal and its ActiveTrade registration are a single
// atomic step; the engine never performs I/O while locked.
type Engine struct {
	mu        sync.Mutex
	params    Params
	portfolio models.PortfolioState
	active    map[string]*models.ActiveTrade

	log     *logger.Logger
	metrics repository.Metrics
}

type EngineOption func(*Engine)

func WithEngineMetrics(rec repository.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = rec }
}

func NewEngine(log *logger.Logger, params Params, portfolio models.PortfolioState, opts ...EngineOption) *Engine {
	e := &Engine{
		params:    params,
		portfolio: portfolio,
		active:    make(map[string]*models.ActiveTrade),
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate sizes and validates a movement. It returns the accepted signal
// and true, or nil and false when any gate rejects. Acceptance registers
// the ActiveTrade and reserves its risk before the signal is visible to
// callers, so a concurrent Evaluate can never double-book the same slot.
func (e *Engine) Evaluate(m *models.WhaleMovement) (*models.TradeSignal, bool) {
	if m == nil || m.Price <= 0 {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	size, risk := e.sizeLocked(m)
	sig := e.buildSignal(m, size)

	if reason := e.validateLocked(sig, risk); reason != "" {
		e.log.Debug("signal rejected",
			logger.String("token", m.Event.Token),
			logger.String("reason", reason),
			logger.Float64("confidence", m.Confidence))
		if e.metrics != nil {
			e.metrics.RecordError("signal_rejected_" + reason)
		}
		return nil, false
	}

	e.active[sig.Token] = &models.ActiveTrade{
		Signal:     *sig,
		RiskAmount: risk,
		EntryTime:  sig.CreatedAt,
		Status:     models.TradeActive,
	}
	e.portfolio.AvailableBalance = e.portfolio.AvailableBalance.Sub(sig.Size)

	e.log.Info("trade signal accepted",
		logger.String("token", sig.Token),
		logger.String("direction", string(sig.Direction)),
		logger.String("size", sig.Size.String()),
		logger.String("risk", risk.String()),
		logger.String("whale", sig.SourceWhale))
	if e.metrics != nil {
		e.metrics.RecordSignal(sig.Token)
	}
	return sig, true
}

// sizeLocked computes the copy size and its worst-case loss. The copy is
// 10% of the whale's notional, capped at the max position, then scaled
// down proportionally until the worst-case loss fits the per-trade limit.
func (e *Engine) sizeLocked(m *models.WhaleMovement) (size, risk decimal.Decimal) {
	price := decimal.NewFromFloat(m.Price)
	whaleNotional := m.Event.Amount.Mul(price)

	size = whaleNotional.Mul(copyRatio)
	if size.GreaterThan(e.params.Risk.MaxPositionSize) {
		size = e.params.Risk.MaxPositionSize
	}

	risk = size.Mul(e.params.StopLossPct)
	maxLoss := e.params.Risk.MaxLossPerTrade
	if risk.GreaterThan(maxLoss) && risk.IsPositive() {
		scale := maxLoss.Div(risk)
		size = size.Mul(scale)
		risk = maxLoss
	}
	return size, risk
}

func (e *Engine) buildSignal(m *models.WhaleMovement, size decimal.Decimal) *models.TradeSignal {
	entry := decimal.NewFromFloat(m.Price)

	direction := models.TradeLong
	if m.Event.Direction == models.DirectionSell {
		direction = models.TradeShort
	}

	one := decimal.NewFromInt(1)
	var stop, target decimal.Decimal
	if direction == models.TradeLong {
		stop = entry.Mul(one.Sub(e.params.StopLossPct))
		target = entry.Mul(one.Add(e.params.TakeProfitPct))
	} else {
		stop = entry.Mul(one.Add(e.params.StopLossPct))
		target = entry.Mul(one.Sub(e.params.TakeProfitPct))
	}

	return &models.TradeSignal{
		Direction:         direction,
		Token:             m.Event.Token,
		Size:              size,
		EntryPrice:        entry,
		StopLoss:          decimal.NullDecimal{Decimal: stop, Valid: true},
		TakeProfit:        decimal.NullDecimal{Decimal: target, Valid: true},
		Confidence:        m.Confidence,
		SourceWhale:       m.WhaleAddress,
		PriceImpact:       m.Event.PriceImpact,
		EstimatedSlippage: m.Event.Slippage,
		CreatedAt:         time.Now().UTC(),
	}
}

// validateLocked is the hard gate. Every check must pass; the first
// failure names the rejection. Callers hold e.mu.
func (e *Engine) validateLocked(sig *models.TradeSignal, risk decimal.Decimal) string {
	if sig.Confidence < e.params.Risk.MinConfidence {
		return "confidence"
	}
	if e.params.MinOperatingBalance.IsPositive() && e.portfolio.TotalValue.LessThan(e.params.MinOperatingBalance) {
		return "operating_balance"
	}
	if sig.Size.LessThan(e.params.MinTradeSize) {
		return "min_size"
	}
	if _, open := e.active[sig.Token]; open {
		return "token_busy"
	}
	if len(e.active) >= e.params.Risk.MaxConcurrentTrades {
		return "concurrency"
	}
	if e.totalRiskLocked().Add(risk).GreaterThan(e.params.Risk.MaxTotalRisk) {
		return "total_risk"
	}
	if sig.Size.GreaterThan(e.portfolio.AvailableBalance) {
		return "balance"
	}
	if sig.PriceImpact > e.params.MaxPriceImpact {
		return "price_impact"
	}
	if sig.EstimatedSlippage > e.params.MaxSlippage {
		return "slippage"
	}
	return ""
}

func (e *Engine) totalRiskLocked() decimal.Decimal {
	total := decimal.Zero
	for _, t := range e.active {
		total = total.Add(t.RiskAmount)
	}
	return total
}

// CloseTrade settles the open position on token at exitPrice, releasing
// its reserved risk and balance. Status reflects which band the exit
// crossed.
func (e *Engine) CloseTrade(token string, exitPrice decimal.Decimal) (*models.ActiveTrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.active[token]
	if !ok {
		return nil, fmt.Errorf("close trade: no active trade for token %s", token)
	}
	delete(e.active, token)

	entry := t.Signal.EntryPrice
	var pnl decimal.Decimal
	if entry.IsPositive() {
		move := exitPrice.Sub(entry).Div(entry)
		if t.Signal.Direction == models.TradeShort {
			move = move.Neg()
		}
		pnl = t.Signal.Size.Mul(move)
	}

	t.Status = exitStatus(t, exitPrice)
	t.ExitPrice = decimal.NullDecimal{Decimal: exitPrice, Valid: true}
	t.PnL = decimal.NullDecimal{Decimal: pnl, Valid: true}

	e.portfolio.AvailableBalance = e.portfolio.AvailableBalance.Add(t.Signal.Size).Add(pnl)
	e.portfolio.TotalValue = e.portfolio.TotalValue.Add(pnl)

	e.log.Info("trade closed",
		logger.String("token", token),
		logger.String("status", string(t.Status)),
		logger.String("pnl", pnl.String()))
	return t, nil
}

func exitStatus(t *models.ActiveTrade, exit decimal.Decimal) models.TradeStatus {
	long := t.Signal.Direction == models.TradeLong
	if t.Signal.StopLoss.Valid {
		stop := t.Signal.StopLoss.Decimal
		if (long && exit.LessThanOrEqual(stop)) || (!long && exit.GreaterThanOrEqual(stop)) {
			return models.TradeStopLossHit
		}
	}
	if t.Signal.TakeProfit.Valid {
		target := t.Signal.TakeProfit.Decimal
		if (long && exit.GreaterThanOrEqual(target)) || (!long && exit.LessThanOrEqual(target)) {
			return models.TradeTakeProfitHit
		}
	}
	return models.TradeClosed
}

// ActiveTrades returns a point-in-time copy of every open position.
func (e *Engine) ActiveTrades() []*models.ActiveTrade {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.ActiveTrade, 0, len(e.active))
	for _, t := range e.active {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// TotalRisk is the sum of reserved risk across open positions.
func (e *Engine) TotalRisk() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalRiskLocked()
}

// Portfolio returns the current account snapshot.
func (e *Engine) Portfolio() models.PortfolioState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.portfolio
}
