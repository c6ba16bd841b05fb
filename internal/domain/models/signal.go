package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeDirection is the side of a mirrored position.
type TradeDirection string

const (
	TradeLong  TradeDirection = "long"
	TradeShort TradeDirection = "short"
)

// TradeSignal is an accepted, fully-sized trade decision. Immutable once
// created; consumed exactly once by the executor.
type TradeSignal struct {
	Direction         TradeDirection      `json:"direction"`
	Token             string              `json:"token"`
	Size              decimal.Decimal     `json:"size"`
	EntryPrice        decimal.Decimal     `json:"entry_price"`
	StopLoss          decimal.NullDecimal `json:"stop_loss"`
	TakeProfit        decimal.NullDecimal `json:"take_profit"`
	Confidence        float64             `json:"confidence"`
	SourceWhale       string              `json:"source_whale"`
	PriceImpact       float64             `json:"price_impact"`
	EstimatedSlippage float64             `json:"estimated_slippage"`
	CreatedAt         time.Time           `json:"created_at"`
}

// TradeStatus is the lifecycle state of a registered trade.
type TradeStatus string

const (
	TradeActive        TradeStatus = "active"
	TradeClosed        TradeStatus = "closed"
	TradeStopLossHit   TradeStatus = "stop_loss_hit"
	TradeTakeProfitHit TradeStatus = "take_profit_hit"
)

// ActiveTrade is the risk-state record for one open position. Exactly one
// exists per emitted TradeSignal while the position is open.
type ActiveTrade struct {
	Signal     TradeSignal         `json:"signal"`
	RiskAmount decimal.Decimal     `json:"risk_amount"`
	EntryTime  time.Time           `json:"entry_time"`
	Status     TradeStatus         `json:"status"`
	ExitPrice  decimal.NullDecimal `json:"exit_price"`
	PnL        decimal.NullDecimal `json:"pnl"`
}

// PortfolioState is the shared account snapshot read by sizing and
// validation. Mutated only by the strategy engine.
type PortfolioState struct {
	TotalValue       decimal.Decimal `json:"total_value"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
}

// RiskParams bound the aggregate exposure the engine may commit.
type RiskParams struct {
	MaxPositionSize     decimal.Decimal
	MaxLossPerTrade     decimal.Decimal
	MaxTotalRisk        decimal.Decimal
	MinConfidence       float64
	MaxConcurrentTrades int
}

// DefaultRiskParams are absolute amounts in portfolio units: 0.2 max
// position, 0.02 max loss per trade, 0.5 total risk, two concurrent trades.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		MaxPositionSize:     decimal.NewFromFloat(0.2),
		MaxLossPerTrade:     decimal.NewFromFloat(0.02),
		MaxTotalRisk:        decimal.NewFromFloat(0.5),
		MinConfidence:       0.8,
		MaxConcurrentTrades: 2,
	}
}
