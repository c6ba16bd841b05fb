package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies a supported DEX protocol. The set is closed: adding a
// venue means adding a constant and a decoder, never touching dispatch sites.
type Venue string

const (
	VenueJupiter Venue = "jupiter"
	VenueRaydium Venue = "raydium"
)

// Direction of a classified swap from the whale's point of view.
type Direction string

const (
	DirectionBuy     Direction = "buy"
	DirectionSell    Direction = "sell"
	DirectionUnknown Direction = "unknown"
)

// TradeEvent is the canonical form of a decoded DEX swap. Immutable value
// produced by the classifier.
type TradeEvent struct {
	Venue       Venue
	Direction   Direction
	Token       string
	Amount      decimal.Decimal
	Price       float64
	Slippage    float64
	PriceImpact float64
	Signature   string
	Timestamp   int64
}

// WhaleMovement couples a raw transaction with its classified trade and the
// whale attribution. Produced once per qualifying transaction.
type WhaleMovement struct {
	Transaction  RawTransaction
	Event        TradeEvent
	WhaleAddress string
	Confidence   float64
	Price        float64
}

// TradingVolume aggregates per-token activity inside the rolling hot-pairs
// window. Spot trades and swaps are tracked under separate counters.
type TradingVolume struct {
	TokenAddress     string    `json:"token_address"`
	TokenName        string    `json:"token_name"`
	TotalVolume      float64   `json:"total_volume"`
	TradeCount       int       `json:"trade_count"`
	SwapCount        int       `json:"swap_count"`
	AverageTradeSize float64   `json:"average_trade_size"`
	LastUpdate       time.Time `json:"last_update"`
}
