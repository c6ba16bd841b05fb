package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderDirection is the side of an order sent to a venue.
type OrderDirection string

const (
	OrderBuy  OrderDirection = "buy"
	OrderSell OrderDirection = "sell"
)

// OrderType is the order kind; the executor only places market orders today.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// TimeInForce controls order lifetime at the venue.
type TimeInForce string

const (
	GoodTilCancelled  TimeInForce = "gtc"
	ImmediateOrCancel TimeInForce = "ioc"
	FillOrKill        TimeInForce = "fok"
)

// OrderStatus is the terminal (or pending) state of an order.
type OrderStatus string

const (
	OrderNew             OrderStatus = "new"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderFailed          OrderStatus = "failed"
)

// OrderRequest is the executor-internal representation of a pending order.
type OrderRequest struct {
	Token       string              `json:"token"`
	Direction   OrderDirection      `json:"direction"`
	Size        decimal.Decimal     `json:"size"`
	Price       decimal.Decimal     `json:"price"`
	Type        OrderType           `json:"type"`
	TimeInForce TimeInForce         `json:"time_in_force"`
	StopLoss    decimal.NullDecimal `json:"stop_loss"`
	TakeProfit  decimal.NullDecimal `json:"take_profit"`
}

// Fill is one partial execution of an order.
type Fill struct {
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Fee       decimal.Decimal `json:"fee"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderResult is the terminal outcome of one execution attempt.
type OrderResult struct {
	OrderID      string              `json:"order_id"`
	Venue        Venue               `json:"venue"`
	Status       OrderStatus         `json:"status"`
	Fills        []Fill              `json:"fills,omitempty"`
	AveragePrice decimal.NullDecimal `json:"average_price"`
	Reason       string              `json:"reason,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}
