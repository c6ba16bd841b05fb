package repository

import (
	"context"

	"WhaleTrail/internal/domain/models"
)

// TransactionSource is one independent ingestion source (websocket stream,
// RPC poller). Run blocks, pushing transactions into out until the context
// is cancelled; transient source failures are handled inside Run.
type TransactionSource interface {
	Name() string
	Run(ctx context.Context, out chan<- *models.RawTransaction) error
}

// ChainClient is the blockchain node boundary. All calls are fallible,
// latency-variable remote calls.
type ChainClient interface {
	RecentTransactions(ctx context.Context, address string, limit int) ([]*models.RawTransaction, error)
	LatestBlockhash(ctx context.Context) (string, error)
	SubmitTransaction(ctx context.Context, signed []byte) (string, error)
	Balance(ctx context.Context, address string) (uint64, error)
}

// VenueClient is one DEX aggregator boundary (quote, instruction build,
// liquidity probing).
type VenueClient interface {
	Venue() models.Venue
	Quote(ctx context.Context, inputToken, outputToken string, amount uint64) (*models.VenueQuote, error)
	SwapInstruction(ctx context.Context, req *models.SwapRequest) (*models.SwapInstruction, error)
	Liquidity(ctx context.Context, token string) (float64, error)
}

// PriceSource resolves token prices and display names. Lookups are cached by
// callers; a missing price means the trade is excluded, never estimated.
type PriceSource interface {
	TokenPrice(ctx context.Context, token string) (float64, error)
	TokenName(ctx context.Context, token string) (string, error)
}

// Notifier publishes accepted signals and terminal order outcomes for the
// external notification front end.
type Notifier interface {
	SignalAccepted(ctx context.Context, sig *models.TradeSignal) error
	OrderCompleted(ctx context.Context, res *models.OrderResult) error
	Close() error
}

// MovementStore is an optional audit sink for classified whale movements.
// Losing it never affects correctness.
type MovementStore interface {
	Append(ctx context.Context, m *models.WhaleMovement) error
	Close() error
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordTransactionSeen(source string)
	RecordDuplicate(source string)
	RecordMovement(venue, direction string)
	RecordSignal(token string)
	RecordOrder(status string)
	RecordError(kind string)
	RecordLastPrice(token string, price float64)
	RecordLatency(op string, seconds float64)
}
