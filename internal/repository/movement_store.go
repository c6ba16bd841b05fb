package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"WhaleTrail/internal/domain/models"
	pkgch "WhaleTrail/pkg/clickhouse"
	applogger "WhaleTrail/pkg/logger"
)

// MovementSchema creates the movement audit table.
var MovementSchema = []string{
	`CREATE TABLE IF NOT EXISTS whale_movements (
        ts            DateTime,
        signature     String,
        whale         String,
        venue         LowCardinality(String),
        direction     LowCardinality(String),
        token         String,
        amount        Float64,
        price         Float64,
        confidence    Float64,
        slippage      Float64,
        price_impact  Float64,
        slot          UInt64
    ) ENGINE = ReplacingMergeTree
    PARTITION BY toYYYYMM(ts)
    ORDER BY (token, ts, signature)`,
}

// CHMovementStore mirrors classified movements into ClickHouse for
// offline analysis. It is an audit sink: callers treat failures as
// non-fatal.
type CHMovementStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHMovementStore(ch *pkgch.Client, l *applogger.Logger) *CHMovementStore {
	return &CHMovementStore{db: ch.DB(), l: l}
}

func (s *CHMovementStore) Init(ctx context.Context) error {
	for _, stmt := range MovementSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init movement schema: %w", err)
		}
	}
	return nil
}

func (s *CHMovementStore) Append(ctx context.Context, m *models.WhaleMovement) error {
	if m == nil {
		return fmt.Errorf("movement is nil")
	}

	ts := time.Unix(m.Transaction.Timestamp, 0)
	if m.Transaction.Timestamp == 0 {
		ts = time.Now().UTC()
	}
	amount, _ := m.Event.Amount.Float64()

	const q = `INSERT INTO whale_movements
        (ts, signature, whale, venue, direction, token, amount, price, confidence, slippage, price_impact, slot)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		ts,
		m.Transaction.Signature,
		m.WhaleAddress,
		string(m.Event.Venue),
		string(m.Event.Direction),
		m.Event.Token,
		amount,
		m.Price,
		m.Confidence,
		m.Event.Slippage,
		m.Event.PriceImpact,
		m.Transaction.BlockHeight,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse movement insert error",
				applogger.String("signature", m.Transaction.Signature),
				applogger.Error(err))
		}
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (s *CHMovementStore) Close() error {
	return s.db.Close()
}
