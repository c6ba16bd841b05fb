// Package cache holds the event cache consulted by ingestion, classification
// and strategy. Everything here is derived, reconstructable data: losing the
// cache affects performance only, never correctness. The cache is passive; a
// miss means the caller resolves and writes back.
package cache

import (
	"sync"
	"time"

	"WhaleTrail/internal/domain/models"
)

// PricePoint is a last-known token price with its observation time.
type PricePoint struct {
	Price float64
	At    time.Time
}

// EventCache memoizes lookups in two tiers: bounded LRU caches for
// high-volume, low-value data (balances, prices, names) and flat maps for
// classification flags keyed by unique addresses/signatures, which are
// acceptable to grow slowly. No entry expires on a wall-clock timer;
// staleness is bounded by LRU capacity, not time.
type EventCache struct {
	balances *LRU[uint64]
	prices   *LRU[PricePoint]
	names    *LRU[string]

	mu          sync.RWMutex
	whaleStatus map[string]bool
	movements   map[string]models.Direction
	confidences map[string]float64
}

// New creates an EventCache whose LRU tiers hold at most capacity entries
// each.
func New(capacity int) *EventCache {
	return &EventCache{
		balances:    NewLRU[uint64](capacity),
		prices:      NewLRU[PricePoint](capacity),
		names:       NewLRU[string](capacity),
		whaleStatus: make(map[string]bool),
		movements:   make(map[string]models.Direction),
		confidences: make(map[string]float64),
	}
}

// Balance returns the cached balance for an address.
func (c *EventCache) Balance(address string) (uint64, bool) {
	return c.balances.Get(address)
}

// SetBalance stores a balance for an address.
func (c *EventCache) SetBalance(address string, balance uint64) {
	c.balances.Put(address, balance)
}

// Price returns the last-known price for a token.
func (c *EventCache) Price(token string) (PricePoint, bool) {
	return c.prices.Get(token)
}

// SetPrice stores a price observation for a token.
func (c *EventCache) SetPrice(token string, price float64) {
	c.prices.Put(token, PricePoint{Price: price, At: time.Now()})
}

// TokenName returns the cached display name for a token.
func (c *EventCache) TokenName(token string) (string, bool) {
	return c.names.Get(token)
}

// SetTokenName stores a display name for a token.
func (c *EventCache) SetTokenName(token, name string) {
	c.names.Put(token, name)
}

// WhaleStatus returns whether an address is a known whale, if cached.
func (c *EventCache) WhaleStatus(address string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.whaleStatus[address]
	return v, ok
}

// SetWhaleStatus records the whale classification of an address.
func (c *EventCache) SetWhaleStatus(address string, isWhale bool) {
	c.mu.Lock()
	c.whaleStatus[address] = isWhale
	c.mu.Unlock()
}

// MovementType returns the cached classification for a signature.
func (c *EventCache) MovementType(signature string) (models.Direction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.movements[signature]
	return v, ok
}

// SetMovementType records the classification of a signature.
func (c *EventCache) SetMovementType(signature string, d models.Direction) {
	c.mu.Lock()
	c.movements[signature] = d
	c.mu.Unlock()
}

// Confidence returns the cached confidence score for a signature.
func (c *EventCache) Confidence(signature string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.confidences[signature]
	return v, ok
}

// SetConfidence records the confidence score for a signature.
func (c *EventCache) SetConfidence(signature string, confidence float64) {
	c.mu.Lock()
	c.confidences[signature] = confidence
	c.mu.Unlock()
}

// RecordMovement stores the classification and confidence of a confirmed
// whale movement under its transaction signature.
func (c *EventCache) RecordMovement(m *models.WhaleMovement) {
	sig := m.Transaction.Signature
	c.mu.Lock()
	c.movements[sig] = m.Event.Direction
	c.confidences[sig] = m.Confidence
	c.mu.Unlock()
}
