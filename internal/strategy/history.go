package strategy

import (
	"sort"
	"sync"
	"time"

	"WhaleTrail/internal/domain/models"
)

const defaultHistoryCapacity = 1000

// Confidence grades a whale transaction by size relative to the tracking
// floor: ten times the minimum transaction or more earns high confidence,
// everything else the base tier.
func Confidence(lamports, minimumTransaction uint64) float64 {
	if minimumTransaction > 0 && lamports >= 10*minimumTransaction {
		return 0.9
	}
	return 0.7
}

// History is a fixed-capacity ring of recent whale movements. Writers
// overwrite the oldest entry once full; readers get point-in-time copies.
type History struct {
	mu   sync.RWMutex
	buf  []*models.WhaleMovement
	next int
	size int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &History{buf: make([]*models.WhaleMovement, capacity)}
}

func (h *History) Append(m *models.WhaleMovement) {
	if m == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = m
	h.next = (h.next + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Recent returns up to limit movements, newest first. An empty token
// matches every movement.
func (h *History) Recent(limit int, token string) []*models.WhaleMovement {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.size {
		limit = h.size
	}
	out := make([]*models.WhaleMovement, 0, limit)
	for i := 1; i <= h.size && len(out) < limit; i++ {
		idx := (h.next - i + len(h.buf)) % len(h.buf)
		m := h.buf[idx]
		if token != "" && m.Event.Token != token {
			continue
		}
		out = append(out, m)
	}
	return out
}

// VolumeTracker aggregates per-token activity over a rolling window and
// surfaces the pairs whales are actively rotating through.
type VolumeTracker struct {
	mu        sync.Mutex
	window    time.Duration
	minCount  int
	minVolume float64
	maxVolume float64
	volumes   map[string]*models.TradingVolume

	now func() time.Time
}

func NewVolumeTracker(window time.Duration, minCount int, minVolume, maxVolume float64) *VolumeTracker {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if minCount <= 0 {
		minCount = 3
	}
	return &VolumeTracker{
		window:    window,
		minCount:  minCount,
		minVolume: minVolume,
		maxVolume: maxVolume,
		volumes:   make(map[string]*models.TradingVolume),
		now:       time.Now,
	}
}

// Record folds one trade or swap into the token's rolling totals. Entries
// that aged out of the window are reset rather than merged.
func (v *VolumeTracker) Record(token, name string, amount float64, swap bool) {
	if token == "" || amount <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	tv, ok := v.volumes[token]
	if !ok || now.Sub(tv.LastUpdate) > v.window {
		tv = &models.TradingVolume{TokenAddress: token}
		v.volumes[token] = tv
	}
	if name != "" {
		tv.TokenName = name
	}
	tv.TotalVolume += amount
	if swap {
		tv.SwapCount++
	} else {
		tv.TradeCount++
	}
	// Trades and swaps count equally toward the average.
	tv.AverageTradeSize = tv.TotalVolume / float64(tv.TradeCount+tv.SwapCount)
	tv.LastUpdate = now
}

// HotPairs returns the tokens inside the window whose activity count and
// average size fall inside the configured band, highest volume first.
// Stale entries are dropped as a side effect.
func (v *VolumeTracker) HotPairs() []models.TradingVolume {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	out := make([]models.TradingVolume, 0, len(v.volumes))
	for token, tv := range v.volumes {
		if now.Sub(tv.LastUpdate) > v.window {
			delete(v.volumes, token)
			continue
		}
		if tv.TradeCount+tv.SwapCount < v.minCount {
			continue
		}
		if tv.AverageTradeSize < v.minVolume {
			continue
		}
		if v.maxVolume > 0 && tv.AverageTradeSize > v.maxVolume {
			continue
		}
		out = append(out, *tv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalVolume > out[j].TotalVolume })
	return out
}
