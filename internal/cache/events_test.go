package cache

import (
	"fmt"
	"sync"
	"testing"

	"WhaleTrail/internal/domain/models"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[uint64](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a present")
	}
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Errorf("expected b evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected a retained, got %v %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("expected c present, got %v %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("expected len 2, got %d", c.Len())
	}
}

func TestLRUUpdateDoesNotGrow(t *testing.T) {
	c := NewLRU[uint64](2)
	c.Put("a", 1)
	c.Put("a", 2)
	if c.Len() != 1 {
		t.Fatalf("expected len 1, got %d", c.Len())
	}
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("expected updated value 2, got %d", v)
	}
}

func TestEventCacheFlatTiers(t *testing.T) {
	c := New(10)

	if _, ok := c.WhaleStatus("addr"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.SetWhaleStatus("addr", true)
	if v, ok := c.WhaleStatus("addr"); !ok || !v {
		t.Errorf("expected cached whale status")
	}

	c.SetConfidence("sig", 0.9)
	if v, ok := c.Confidence("sig"); !ok || v != 0.9 {
		t.Errorf("expected confidence 0.9, got %v %v", v, ok)
	}
}

func TestRecordMovement(t *testing.T) {
	c := New(10)
	m := &models.WhaleMovement{
		Transaction: models.RawTransaction{Signature: "sig-1"},
		Event:       models.TradeEvent{Direction: models.DirectionBuy},
		Confidence:  0.7,
	}
	c.RecordMovement(m)

	d, ok := c.MovementType("sig-1")
	if !ok || d != models.DirectionBuy {
		t.Errorf("expected buy movement cached, got %v %v", d, ok)
	}
	conf, ok := c.Confidence("sig-1")
	if !ok || conf != 0.7 {
		t.Errorf("expected confidence 0.7, got %v %v", conf, ok)
	}
}

func TestEventCacheConcurrentAccess(t *testing.T) {
	c := New(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("addr-%d-%d", n, j)
				c.SetWhaleStatus(key, j%2 == 0)
				c.SetBalance(key, uint64(j))
				c.WhaleStatus(key)
				c.Balance(key)
			}
		}(i)
	}
	wg.Wait()
}
