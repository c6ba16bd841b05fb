package ingest

import (
	"container/list"
	"sync"
)

// signatureSet is a bounded set of recently seen transaction signatures.
// When the set is full the oldest entry is evicted, so a signature that
// falls out of the window can be admitted again. The bound keeps memory
// flat under sustained ingest.
type signatureSet struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[string]*list.Element
}

func newSignatureSet(maxSize int) *signatureSet {
	if maxSize <= 0 {
		maxSize = 10_000
	}
	return &signatureSet{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element, maxSize),
	}
}

// Seen reports whether sig was already admitted, recording it when it was
// not. The check and insert are a single atomic step so concurrent sources
// can never both claim the same signature.
func (s *signatureSet) Seen(sig string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[sig]; ok {
		return true
	}
	s.entries[sig] = s.order.PushFront(sig)
	if s.order.Len() > s.maxSize {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(string))
	}
	return false
}

func (s *signatureSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
