package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/pkg/logger"
)

type fakeSource struct {
	name string
	txs  []*models.RawTransaction

	mu   sync.Mutex
	runs int
	fail int // fail the first N runs before emitting
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Run(ctx context.Context, out chan<- *models.RawTransaction) error {
	f.mu.Lock()
	f.runs++
	shouldFail := f.runs <= f.fail
	f.mu.Unlock()

	if shouldFail {
		return errors.New("connection reset")
	}
	for _, tx := range f.txs {
		select {
		case out <- tx:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func tx(sig string) *models.RawTransaction {
	return &models.RawTransaction{Signature: sig, FromAddress: "whale"}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func collect(t *testing.T, out <-chan *models.RawTransaction, n int, timeout time.Duration) []*models.RawTransaction {
	t.Helper()
	got := make([]*models.RawTransaction, 0, n)
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case tx := <-out:
			got = append(got, tx)
		case <-deadline:
			t.Fatalf("timed out after %d of %d transactions", len(got), n)
		}
	}
	return got
}

func TestMonitorDeduplicatesAcrossSources(t *testing.T) {
	shared := []*models.RawTransaction{tx("sig-1"), tx("sig-2"), tx("sig-3")}
	a := &fakeSource{name: "stream", txs: shared}
	b := &fakeSource{name: "poller", txs: shared}

	m := NewMonitor(testLogger(t), 100, []repository.TransactionSource{a, b})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan *models.RawTransaction, 16)
	go m.Run(ctx, out)

	got := collect(t, out, 3, 2*time.Second)

	seen := make(map[string]int)
	for _, tx := range got {
		seen[tx.Signature]++
	}
	for sig, n := range seen {
		if n != 1 {
			t.Errorf("signature %s forwarded %d times", sig, n)
		}
	}

	// No fourth transaction should ever arrive.
	select {
	case extra := <-out:
		t.Errorf("unexpected duplicate forwarded: %s", extra.Signature)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorRestartsFailedSource(t *testing.T) {
	flaky := &fakeSource{name: "stream", fail: 2, txs: []*models.RawTransaction{tx("sig-a")}}

	m := NewMonitor(testLogger(t), 100,
		[]repository.TransactionSource{flaky},
		WithRetryDelay(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan *models.RawTransaction, 4)
	go m.Run(ctx, out)

	got := collect(t, out, 1, 2*time.Second)
	if got[0].Signature != "sig-a" {
		t.Errorf("expected sig-a, got %s", got[0].Signature)
	}
	if flaky.runCount() < 3 {
		t.Errorf("expected at least 3 runs, got %d", flaky.runCount())
	}
}

func TestMonitorSourceIsolation(t *testing.T) {
	// One source fails forever; the healthy one still delivers.
	broken := &fakeSource{name: "poller", fail: int(^uint(0) >> 1)}
	healthy := &fakeSource{name: "stream", txs: []*models.RawTransaction{tx("sig-h")}}

	m := NewMonitor(testLogger(t), 100,
		[]repository.TransactionSource{broken, healthy},
		WithRetryDelay(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan *models.RawTransaction, 4)
	go m.Run(ctx, out)

	got := collect(t, out, 1, 2*time.Second)
	if got[0].Signature != "sig-h" {
		t.Errorf("expected sig-h, got %s", got[0].Signature)
	}
}

func TestMonitorStopsOnCancel(t *testing.T) {
	src := &fakeSource{name: "stream"}
	m := NewMonitor(testLogger(t), 100, []repository.TransactionSource{src})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan *models.RawTransaction, 1)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, out) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}

func TestSignatureSetBounded(t *testing.T) {
	s := newSignatureSet(3)
	for i := 0; i < 10; i++ {
		s.Seen(fmt.Sprintf("sig-%d", i))
	}
	if s.Len() != 3 {
		t.Errorf("expected set bounded at 3, got %d", s.Len())
	}
	// Evicted entries may be admitted again.
	if s.Seen("sig-0") {
		t.Error("expected evicted signature to be admitted again")
	}
	if !s.Seen("sig-0") {
		t.Error("expected repeated signature to be rejected")
	}
}

func TestSignatureSetConcurrent(t *testing.T) {
	s := newSignatureSet(10_000)
	var admitted sync.Map
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				sig := fmt.Sprintf("sig-%d", i)
				if !s.Seen(sig) {
					if _, loaded := admitted.LoadOrStore(sig, true); loaded {
						t.Errorf("signature %s admitted twice", sig)
					}
				}
			}
		}()
	}
	wg.Wait()
}
