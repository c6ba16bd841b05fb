package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"WhaleTrail/pkg/logger"
)

type countingJob struct {
	name     string
	msgType  string
	failures int32 // fail the first N handles

	handled atomic.Int32
	mu      sync.Mutex
	seen    []interface{}
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Type() string { return j.msgType }

func (j *countingJob) Handle(_ context.Context, payload interface{}) error {
	n := j.handled.Add(1)
	j.mu.Lock()
	j.seen = append(j.seen, payload)
	j.mu.Unlock()
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestQueueDispatchesToRegisteredJob(t *testing.T) {
	q := New(Config{Workers: 2, QueueSize: 8}, testLogger(t))
	job := &countingJob{name: "exec", msgType: "order"}
	q.Register(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	for i := 0; i < 5; i++ {
		if err := q.Publish(ctx, "order", i); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	waitFor(t, 2*time.Second, func() bool { return job.handled.Load() == 5 })
}

func TestQueueBackpressureBlocksWhenFull(t *testing.T) {
	// No workers started: the buffer fills and the next publish blocks
	// until the context gives up.
	q := New(Config{Workers: 1, QueueSize: 2}, testLogger(t))

	ctx := context.Background()
	if err := q.Publish(ctx, "order", 1); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.Publish(ctx, "order", 2); err != nil {
		t.Fatalf("publish: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := q.Publish(short, "order", 3)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("expected 2 buffered, got %d", q.Len())
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	q := New(Config{Workers: 1, QueueSize: 8, RetryLimit: 3, RetryDelay: 5 * time.Millisecond}, testLogger(t))
	job := &countingJob{name: "exec", msgType: "order", failures: 2}
	q.Register(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	if err := q.Publish(ctx, "order", "payload"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return job.handled.Load() == 3 })
}

func TestQueueDropsAfterRetryLimit(t *testing.T) {
	q := New(Config{Workers: 1, QueueSize: 8, RetryLimit: 1, RetryDelay: 5 * time.Millisecond}, testLogger(t))
	job := &countingJob{name: "exec", msgType: "order", failures: 100}
	q.Register(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	if err := q.Publish(ctx, "order", "payload"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// Initial attempt plus one retry, never a third.
	waitFor(t, 2*time.Second, func() bool { return job.handled.Load() == 2 })
	time.Sleep(30 * time.Millisecond)
	if got := job.handled.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestQueuePublishAfterStop(t *testing.T) {
	q := New(Config{Workers: 1, QueueSize: 2}, testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	q.Stop()

	if err := q.Publish(ctx, "order", 1); err == nil {
		t.Error("expected error publishing to stopped queue")
	}
}

func TestParsePayloadTypes(t *testing.T) {
	type order struct {
		Token string `json:"token"`
	}

	direct, err := ParsePayload[order](order{Token: "tok"})
	if err != nil || direct.Token != "tok" {
		t.Errorf("direct: %v %v", direct, err)
	}

	ptr, err := ParsePayload[order](&order{Token: "tok"})
	if err != nil || ptr.Token != "tok" {
		t.Errorf("pointer: %v %v", ptr, err)
	}

	fromMap, err := ParsePayload[order](map[string]interface{}{"token": "tok"})
	if err != nil || fromMap.Token != "tok" {
		t.Errorf("map: %v %v", fromMap, err)
	}

	if _, err := ParsePayload[order](42); err == nil {
		t.Error("expected error for invalid payload type")
	}
}
