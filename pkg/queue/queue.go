package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"WhaleTrail/pkg/logger"
)

// MessageHandler is a function that processes a message
type MessageHandler func(context.Context, interface{}) error

// Config contains the configuration for the queue
type Config struct {
	Workers    int           // number of workers
	QueueSize  int           // size of the queue
	RetryLimit int           // number of maximum retries
	RetryDelay time.Duration // time delay between retries
}

// Message represents a message in the queue
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}

// Queue is a bounded in-process work queue. Publish blocks when the
// buffer is full, pushing backpressure onto producers instead of growing
// without bound or dropping work silently.
type Queue struct {
	cfg  Config
	ch   chan *Message
	jobs map[string]Job
	log  *logger.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	// sendMu serializes sends against Stop closing the channel.
	sendMu sync.RWMutex
	closed bool
}

func New(cfg Config, log *logger.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Queue{
		cfg:  cfg,
		ch:   make(chan *Message, cfg.QueueSize),
		jobs: make(map[string]Job),
		log:  log,
	}
}

// Register binds a job to its message type. Must be called before Start.
func (q *Queue) Register(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.Type()] = job
}

// Start launches the worker pool. Workers exit when the context ends or
// the queue is stopped.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Publish enqueues a message, blocking while the queue is full until
// either space frees up or the context ends.
func (q *Queue) Publish(ctx context.Context, msgType string, payload interface{}) error {
	msg := &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if err := q.send(ctx, msg); err != nil {
		return fmt.Errorf("queue: publish %s: %w", msgType, err)
	}
	return nil
}

func (q *Queue) send(ctx context.Context, msg *Message) error {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return fmt.Errorf("queue stopped")
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the intake and waits for the workers to drain the buffer.
func (q *Queue) Stop() {
	q.sendMu.Lock()
	if q.closed {
		q.sendMu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.sendMu.Unlock()

	q.wg.Wait()
}

// Len reports the number of buffered messages.
func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case msg, ok := <-q.ch:
			if !ok {
				return
			}
			q.handle(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) handle(ctx context.Context, msg *Message) {
	q.mu.Lock()
	job, ok := q.jobs[msg.Type]
	q.mu.Unlock()
	if !ok {
		q.log.Warn("no job registered for message type",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		return
	}

	msg.Attempts++
	if msg.Attempts > q.cfg.RetryLimit {
		q.log.Error("job failed permanently",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID),
			logger.Int("attempts", msg.Attempts),
			logger.Error(err))
		return
	}

	q.log.Warn("job failed, requeueing",
		logger.String("type", msg.Type),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.Error(err))

	// Requeue after the delay without holding a worker slot.
	go func() {
		t := time.NewTimer(q.cfg.RetryDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
		_ = q.send(ctx, msg)
	}()
}

// ParsePayload coerces a queue payload into the expected concrete type.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T

	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case map[string]interface{}:
		jsonData, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal map to json: %w", err)
		}
		if err := json.Unmarshal(jsonData, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal json to struct: %w", err)
		}
		return &result, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
