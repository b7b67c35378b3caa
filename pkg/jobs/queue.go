package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotRunning is returned when enqueueing on a queue that was never started or already stopped.
	ErrNotRunning = errors.New("queue not running")
	// ErrQueueFull is returned by TryEnqueue when the buffer has no free slot.
	ErrQueueFull = errors.New("queue full")
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	quit    chan struct{}
	stopped bool
	wg      sync.WaitGroup
	sendMu  sync.RWMutex
	mu      sync.Mutex
	running bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Calling it twice, or again before Stop
// returned, is a no-op. Cancelling ctx closes intake and makes the workers
// drain what is already buffered.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || (q.quit != nil && !q.stopped) {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.quit = make(chan struct{})
	q.stopped = false
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(q.ctx, q.quit)
	}
	q.running = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop refuses new jobs, runs every buffered job and pending retry through
// the handler, then waits for the workers to exit.
func (q *Queue) Stop() {
	q.closeIntake()

	q.mu.Lock()
	if q.quit == nil || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.quit)
	cancel := q.cancel
	q.mu.Unlock()

	q.wg.Wait()
	cancel()
	q.logger.Info("queue stopped", zap.Int("left_in_buffer", len(q.jobs)))
}

// closeIntake marks the queue not running once no sender sits between its
// running check and its send.
func (q *Queue) closeIntake() {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
}

// Running reports whether workers are consuming jobs.
func (q *Queue) Running() bool {
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Enqueue pushes a job onto the queue, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	if q == nil {
		return ErrNotRunning
	}
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	ctx, err := q.prepare(&job)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s: %w", q.name, ErrNotRunning)
	case q.jobs <- job:
		return nil
	}
}

// TryEnqueue pushes a job without blocking and returns ErrQueueFull when the
// buffer is saturated.
func (q *Queue) TryEnqueue(job Job) error {
	if q == nil {
		return ErrNotRunning
	}
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	if _, err := q.prepare(&job); err != nil {
		return err
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// prepare must run under sendMu.RLock.
func (q *Queue) prepare(job *Job) (context.Context, error) {
	q.mu.Lock()
	ctx := q.ctx
	running := q.running
	q.mu.Unlock()

	if !running || ctx.Err() != nil {
		return nil, fmt.Errorf("queue %s: %w", q.name, ErrNotRunning)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	return ctx, nil
}

func (q *Queue) worker(ctx context.Context, quit <-chan struct{}) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			q.closeIntake()
			q.drain(ctx, quit)
			return
		case <-quit:
			q.drain(ctx, quit)
			return
		case job := <-q.jobs:
			q.process(ctx, quit, job)
		}
	}
}

// drain runs whatever is left in the buffer. Intake is already closed, so
// the buffer only shrinks.
func (q *Queue) drain(ctx context.Context, quit <-chan struct{}) {
	for {
		select {
		case job := <-q.jobs:
			q.process(ctx, quit, job)
		default:
			return
		}
	}
}

func (q *Queue) process(ctx context.Context, quit <-chan struct{}, job Job) {
	// Drained jobs keep the queue's values but not its cancellation.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if err := q.handler(ctx, job); err != nil {
		q.handleFailure(ctx, quit, job, err)
	}
}

func (q *Queue) handleFailure(ctx context.Context, quit <-chan struct{}, job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))

	q.wg.Add(1)
	go func(j Job) {
		defer q.wg.Done()
		timer := time.NewTimer(q.retryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		// Retries run here instead of re-entering the buffer, so none can
		// arrive after the workers finished draining. Shutdown skips the wait.
		select {
		case <-timer.C:
		case <-quit:
		case <-ctx.Done():
		}
		q.process(ctx, quit, j)
	}(job)
}
