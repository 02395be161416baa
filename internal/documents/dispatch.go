package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"onboarding-backend/internal/queue"
	"onboarding-backend/internal/shared/telemetry"
)

// ErrDispatchClosed is returned when the pool no longer accepts jobs.
var ErrDispatchClosed = errors.New("extraction dispatcher closed")

// Job asks for extraction of one stored document.
type Job struct {
	DocumentID string
	RequestID  string
}

// Dispatcher hands extraction jobs to background workers.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// Processor runs extraction for a document id. *Service implements it.
type Processor interface {
	ProcessExtraction(ctx context.Context, documentID string) error
}

// Pool runs extraction jobs on a fixed set of goroutines fed by a bounded
// channel. Jobs run on a context detached from the request.
type Pool struct {
	proc    Processor
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type PoolOption func(*Pool)

func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds one job end to end, retries included.
func WithProcessTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPool starts the workers immediately.
func NewPool(proc Processor, opts ...PoolOption) *Pool {
	p := &Pool{
		proc:    proc,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				for job := range p.ch {
					p.run(workerID, job)
				}
			}(i + 1)
		}
	})
}

func (p *Pool) run(workerID int, job Job) {
	ctx := telemetry.WithRequestID(context.Background(), job.RequestID)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fields := map[string]any{
		"worker_id":   workerID,
		"document_id": job.DocumentID,
		"request_id":  job.RequestID,
	}
	defer func() {
		if rec := recover(); rec != nil {
			fields["panic"] = fmt.Sprint(rec)
			telemetry.Error("extraction.worker_panic", fields)
		}
	}()

	if err := p.proc.ProcessExtraction(ctx, job.DocumentID); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("extraction.job_failed", fields)
	}
}

// Dispatch enqueues a job without blocking. When the queue is full the job
// runs on an extra goroutine that Shutdown still waits for, so an accepted
// upload is never left without extraction. Only a closed pool refuses jobs.
func (p *Pool) Dispatch(_ context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrDispatchClosed
	}
	select {
	case p.ch <- job:
		return nil
	default:
	}
	telemetry.Warn("extraction.queue_overflow", map[string]any{"document_id": job.DocumentID, "request_id": job.RequestID})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(0, job)
	}()
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones until ctx ends.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		telemetry.Warn("extraction.pool_shutdown_interrupted", nil)
		return ctx.Err()
	case <-done:
		telemetry.Info("extraction.pool_drained", nil)
		return nil
	}
}

// QueueDispatcher publishes jobs to an external queue consumed by cmd/worker.
type QueueDispatcher struct {
	Client queue.Client
	Now    func() time.Time
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job Job) error {
	if d == nil || d.Client == nil {
		return errors.New("queue client not configured")
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return d.Client.Send(ctx, queue.NewMessage(job.DocumentID, job.RequestID, now()))
}

var (
	_ Dispatcher = (*Pool)(nil)
	_ Dispatcher = (*QueueDispatcher)(nil)
)
