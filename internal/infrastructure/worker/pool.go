package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"BrokenPromises/internal/ports"
)

// PoolOptions sizes a Pool.
type PoolOptions struct {
	Concurrency int
	QueueSize   int
	// LockDir enables per-key file locks shared by every process using the dir.
	LockDir string
}

type queuedJob struct {
	id  string
	job ports.Job
}

// Pool runs jobs on a fixed number of goroutines in FIFO order.
type Pool struct {
	book   *statusBook
	locker locker
	logger *slog.Logger
	queue  chan queuedJob

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	started bool
	cancel  context.CancelFunc
	workers int
}

var _ ports.JobRunner = (*Pool)(nil)

// NewPool builds a pool; call Start before enqueueing.
func NewPool(opts PoolOptions, logger *slog.Logger) *Pool {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pool{
		book:    newStatusBook(),
		locker:  locker{dir: opts.LockDir},
		logger:  logger,
		queue:   make(chan queuedJob, opts.QueueSize),
		workers: opts.Concurrency,
	}
}

// Start launches the workers. Jobs receive ctx's values but not its
// cancellation: queued jobs keep running after ctx ends until Shutdown's
// deadline expires.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for item := range p.queue {
				_ = run(ctx, p.book, p.locker, p.logger, item.id, item.job)
			}
		}()
	}
	p.logger.Info("worker pool started", "workers", p.workers, "queue", cap(p.queue))
}

// Enqueue queues the job and returns its id without waiting.
func (p *Pool) Enqueue(job ports.Job) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}

	id := newJobID()
	p.book.set(ports.JobInfo{ID: id, Name: job.Name, Status: ports.JobQueued})
	select {
	case p.queue <- queuedJob{id: id, job: job}:
		return id, nil
	default:
		p.book.remove(id)
		return "", ErrQueueFull
	}
}

// Invoke runs the job on the caller's goroutine, still honouring its lock key.
func (p *Pool) Invoke(ctx context.Context, job ports.Job) error {
	return run(ctx, p.book, p.locker, p.logger, newJobID(), job)
}

// Status returns the snapshot of an enqueued or invoked job.
func (p *Pool) Status(id string) (ports.JobInfo, bool) {
	return p.book.get(id)
}

// Shutdown stops accepting jobs and waits for queued ones to drain. When ctx
// expires first, running jobs are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
