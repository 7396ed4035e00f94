// Package worker executes collection jobs inline or on a bounded goroutine pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"BrokenPromises/internal/ports"
)

var (
	// ErrQueueFull is returned by Enqueue when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrClosed is returned by Enqueue after Shutdown.
	ErrClosed = errors.New("job runner is shut down")
)

const lockRetryDelay = 250 * time.Millisecond

// statusBook tracks job snapshots by id.
type statusBook struct {
	mu   sync.RWMutex
	jobs map[string]ports.JobInfo
}

func newStatusBook() *statusBook {
	return &statusBook{jobs: make(map[string]ports.JobInfo)}
}

func (b *statusBook) set(info ports.JobInfo) {
	b.mu.Lock()
	b.jobs[info.ID] = info
	b.mu.Unlock()
}

func (b *statusBook) remove(id string) {
	b.mu.Lock()
	delete(b.jobs, id)
	b.mu.Unlock()
}

func (b *statusBook) get(id string) (ports.JobInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.jobs[id]
	return info, ok
}

func newJobID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// locker serialises jobs sharing a lock key through files in dir.
type locker struct {
	dir string
}

func (l locker) acquire(ctx context.Context, key string) (func(), error) {
	if l.dir == "" || key == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(l.dir, lockFileName(key)))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire lock %s: not acquired", key)
	}
	return func() { _ = lock.Unlock() }, nil
}

func lockFileName(key string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return clean + ".lock"
}

// run executes one job under its lock and records the outcome.
func run(ctx context.Context, book *statusBook, lk locker, logger *slog.Logger, id string, job ports.Job) error {
	info := ports.JobInfo{ID: id, Name: job.Name, Status: ports.JobRunning}
	book.set(info)

	err := func() error {
		release, err := lk.acquire(ctx, job.LockKey)
		if err != nil {
			return err
		}
		defer release()
		if job.Run == nil {
			return errors.New("job has no run function")
		}
		return job.Run(ctx)
	}()

	if err != nil {
		info.Status = ports.JobFailed
		info.Error = err.Error()
		logger.Error("job failed", "job", id, "name", job.Name, "error", err)
	} else {
		info.Status = ports.JobFinished
		logger.Info("job finished", "job", id, "name", job.Name)
	}
	book.set(info)
	return err
}
