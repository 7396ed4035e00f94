package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"BrokenPromises/internal/ports"
)

func waitStatus(t *testing.T, r ports.JobRunner, id string, want ports.JobStatus) ports.JobInfo {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if info, ok := r.Status(id); ok && info.Status == want {
			return info
		}
		time.Sleep(5 * time.Millisecond)
	}
	info, _ := r.Status(id)
	t.Fatalf("job %s: expected status %s, got %+v", id, want, info)
	return info
}

func TestInlineEnqueueRunsSynchronously(t *testing.T) {
	t.Parallel()

	r := NewInline("", nil)
	ran := false
	id, err := r.Enqueue(ports.Job{Name: "collect", Run: func(context.Context) error {
		ran = true
		return nil
	}})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if !ran {
		t.Fatalf("job should have run before Enqueue returned")
	}
	info, ok := r.Status(id)
	if !ok || info.Status != ports.JobFinished || info.Name != "collect" {
		t.Fatalf("unexpected status %+v", info)
	}
}

func TestInlineInvokeReturnsJobError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := NewInline("", nil).Invoke(context.Background(), ports.Job{Run: func(context.Context) error { return boom }})
	if !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestPoolRunsQueuedJobs(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolOptions{Concurrency: 2, QueueSize: 4}, nil)
	p.Start(context.Background())
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	okID, err := p.Enqueue(ports.Job{Name: "ok", Run: func(context.Context) error { return nil }})
	if err != nil {
		t.Fatalf("Enqueue ok: %v", err)
	}
	failID, err := p.Enqueue(ports.Job{Name: "fail", Run: func(context.Context) error { return errors.New("channel down") }})
	if err != nil {
		t.Fatalf("Enqueue fail: %v", err)
	}

	waitStatus(t, p, okID, ports.JobFinished)
	info := waitStatus(t, p, failID, ports.JobFailed)
	if info.Error != "channel down" {
		t.Fatalf("unexpected error message %q", info.Error)
	}
	if _, ok := p.Status("missing"); ok {
		t.Fatalf("unknown ids should not resolve")
	}
}

func TestPoolRejectsWhenFull(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolOptions{Concurrency: 1, QueueSize: 1}, nil)
	block := func(context.Context) error { return nil }
	if _, err := p.Enqueue(ports.Job{Run: block}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := p.Enqueue(ports.Job{Run: block}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := p.Enqueue(ports.Job{Run: block}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPoolSerialisesSameLockKey(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolOptions{Concurrency: 4, QueueSize: 8, LockDir: t.TempDir()}, nil)
	p.Start(context.Background())

	var (
		active, peak atomic.Int32
		ids          []string
	)
	job := ports.Job{Name: "collect", LockKey: "2014-01", Run: func(context.Context) error {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return nil
	}}
	for i := 0; i < 4; i++ {
		id, err := p.Enqueue(job)
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		ids = append(ids, id)
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, id := range ids {
		if info, _ := p.Status(id); info.Status != ports.JobFinished {
			t.Fatalf("job %s not finished: %+v", id, info)
		}
	}
	if peak.Load() != 1 {
		t.Fatalf("jobs with the same lock key overlapped, peak %d", peak.Load())
	}
}

func TestLockFileName(t *testing.T) {
	t.Parallel()

	if got := lockFileName("collect/2014-01"); got != "collect_2014-01.lock" {
		t.Fatalf("unexpected lock file name %q", got)
	}
}

func TestPoolDrainsQueueAfterStartContextEnds(t *testing.T) {
	t.Parallel()

	p := NewPool(PoolOptions{Concurrency: 1, QueueSize: 4}, nil)
	startCtx, stop := context.WithCancel(context.Background())
	p.Start(startCtx)

	var ran, cancelled atomic.Int32
	gate := make(chan struct{})
	job := func(ctx context.Context) error {
		<-gate
		ran.Add(1)
		if ctx.Err() != nil {
			cancelled.Add(1)
		}
		return nil
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Enqueue(ports.Job{Run: job}); err != nil {
			t.Fatalf("Enqueue returned error: %v", err)
		}
	}

	stop()
	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if ran.Load() != 3 || cancelled.Load() != 0 {
		t.Fatalf("expected 3 jobs with live contexts, ran=%d cancelled=%d", ran.Load(), cancelled.Load())
	}
}
