package worker

import (
	"context"
	"io"
	"log/slog"

	"BrokenPromises/internal/ports"
)

// Inline runs every job on the caller's goroutine.
type Inline struct {
	book   *statusBook
	locker locker
	logger *slog.Logger
}

var _ ports.JobRunner = (*Inline)(nil)

// NewInline builds a synchronous runner. lockDir may be empty.
func NewInline(lockDir string, logger *slog.Logger) *Inline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Inline{book: newStatusBook(), locker: locker{dir: lockDir}, logger: logger}
}

// Enqueue runs the job to completion before returning its id. The job error
// is only visible through Status.
func (r *Inline) Enqueue(job ports.Job) (string, error) {
	id := newJobID()
	_ = run(context.Background(), r.book, r.locker, r.logger, id, job)
	return id, nil
}

// Invoke runs the job and returns its error.
func (r *Inline) Invoke(ctx context.Context, job ports.Job) error {
	return run(ctx, r.book, r.locker, r.logger, newJobID(), job)
}

// Status returns the snapshot of a job run through Enqueue or Invoke.
func (r *Inline) Status(id string) (ports.JobInfo, bool) {
	return r.book.get(id)
}
