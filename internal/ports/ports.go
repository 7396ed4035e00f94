package ports

import (
	"context"

	"BrokenPromises/internal/domain"
)

// Channel fetches articles from one news outlet.
type Channel interface {
	Name() string
	GetArticles(ctx context.Context, scope domain.Scope) ([]domain.Article, error)
	ScrapeBody(ctx context.Context, url string) (string, error)
}

// ArticleQuery narrows article listings. A nil Scope lists everything; a
// non-positive Limit means no limit.
type ArticleQuery struct {
	Scope *domain.Scope
	Limit int
	Skip  int
}

// ReportFilter selects stored reports. Zero fields do not filter.
type ReportFilter struct {
	Name     string
	Scope    *domain.Scope
	Status   domain.ReportStatus
	Channels []string
}

// ArticleStore persists articles keyed by URL.
type ArticleStore interface {
	GetArticles(ctx context.Context, query ArticleQuery) ([]domain.Article, error)
	CountArticles(ctx context.Context, scope *domain.Scope) (int, error)
	// UpsertArticle inserts an unseen URL or merges into the stored record.
	// inserted is false when an existing record was updated.
	UpsertArticle(ctx context.Context, article domain.Article, scope domain.Scope) (stored domain.Article, inserted bool, err error)
}

// ReportStore appends run reports.
type ReportStore interface {
	GetReports(ctx context.Context, filter ReportFilter) ([]domain.RunReport, error)
	SaveReport(ctx context.Context, report domain.RunReport) (string, error)
}

// Store combines article and report persistence.
type Store interface {
	ArticleStore
	ReportStore
}

// DateMatch is one date mention found by a DateFinder. Offset is a byte
// offset into the analysed text.
type DateMatch struct {
	Date   domain.PartialDate
	Text   string
	Offset int
}

// DateFinder locates date mentions in plain text.
type DateFinder interface {
	FindDates(ctx context.Context, text string) ([]DateMatch, error)
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// SentenceSplitter detects sentence boundaries.
type SentenceSplitter interface {
	Split(text string) []Span
}

// Notifier delivers a message to a recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string) error
}

// Job is one opaque unit of work run by a JobRunner.
type Job struct {
	Name string
	// LockKey serialises jobs sharing the same key when the runner supports it.
	LockKey string
	Run     func(ctx context.Context) error
}

// JobStatus is the lifecycle state of an enqueued job.
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobFinished JobStatus = "finished"
	JobFailed   JobStatus = "failed"
)

// JobInfo is a snapshot of an enqueued job.
type JobInfo struct {
	ID     string
	Name   string
	Status JobStatus
	Error  string
}

// JobRunner executes jobs synchronously or in the background.
type JobRunner interface {
	Enqueue(job Job) (string, error)
	Invoke(ctx context.Context, job Job) error
	Status(id string) (JobInfo, bool)
}

// Scheduler controls when recurring work executes.
type Scheduler interface {
	Start(ctx context.Context, job func(context.Context)) error
	Stop(ctx context.Context) error
}
