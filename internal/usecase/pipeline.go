package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// Collector types recorded on reports.
const (
	CollectorCollectArticles  = "collector.CollectArticles"
	CollectorCollectAndNotify = "collector.CollectArticlesAndNotify"
)

// CollectorDeps wires the driven adapters shared by every collection run.
type CollectorDeps struct {
	Channels  []ports.Channel
	Store     ports.Store
	Extractor *DateReferenceExtractor
	Filter    *ResultFilter
	Cache     *CollectionCache
	Logger    *slog.Logger
	Now       func() time.Time
	// Strict aborts the run on the first channel or extraction failure
	// instead of recording it and carrying on.
	Strict bool
}

// CollectRequest is the input of one collection run.
type CollectRequest struct {
	Scope        domain.Scope
	ForceCollect bool
	UseStorage   bool
}

// CollectArticles is one collection run: fetch, filter, extract, filter,
// report and optionally persist. Build a new value per run.
type CollectArticles struct {
	deps          CollectorDeps
	req           CollectRequest
	collectorType string
	logger        *slog.Logger

	report    *domain.RunReport
	pending   []domain.Article
	persisted bool
}

// NewCollectArticles prepares a run; nothing happens until Run.
func NewCollectArticles(deps CollectorDeps, req CollectRequest) *CollectArticles {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Filter == nil {
		deps.Filter = NewResultFilter(deps.Logger)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CollectArticles{
		deps:          deps,
		req:           req,
		collectorType: CollectorCollectArticles,
		logger:        logger.With("scope", req.Scope.String()),
	}
}

// Report returns the run report once Run has completed or failed.
func (c *CollectArticles) Report() (domain.RunReport, bool) {
	if c.report == nil {
		return domain.RunReport{}, false
	}
	return *c.report, true
}

// Scope returns the scope the run was prepared for.
func (c *CollectArticles) Scope() domain.Scope {
	return c.req.Scope
}

// Run executes the collection. A *domain.PersistenceError comes back together
// with the collected articles; retry with RetryPersist rather than running again.
func (c *CollectArticles) Run(ctx context.Context) ([]domain.Article, error) {
	if err := c.req.Scope.Validate(); err != nil {
		return nil, err
	}
	names := c.channelNames()

	if c.req.UseStorage && c.deps.Store != nil && c.deps.Cache != nil && !c.req.ForceCollect {
		skip, related, err := c.deps.Cache.ShouldSkip(ctx, c.req.Scope, names, c.req.ForceCollect, c.deps.Now())
		if err != nil {
			return nil, err
		}
		if skip {
			return c.escape(ctx, names, *related)
		}
	}

	articles, failedChannels, err := c.fetch(ctx)
	if err != nil {
		return nil, c.fail(names, err)
	}
	c.logger.Debug("fetched", "articles", len(articles), "failed_channels", len(failedChannels))

	articles = c.deps.Filter.Pre(articles)
	c.logger.Debug("pre-filtered", "articles", len(articles))

	articles, skipped, err := c.extract(ctx, articles)
	if err != nil {
		return nil, c.fail(names, err)
	}

	articles = c.deps.Filter.Post(articles)
	c.logger.Debug("post-filtered", "articles", len(articles))

	urls := make([]string, 0, len(articles))
	for _, a := range articles {
		urls = append(urls, a.URL)
	}
	report := domain.NewReport(c.collectorType, c.req.Scope, names, c.deps.Now(), domain.DoneOutcome{
		Count:           len(articles),
		URLsFound:       urls,
		ForcedCollect:   c.req.ForceCollect,
		FailedChannels:  failedChannels,
		SkippedArticles: skipped,
	})
	c.report = &report

	if !c.req.UseStorage || c.deps.Store == nil {
		c.logger.Info("collection done", "count", len(articles))
		return articles, nil
	}

	c.pending = articles
	stored, err := c.persist(ctx)
	if err != nil {
		return articles, err
	}
	c.logger.Info("collection done", "count", len(stored), "report", c.report.ID)
	return stored, nil
}

// RetryPersist repeats only the persistence step of a run that returned a
// PersistenceError.
func (c *CollectArticles) RetryPersist(ctx context.Context) ([]domain.Article, error) {
	if c.report == nil || c.report.Status() == domain.StatusFailed {
		return nil, errors.New("no completed run to persist")
	}
	if c.persisted {
		return c.pending, nil
	}
	if c.report.Status() == domain.StatusEscaped {
		return c.pending, c.saveReport(ctx)
	}
	return c.persist(ctx)
}

func (c *CollectArticles) channelNames() []string {
	names := make([]string, 0, len(c.deps.Channels))
	for _, ch := range c.deps.Channels {
		names = append(names, ch.Name())
	}
	return names
}

func (c *CollectArticles) escape(ctx context.Context, names []string, related domain.RunReport) ([]domain.Article, error) {
	stored, err := c.deps.Store.GetArticles(ctx, ports.ArticleQuery{Scope: &c.req.Scope})
	if err != nil {
		return nil, &domain.CacheLookupError{Err: fmt.Errorf("load cached articles: %w", err)}
	}

	report := domain.NewReport(c.collectorType, c.req.Scope, names, c.deps.Now(), domain.EscapedOutcome{
		RelatedReportID: related.ID,
		CacheWindowDays: int(c.deps.Cache.Window() / (24 * time.Hour)),
		Count:           len(stored),
	})
	c.report = &report
	c.pending = stored

	if err := c.saveReport(ctx); err != nil {
		return stored, err
	}
	c.logger.Info("collection escaped", "related_report", related.ID, "count", len(stored))
	return stored, nil
}

func (c *CollectArticles) fetch(ctx context.Context) ([]domain.Article, []string, error) {
	var (
		articles []domain.Article
		failed   []string
		firstErr error
	)

	for _, ch := range c.deps.Channels {
		got, err := ch.GetArticles(ctx, c.req.Scope)
		if err != nil {
			fetchErr := &domain.FetchError{Channel: ch.Name(), Err: err}
			if c.deps.Strict {
				return nil, nil, fetchErr
			}
			c.logger.Warn("channel failed", "channel", ch.Name(), "error", err)
			failed = append(failed, ch.Name())
			if firstErr == nil {
				firstErr = fetchErr
			}
			continue
		}

		for i := range got {
			if got[i].Channel == "" {
				got[i].Channel = ch.Name()
			}
		}
		articles = append(articles, got...)
	}

	if len(c.deps.Channels) > 0 && len(failed) == len(c.deps.Channels) {
		return nil, failed, firstErr
	}
	return articles, failed, nil
}

func (c *CollectArticles) extract(ctx context.Context, articles []domain.Article) ([]domain.Article, []string, error) {
	if c.deps.Extractor == nil {
		return nil, nil, errors.New("no date reference extractor configured")
	}

	kept := make([]domain.Article, 0, len(articles))
	var skipped []string
	for _, article := range articles {
		refs, err := c.deps.Extractor.Extract(ctx, article.Body)
		if err != nil {
			extractErr := &domain.ExtractionError{URL: article.URL, Err: err}
			if c.deps.Strict {
				return nil, nil, extractErr
			}
			c.logger.Warn("extraction failed, skipping article", "url", article.URL, "error", err)
			skipped = append(skipped, article.URL)
			continue
		}
		article.RefDates = refs
		kept = append(kept, article)
	}
	return kept, skipped, nil
}

// persist upserts the pending articles and saves the done report.
func (c *CollectArticles) persist(ctx context.Context) ([]domain.Article, error) {
	outcome, ok := c.report.Outcome.(domain.DoneOutcome)
	if !ok {
		return nil, fmt.Errorf("cannot persist a %s report as done", c.report.Status())
	}
	outcome.Inserted, outcome.Updated = nil, nil

	stored := make([]domain.Article, 0, len(c.pending))
	for _, article := range c.pending {
		saved, inserted, err := c.deps.Store.UpsertArticle(ctx, article, c.req.Scope)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "upsert " + article.URL, Err: err}
		}
		if inserted {
			outcome.Inserted = append(outcome.Inserted, article.URL)
		} else {
			outcome.Updated = append(outcome.Updated, article.URL)
		}
		stored = append(stored, saved)
	}
	c.report.Outcome = outcome
	c.pending = stored

	if err := c.saveReport(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

func (c *CollectArticles) saveReport(ctx context.Context) error {
	if err := c.report.Validate(); err != nil {
		return &domain.PersistenceError{Op: "report", Err: err}
	}
	id, err := c.deps.Store.SaveReport(ctx, *c.report)
	if err != nil {
		return &domain.PersistenceError{Op: "report", Err: err}
	}
	c.report.ID = id
	c.persisted = true
	return nil
}

// fail keeps an in-memory failed report; failed runs are never persisted.
func (c *CollectArticles) fail(names []string, err error) error {
	report := domain.NewReport(c.collectorType, c.req.Scope, names, c.deps.Now(), domain.FailedOutcome{ErrorSummary: err.Error()})
	c.report = &report
	c.logger.Error("collection failed", "error", err)
	return err
}
