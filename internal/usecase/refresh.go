package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// ChannelLookup finds the channel that produced an article.
type ChannelLookup interface {
	Lookup(name string) (ports.Channel, bool)
}

// RefreshArticles recomputes date references for already collected articles,
// optionally re-scraping their bodies first. It writes no report.
type RefreshArticles struct {
	channels  ChannelLookup
	extractor *DateReferenceExtractor
	filter    *ResultFilter
	logger    *slog.Logger
}

// NewRefreshArticles builds the refresh use case.
func NewRefreshArticles(channels ChannelLookup, extractor *DateReferenceExtractor, filter *ResultFilter, logger *slog.Logger) *RefreshArticles {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if filter == nil {
		filter = NewResultFilter(logger)
	}
	return &RefreshArticles{channels: channels, extractor: extractor, filter: filter, logger: logger}
}

// Run returns the articles that still carry earlier-dated references.
func (r *RefreshArticles) Run(ctx context.Context, articles []domain.Article, scrape bool) ([]domain.Article, error) {
	work := make([]domain.Article, len(articles))
	copy(work, articles)

	if scrape {
		for i := range work {
			body, err := r.scrape(ctx, work[i])
			if err != nil {
				return nil, err
			}
			work[i].Body = body
		}
	}

	work = r.filter.Pre(work)
	for i := range work {
		refs, err := r.extractor.Extract(ctx, work[i].Body)
		if err != nil {
			return nil, &domain.ExtractionError{URL: work[i].URL, Err: err}
		}
		work[i].RefDates = refs
	}

	refreshed := r.filter.Post(work)
	r.logger.Info("refresh done", "articles", len(articles), "kept", len(refreshed), "scraped", scrape)
	return refreshed, nil
}

func (r *RefreshArticles) scrape(ctx context.Context, article domain.Article) (string, error) {
	if r.channels == nil {
		return "", fmt.Errorf("no channels to scrape %s", article.URL)
	}
	ch, ok := r.channels.Lookup(article.Channel)
	if !ok {
		return "", &domain.FetchError{Channel: article.Channel, Err: fmt.Errorf("unknown channel for %s", article.URL)}
	}
	body, err := ch.ScrapeBody(ctx, article.URL)
	if err != nil {
		return "", &domain.FetchError{Channel: article.Channel, Err: err}
	}
	return body, nil
}
