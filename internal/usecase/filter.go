package usecase

import (
	"log/slog"

	"BrokenPromises/internal/domain"
)

// ResultFilter applies the structural pass before extraction and the
// temporal pass after it.
type ResultFilter struct {
	logger *slog.Logger
}

// NewResultFilter builds a filter that logs dropped references.
func NewResultFilter(logger *slog.Logger) *ResultFilter {
	return &ResultFilter{logger: logger}
}

// Pre keeps articles with a non-empty body, preserving order.
func (f *ResultFilter) Pre(articles []domain.Article) []domain.Article {
	kept := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if a.Body != "" {
			kept = append(kept, a)
		}
	}
	return kept
}

// Post replaces each article's references with those dated strictly before
// its publication day, then drops articles left without references.
// References that cannot be compared are dropped, never kept.
func (f *ResultFilter) Post(articles []domain.Article) []domain.Article {
	kept := make([]domain.Article, 0, len(articles))
	for i := range articles {
		article := &articles[i]

		if !article.HasPublicationDate() && len(article.RefDates) > 0 {
			f.warn("article has no publication date, dropping its references",
				"url", article.URL, "references", len(article.RefDates))
			article.RefDates = nil
			continue
		}

		refs := make([]domain.DateReference, 0, len(article.RefDates))
		for _, ref := range article.RefDates {
			before, err := ref.Date.TryBefore(article.PublishedAt)
			if err != nil {
				f.warn("reference not comparable", "url", article.URL, "reference", ref.ExtractedText, "reason", err)
				continue
			}
			if before {
				refs = append(refs, ref)
			}
		}
		article.RefDates = refs

		if len(refs) > 0 {
			kept = append(kept, *article)
		}
	}
	return kept
}

func (f *ResultFilter) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
