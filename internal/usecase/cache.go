package usecase

import (
	"context"
	"time"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// DefaultCacheWindow is how long a done report keeps satisfying new requests.
const DefaultCacheWindow = 31 * 24 * time.Hour

// CollectionCache decides whether a stored report lets a run be skipped.
type CollectionCache struct {
	reports ports.ReportStore
	window  time.Duration
}

// NewCollectionCache builds the cache; a non-positive window uses DefaultCacheWindow.
func NewCollectionCache(reports ports.ReportStore, window time.Duration) *CollectionCache {
	if window <= 0 {
		window = DefaultCacheWindow
	}
	return &CollectionCache{reports: reports, window: window}
}

// Window returns the configured cache window.
func (c *CollectionCache) Window() time.Duration {
	return c.window
}

// ShouldSkip looks at every done collector report for the exact scope and
// channel set; any one created inside the window justifies skipping. A
// forced collection never skips and never touches the store.
func (c *CollectionCache) ShouldSkip(ctx context.Context, scope domain.Scope, channels []string, force bool, now time.Time) (bool, *domain.RunReport, error) {
	if force {
		return false, nil, nil
	}

	reports, err := c.reports.GetReports(ctx, ports.ReportFilter{
		Name:     domain.ReportName,
		Scope:    &scope,
		Status:   domain.StatusDone,
		Channels: channels,
	})
	if err != nil {
		return false, nil, &domain.CacheLookupError{Err: err}
	}

	for i := range reports {
		r := reports[i]
		if r.Status() != domain.StatusDone || r.Scope != scope || !domain.SameChannels(r.Channels, channels) {
			continue
		}
		if now.Before(r.CreatedAt.Add(c.window)) {
			return true, &r, nil
		}
	}
	return false, nil, nil
}
