package channels

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"BrokenPromises/internal/channel"
	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// KindRSS identifies the RSS/Atom feed channel.
const KindRSS = "rss"

// RSSChannel reads an RSS or Atom feed and keeps the items published inside
// the requested scope.
type RSSChannel struct {
	name         string
	feedURL      string
	bodySelector string
	scrape       bool
	client       *http.Client
	parser       *gofeed.Parser
	logger       *slog.Logger
}

var _ ports.Channel = (*RSSChannel)(nil)

// NewRSSChannel builds a feed channel. When scrape is set, items without
// content get their body from the article page.
func NewRSSChannel(name, feedURL, bodySelector string, scrape bool, client *http.Client, logger *slog.Logger) *RSSChannel {
	if bodySelector == "" {
		bodySelector = "article"
	}
	client = httpClient(client)
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &RSSChannel{
		name:         name,
		feedURL:      feedURL,
		bodySelector: bodySelector,
		scrape:       scrape,
		client:       client,
		parser:       parser,
		logger:       logger,
	}
}

// NewRSSFromSettings is the registry factory for feed channels.
func NewRSSFromSettings(s channel.Settings) (ports.Channel, error) {
	feedURL := s.Option("url", "")
	if feedURL == "" {
		return nil, fmt.Errorf("rss channel %s needs a url option", s.Name)
	}
	scrape := strings.EqualFold(s.Option("scrape", "false"), "true")
	return NewRSSChannel(s.Name, feedURL, s.Option("body", ""), scrape, s.Client, s.Logger), nil
}

// Name identifies the channel in reports.
func (r *RSSChannel) Name() string {
	return r.name
}

// GetArticles parses the feed and filters items by publication date.
func (r *RSSChannel) GetArticles(ctx context.Context, scope domain.Scope) ([]domain.Article, error) {
	feed, err := r.parser.ParseURLWithContext(r.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", r.feedURL, err)
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil || !scope.Contains(*published) {
			continue
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}
		if body == "" && r.scrape {
			scraped, err := r.ScrapeBody(ctx, item.Link)
			if err != nil {
				return nil, fmt.Errorf("scrape %s: %w", item.Link, err)
			}
			body = scraped
		}

		articles = append(articles, domain.Article{
			URL:         item.Link,
			Title:       strings.TrimSpace(item.Title),
			Body:        body,
			PublishedAt: published.UTC(),
			Channel:     r.name,
		})
	}

	if r.logger != nil {
		r.logger.Debug("feed parsed", "items", len(feed.Items), "in_scope", len(articles))
	}
	return articles, nil
}

// ScrapeBody returns the inner HTML of the configured body selector.
func (r *RSSChannel) ScrapeBody(ctx context.Context, articleURL string) (string, error) {
	return scrapeSelection(ctx, r.client, articleURL, r.bodySelector)
}
