package channels

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"BrokenPromises/internal/channel"
	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

const (
	// KindGuardian identifies the Guardian content API channel.
	KindGuardian = "guardian"

	guardianEndpoint     = "https://content.guardianapis.com/search"
	guardianBodySelector = `[itemprop="articleBody"]`
)

// GuardianChannel searches the Guardian content API for articles published
// inside a scope and keeps their sanitised HTML bodies.
type GuardianChannel struct {
	name     string
	endpoint string
	apiKey   string
	section  string
	query    string
	pageSize int
	maxPages int
	client   *http.Client
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

var _ ports.Channel = (*GuardianChannel)(nil)

// GuardianOptions configures the API search.
type GuardianOptions struct {
	Endpoint string
	APIKey   string
	Section  string
	Query    string
	PageSize int
	MaxPages int
}

// NewGuardianChannel builds the channel; zero options fall back to API defaults.
func NewGuardianChannel(name string, opts GuardianOptions, client *http.Client, logger *slog.Logger) *GuardianChannel {
	if opts.Endpoint == "" {
		opts.Endpoint = guardianEndpoint
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	return &GuardianChannel{
		name:     name,
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		section:  opts.Section,
		query:    opts.Query,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		client:   httpClient(client),
		policy:   bluemonday.UGCPolicy(),
		logger:   logger,
	}
}

// NewGuardianFromSettings is the registry factory for Guardian channels.
func NewGuardianFromSettings(s channel.Settings) (ports.Channel, error) {
	opts := GuardianOptions{
		Endpoint: s.Option("endpoint", ""),
		APIKey:   s.Option("apiKey", "test"),
		Section:  s.Option("section", ""),
		Query:    s.Option("query", ""),
	}
	var err error
	if opts.PageSize, err = strconv.Atoi(s.Option("pageSize", "50")); err != nil {
		return nil, fmt.Errorf("guardian channel %s: invalid pageSize: %w", s.Name, err)
	}
	if opts.MaxPages, err = strconv.Atoi(s.Option("maxPages", "20")); err != nil {
		return nil, fmt.Errorf("guardian channel %s: invalid maxPages: %w", s.Name, err)
	}
	return NewGuardianChannel(s.Name, opts, s.Client, s.Logger), nil
}

// Name identifies the channel in reports.
func (g *GuardianChannel) Name() string {
	return g.name
}

type guardianResponse struct {
	Response struct {
		Status      string           `json:"status"`
		Message     string           `json:"message"`
		CurrentPage int              `json:"currentPage"`
		Pages       int              `json:"pages"`
		Results     []guardianResult `json:"results"`
	} `json:"response"`
}

type guardianResult struct {
	WebURL             string `json:"webUrl"`
	WebTitle           string `json:"webTitle"`
	WebPublicationDate string `json:"webPublicationDate"`
	Fields             struct {
		Body string `json:"body"`
	} `json:"fields"`
}

// GetArticles pages through the search results for the scope interval.
func (g *GuardianChannel) GetArticles(ctx context.Context, scope domain.Scope) ([]domain.Article, error) {
	var articles []domain.Article

	for page := 1; page <= g.maxPages; page++ {
		var payload guardianResponse
		if err := fetchJSON(ctx, g.client, g.pageURL(scope, page), &payload); err != nil {
			return nil, fmt.Errorf("guardian page %d: %w", page, err)
		}
		if payload.Response.Status != "ok" {
			return nil, fmt.Errorf("guardian page %d: status %q: %s", page, payload.Response.Status, payload.Response.Message)
		}

		for _, result := range payload.Response.Results {
			articles = append(articles, g.toArticle(result))
		}

		if page >= payload.Response.Pages {
			break
		}
		if page == g.maxPages && g.logger != nil {
			g.logger.Warn("guardian results truncated at page limit",
				"scope", scope.String(), "pages", payload.Response.Pages, "maxPages", g.maxPages)
		}
	}

	g.debug("guardian search done", "scope", scope.String(), "articles", len(articles))
	return articles, nil
}

// ScrapeBody reads the article body straight from the web page.
func (g *GuardianChannel) ScrapeBody(ctx context.Context, articleURL string) (string, error) {
	body, err := scrapeSelection(ctx, g.client, articleURL, guardianBodySelector)
	if err != nil {
		return "", err
	}
	return g.policy.Sanitize(body), nil
}

func (g *GuardianChannel) pageURL(scope domain.Scope, page int) string {
	from, to := scope.Range()
	q := url.Values{}
	q.Set("from-date", from.Format("2006-01-02"))
	q.Set("to-date", to.AddDate(0, 0, -1).Format("2006-01-02"))
	q.Set("show-fields", "body")
	q.Set("order-by", "oldest")
	q.Set("page-size", strconv.Itoa(g.pageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("api-key", g.apiKey)
	if g.section != "" {
		q.Set("section", g.section)
	}
	if g.query != "" {
		q.Set("q", g.query)
	}
	return g.endpoint + "?" + q.Encode()
}

func (g *GuardianChannel) toArticle(result guardianResult) domain.Article {
	article := domain.Article{
		URL:     result.WebURL,
		Title:   result.WebTitle,
		Body:    g.policy.Sanitize(result.Fields.Body),
		Channel: g.name,
	}
	if published, err := time.Parse(time.RFC3339, result.WebPublicationDate); err == nil {
		article.PublishedAt = published
	} else {
		g.debug("unparseable publication date", "url", result.WebURL, "value", result.WebPublicationDate)
	}
	return article
}

func (g *GuardianChannel) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
