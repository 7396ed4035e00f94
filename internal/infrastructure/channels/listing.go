package channels

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"BrokenPromises/internal/channel"
	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// KindListing identifies the generic HTML listing channel.
const KindListing = "listing"

// ListingSelectors configures how a listing page and its articles are read.
type ListingSelectors struct {
	Item       string
	Link       string
	Title      string
	Date       string
	DateLayout string
	Body       string
}

// ListingChannel crawls an HTML listing page (newest first) and scrapes the
// body of every entry published inside the requested scope.
type ListingChannel struct {
	name      string
	urlFormat string
	maxPages  int
	selectors ListingSelectors
	client    *http.Client
	logger    *slog.Logger
}

var _ ports.Channel = (*ListingChannel)(nil)

// NewListingChannel wires an HTTP client; maxPages defaults to 1.
func NewListingChannel(name, urlFormat string, maxPages int, selectors ListingSelectors, client *http.Client, logger *slog.Logger) *ListingChannel {
	if maxPages <= 0 {
		maxPages = 1
	}
	if selectors.Item == "" {
		selectors.Item = "article"
	}
	if selectors.Link == "" {
		selectors.Link = "a[href]"
	}
	if selectors.Date == "" {
		selectors.Date = "time"
	}
	if selectors.DateLayout == "" {
		selectors.DateLayout = time.RFC3339
	}
	if selectors.Body == "" {
		selectors.Body = "article"
	}
	return &ListingChannel{
		name:      name,
		urlFormat: urlFormat,
		maxPages:  maxPages,
		selectors: selectors,
		client:    httpClient(client),
		logger:    logger,
	}
}

// NewListingFromSettings is the registry factory for listing channels.
func NewListingFromSettings(s channel.Settings) (ports.Channel, error) {
	urlFormat := s.Option("url", "")
	if urlFormat == "" {
		return nil, fmt.Errorf("listing channel %s needs a url option", s.Name)
	}
	pages, err := strconv.Atoi(s.Option("pages", "1"))
	if err != nil {
		return nil, fmt.Errorf("listing channel %s: invalid pages option: %w", s.Name, err)
	}
	return NewListingChannel(s.Name, urlFormat, pages, ListingSelectors{
		Item:       s.Option("item", ""),
		Link:       s.Option("link", ""),
		Title:      s.Option("title", ""),
		Date:       s.Option("date", ""),
		DateLayout: s.Option("dateLayout", ""),
		Body:       s.Option("body", ""),
	}, s.Client, s.Logger), nil
}

// Name identifies the channel in reports.
func (l *ListingChannel) Name() string {
	return l.name
}

// GetArticles walks listing pages until an entry older than the scope shows up.
func (l *ListingChannel) GetArticles(ctx context.Context, scope domain.Scope) ([]domain.Article, error) {
	from, _ := scope.Range()
	results := make([]domain.Article, 0)
	seen := map[string]struct{}{}

	for page := 1; page <= l.maxPages; page++ {
		pageURL, err := buildPageURL(l.urlFormat, scope, page)
		if err != nil {
			return nil, err
		}

		doc, err := fetchDocument(ctx, l.client, pageURL)
		if err != nil {
			return nil, fmt.Errorf("listing page %d: %w", page, err)
		}

		entries, shouldContinue := l.extractEntries(doc, pageURL, scope, from)
		for _, article := range entries {
			if _, ok := seen[article.URL]; ok {
				continue
			}
			seen[article.URL] = struct{}{}
			results = append(results, article)
		}

		if !shouldContinue {
			break
		}
	}

	for i := range results {
		body, err := l.ScrapeBody(ctx, results[i].URL)
		if err != nil {
			return nil, fmt.Errorf("scrape %s: %w", results[i].URL, err)
		}
		results[i].Body = body
	}

	l.debug("listing scanned", "scope", scope.String(), "articles", len(results))
	return results, nil
}

// ScrapeBody returns the inner HTML of the article body selector.
func (l *ListingChannel) ScrapeBody(ctx context.Context, articleURL string) (string, error) {
	return scrapeSelection(ctx, l.client, articleURL, l.selectors.Body)
}

func (l *ListingChannel) extractEntries(doc *goquery.Document, pageURL string, scope domain.Scope, from time.Time) ([]domain.Article, bool) {
	var (
		collected    []domain.Article
		continueScan = true
		processed    int
	)

	doc.Find(l.selectors.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		processed++

		article, err := l.parseEntry(item, pageURL)
		if err != nil {
			l.debug("skip listing entry", "error", err)
			return true
		}

		if scope.Contains(article.PublishedAt) {
			collected = append(collected, article)
		}
		if article.PublishedAt.Before(from) {
			continueScan = false
			return false
		}
		return true
	})

	if processed == 0 {
		continueScan = false
	}
	return collected, continueScan
}

func (l *ListingChannel) parseEntry(item *goquery.Selection, pageURL string) (domain.Article, error) {
	link := item.Find(l.selectors.Link).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return domain.Article{}, fmt.Errorf("entry has no link")
	}
	absolute, err := resolveURL(pageURL, href)
	if err != nil {
		return domain.Article{}, err
	}

	title := strings.TrimSpace(link.Text())
	if l.selectors.Title != "" {
		if t := strings.TrimSpace(item.Find(l.selectors.Title).First().Text()); t != "" {
			title = t
		}
	}

	dateNode := item.Find(l.selectors.Date).First()
	dateText, ok := dateNode.Attr("datetime")
	if !ok {
		dateText = dateNode.Text()
	}
	publishedAt, err := time.Parse(l.selectors.DateLayout, strings.TrimSpace(dateText))
	if err != nil {
		return domain.Article{}, fmt.Errorf("entry %s: parse date %q: %w", absolute, dateText, err)
	}

	return domain.Article{
		URL:         absolute,
		Title:       title,
		PublishedAt: publishedAt,
		Channel:     l.name,
	}, nil
}

func (l *ListingChannel) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

// buildPageURL expands {year}, {month}, {day}, {from}, {to} and {page}.
// Absent scope components expand to an empty string.
func buildPageURL(format string, scope domain.Scope, page int) (string, error) {
	from, to := scope.Range()
	month, day := "", ""
	if scope.Month != 0 {
		month = fmt.Sprintf("%02d", scope.Month)
	}
	if scope.Day != 0 {
		day = fmt.Sprintf("%02d", scope.Day)
	}

	expanded := strings.NewReplacer(
		"{year}", strconv.Itoa(scope.Year),
		"{month}", month,
		"{day}", day,
		"{from}", from.Format("2006-01-02"),
		"{to}", to.AddDate(0, 0, -1).Format("2006-01-02"),
		"{page}", strconv.Itoa(page),
	).Replace(format)

	parsed, err := url.Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", expanded, err)
	}
	return parsed.String(), nil
}

func resolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", base, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid link %s: %w", href, err)
	}
	return b.ResolveReference(ref).String(), nil
}
