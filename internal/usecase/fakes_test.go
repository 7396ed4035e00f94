package usecase

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

type fakeChannel struct {
	name     string
	articles []domain.Article
	bodies   map[string]string
	err      error

	mu    sync.Mutex
	calls int
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) GetArticles(_ context.Context, _ domain.Scope) ([]domain.Article, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return slices.Clone(c.articles), nil
}

func (c *fakeChannel) ScrapeBody(_ context.Context, url string) (string, error) {
	body, ok := c.bodies[url]
	if !ok {
		return "", errors.New("not found")
	}
	return body, nil
}

func (c *fakeChannel) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type channelMap map[string]ports.Channel

func (m channelMap) Lookup(name string) (ports.Channel, bool) {
	ch, ok := m[name]
	return ch, ok
}

// memStore is an in-memory ports.Store keyed by URL.
type memStore struct {
	mu       sync.Mutex
	articles map[string]domain.Article
	scopes   map[string][]domain.Scope
	order    []string
	reports  []domain.RunReport

	reportsErr error
	upsertErr  error
	saveErr    error
	nextID     int
}

func newMemStore() *memStore {
	return &memStore{articles: map[string]domain.Article{}, scopes: map[string][]domain.Scope{}}
}

func (s *memStore) GetArticles(_ context.Context, q ports.ArticleQuery) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Article
	for _, url := range s.order {
		if q.Scope != nil && !slices.Contains(s.scopes[url], *q.Scope) {
			continue
		}
		out = append(out, s.articles[url])
	}
	return out, nil
}

func (s *memStore) CountArticles(ctx context.Context, scope *domain.Scope) (int, error) {
	got, err := s.GetArticles(ctx, ports.ArticleQuery{Scope: scope})
	return len(got), err
}

func (s *memStore) UpsertArticle(_ context.Context, a domain.Article, scope domain.Scope) (domain.Article, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return domain.Article{}, false, s.upsertErr
	}
	if !slices.Contains(s.scopes[a.URL], scope) {
		s.scopes[a.URL] = append(s.scopes[a.URL], scope)
	}
	existing, ok := s.articles[a.URL]
	if !ok {
		s.articles[a.URL] = a
		s.order = append(s.order, a.URL)
		return a, true, nil
	}
	merged := domain.MergeArticles(existing, a)
	s.articles[a.URL] = merged
	return merged, false, nil
}

func (s *memStore) GetReports(_ context.Context, f ports.ReportFilter) ([]domain.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reportsErr != nil {
		return nil, s.reportsErr
	}
	var out []domain.RunReport
	for i := len(s.reports) - 1; i >= 0; i-- {
		r := s.reports[i]
		if f.Name != "" && r.Name != f.Name {
			continue
		}
		if f.Scope != nil && r.Scope != *f.Scope {
			continue
		}
		if f.Status != "" && r.Status() != f.Status {
			continue
		}
		if f.Channels != nil && !domain.SameChannels(r.Channels, f.Channels) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) SaveReport(_ context.Context, r domain.RunReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.nextID++
	r.ID = "report-" + strconv.Itoa(s.nextID)
	s.reports = append(s.reports, r)
	return r.ID, nil
}

// literalFinder reports every occurrence of the configured literals.
type literalFinder struct {
	dates map[string]domain.PartialDate
	err   error
}

func (f literalFinder) FindDates(_ context.Context, text string) ([]ports.DateMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []ports.DateMatch
	for offset := 0; offset < len(text); offset++ {
		for lit, date := range f.dates {
			if len(text)-offset >= len(lit) && text[offset:offset+len(lit)] == lit {
				out = append(out, ports.DateMatch{Date: date, Text: lit, Offset: offset})
			}
		}
	}
	return out, nil
}

type fixedSplitter []ports.Span

func (s fixedSplitter) Split(string) []ports.Span { return s }

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, recipient, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = map[string][]string{}
	}
	n.messages[recipient] = append(n.messages[recipient], message)
	return n.err
}
