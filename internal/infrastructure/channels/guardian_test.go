package channels

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"BrokenPromises/internal/channel"
	"BrokenPromises/internal/domain"
)

func TestGuardianChannelPagesThroughResults(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		seenQueries []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seenQueries = append(seenQueries, r.URL.RawQuery)
		mu.Unlock()
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"response":{"status":"ok","currentPage":%s,"pages":2,"results":[
			{"webUrl":"https://www.theguardian.com/p%s","webTitle":"Title %s","webPublicationDate":"2014-01-05T10:00:00Z",
			 "fields":{"body":"<p>Promised on 10 October 2013.</p><script>alert(1)</script>"}}]}}`, page, page, page)
	}))
	defer server.Close()

	g := NewGuardianChannel("guardian", GuardianOptions{Endpoint: server.URL, APIKey: "k"}, server.Client(), nil)

	articles, err := g.GetArticles(context.Background(), domain.Scope{Year: 2014, Month: 1})
	if err != nil {
		t.Fatalf("GetArticles error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.URL != "https://www.theguardian.com/p1" || first.Channel != "guardian" {
		t.Fatalf("unexpected article: %+v", first)
	}
	if strings.Contains(first.Body, "script") {
		t.Fatalf("expected sanitised body, got %q", first.Body)
	}
	if !first.PublishedAt.Equal(time.Date(2014, time.January, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected publication date: %v", first.PublishedAt)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seenQueries) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seenQueries))
	}
	if !strings.Contains(seenQueries[0], "from-date=2014-01-01") || !strings.Contains(seenQueries[0], "to-date=2014-01-31") {
		t.Fatalf("unexpected query: %s", seenQueries[0])
	}
}

func TestGuardianChannelWarnsWhenPageLimitTruncates(t *testing.T) {
	t.Parallel()

	var requests int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		page := r.URL.Query().Get("page")
		fmt.Fprintf(w, `{"response":{"status":"ok","pages":5,"results":[
			{"webUrl":"https://www.theguardian.com/p%s","webPublicationDate":"2014-01-05T10:00:00Z","fields":{"body":"x"}}]}}`, page)
	}))
	defer server.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	g := NewGuardianChannel("guardian", GuardianOptions{Endpoint: server.URL, MaxPages: 2}, server.Client(), logger)

	articles, err := g.GetArticles(context.Background(), domain.Scope{Year: 2014})
	if err != nil {
		t.Fatalf("GetArticles error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	mu.Lock()
	defer mu.Unlock()
	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "truncated") {
		t.Fatalf("expected truncation warning, got %q", logs.String())
	}
}

func TestGuardianChannelRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"status":"error","message":"Invalid authentication credentials"}}`))
	}))
	defer server.Close()

	g := NewGuardianChannel("guardian", GuardianOptions{Endpoint: server.URL}, server.Client(), nil)
	if _, err := g.GetArticles(context.Background(), domain.Scope{Year: 2014}); err == nil {
		t.Fatal("expected error when API reports failure")
	}
}

func TestGuardianScrapeBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div itemprop="articleBody"><p>By 2015 the line will open.</p></div></body></html>`))
	}))
	defer server.Close()

	g := NewGuardianChannel("guardian", GuardianOptions{}, server.Client(), nil)
	body, err := g.ScrapeBody(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("ScrapeBody error: %v", err)
	}
	if body != "<p>By 2015 the line will open.</p>" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestRegisterAddsBuiltInKinds(t *testing.T) {
	t.Parallel()

	reg := channel.NewRegistry()
	Register(reg)

	set, err := reg.Resolve([]channel.Spec{
		{Name: "guardian", Kind: KindGuardian},
		{Name: "bbc", Kind: KindRSS, Options: map[string]string{"url": "https://feeds.example.org/news.xml"}},
	}, nil, nil)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(set.Names()) != 2 {
		t.Fatalf("unexpected channels: %v", set.Names())
	}

	if _, err := reg.Resolve([]channel.Spec{{Name: "bad", Kind: KindListing}}, nil, nil); err == nil {
		t.Fatal("expected listing without url to fail")
	}
}
