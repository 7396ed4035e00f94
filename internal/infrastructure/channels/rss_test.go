package channels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"BrokenPromises/internal/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <item>
      <title>Inside scope</title>
      <link>https://news.example.org/inside</link>
      <pubDate>Sun, 05 Jan 2014 10:00:00 GMT</pubDate>
      <description>The council promised the works by 10 October 2013.</description>
    </item>
    <item>
      <title>Outside scope</title>
      <link>https://news.example.org/outside</link>
      <pubDate>Sat, 01 Feb 2014 10:00:00 GMT</pubDate>
      <description>Later news.</description>
    </item>
    <item>
      <title>No date</title>
      <link>https://news.example.org/undated</link>
      <description>Undated.</description>
    </item>
  </channel>
</rss>`

func TestRSSChannelFiltersByScope(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	ch := NewRSSChannel("example", server.URL, "", false, server.Client(), nil)

	articles, err := ch.GetArticles(context.Background(), domain.Scope{Year: 2014, Month: 1})
	if err != nil {
		t.Fatalf("GetArticles error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}

	got := articles[0]
	if got.URL != "https://news.example.org/inside" || got.Channel != "example" {
		t.Fatalf("unexpected article: %+v", got)
	}
	if got.Body != "The council promised the works by 10 October 2013." {
		t.Fatalf("unexpected body: %q", got.Body)
	}
	if got.PublishedAt.Day() != 5 {
		t.Fatalf("unexpected publication date: %v", got.PublishedAt)
	}
}

func TestRSSChannelFeedError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	ch := NewRSSChannel("example", server.URL, "", false, server.Client(), nil)
	if _, err := ch.GetArticles(context.Background(), domain.Scope{Year: 2014}); err == nil {
		t.Fatal("expected error for unavailable feed")
	}
}
