package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"BrokenPromises/internal/config"
	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/usecase"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <item>
      <title>Promise</title>
      <link>https://news.example.org/promise</link>
      <pubDate>Sun, 05 Jan 2014 10:00:00 GMT</pubDate>
      <description>&lt;p&gt;The council promised the works by 10 October 2013. They are not done.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Forecast</title>
      <link>https://news.example.org/forecast</link>
      <pubDate>Mon, 06 Jan 2014 10:00:00 GMT</pubDate>
      <description>The line should open in 2016.</description>
    </item>
  </channel>
</rss>`

func newTestApp(t *testing.T) (*Application, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "bp.db")}
	cfg.Channels = []config.ChannelConfig{{Name: "example", Type: "rss", Options: map[string]string{"url": srv.URL}}}
	cfg.Notifications.Telegram = config.TelegramConfig{}
	cfg.Worker.LockDir = filepath.Join(t.TempDir(), "locks")
	cfg.Analysis.Mode = config.AnalysisBuiltin

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, &hits
}

func TestCollectThenEscape(t *testing.T) {
	a, hits := newTestApp(t)
	ctx := context.Background()
	scope := domain.Scope{Year: 2014, Month: 1}

	articles, report, err := a.Collect(ctx, usecase.CollectRequest{Scope: scope, UseStorage: true})
	if err != nil {
		t.Fatalf("first collect: %v", err)
	}
	if len(articles) != 1 || articles[0].URL != "https://news.example.org/promise" {
		t.Fatalf("unexpected articles %+v", articles)
	}
	if ref := articles[0].RefDates[0]; ref.Sentence != "The council promised the works by 10 October 2013." {
		t.Fatalf("unexpected sentence %q", ref.Sentence)
	}
	if report.Status() != domain.StatusDone || report.ID == "" {
		t.Fatalf("unexpected first report %+v", report)
	}

	again, second, err := a.Collect(ctx, usecase.CollectRequest{Scope: scope, UseStorage: true})
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if second.Status() != domain.StatusEscaped || len(again) != 1 || hits.Load() != 1 {
		t.Fatalf("expected escaped run without fetch, got %s, %d articles, %d hits", second.Status(), len(again), hits.Load())
	}

	n, err := a.Store().CountArticles(ctx, &scope)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 stored article, got %d (%v)", n, err)
	}
}

func TestRefreshStoredArticles(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	scope := domain.Scope{Year: 2014, Month: 1}

	if _, _, err := a.Collect(ctx, usecase.CollectRequest{Scope: scope, UseStorage: true}); err != nil {
		t.Fatalf("collect: %v", err)
	}
	refreshed, err := a.Refresh(ctx, scope, false)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(refreshed) != 1 || len(refreshed[0].RefDates) != 1 {
		t.Fatalf("unexpected refresh result %+v", refreshed)
	}
}

func TestNewRejectsUnknownChannelKind(t *testing.T) {
	cfg := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg.Database.DSN = filepath.Join(t.TempDir(), "bp.db")
	cfg.Channels = []config.ChannelConfig{{Name: "x", Type: "carrier-pigeon"}}

	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected unknown channel kind error")
	}
}
