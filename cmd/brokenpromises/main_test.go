package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"BrokenPromises/internal/domain"
)

func TestRenderReports(t *testing.T) {
	t.Parallel()

	out := renderReports([]domain.RunReport{
		domain.NewReport("collector.CollectArticles", domain.Scope{Year: 2014, Month: 1}, []string{"guardian"}, time.Now(),
			domain.EscapedOutcome{RelatedReportID: "abc", Count: 3}),
	})
	for _, want := range []string{"2014-01", "escaped", "cached by abc", "guardian"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderArticlesTruncatesTitles(t *testing.T) {
	t.Parallel()

	out := renderArticles([]domain.Article{{
		URL:         "https://example.com/a",
		Title:       strings.Repeat("x", 80),
		PublishedAt: time.Date(2014, 1, 5, 0, 0, 0, 0, time.UTC),
		RefDates:    []domain.DateReference{{Date: domain.PartialDate{Year: 2013, Month: 10}}},
	}})
	if strings.Contains(out, strings.Repeat("x", 61)) || !strings.Contains(out, "2013-10") || !strings.Contains(out, "2014-01-05") {
		t.Fatalf("unexpected article table:\n%s", out)
	}
}

func TestChannelsCommandMasksKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "channels:\n  - name: g\n    type: guardian\n    options:\n      apiKey: topsecret\n      section: politics\n")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "channels"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("channels command: %v", err)
	}
	if strings.Contains(out.String(), "topsecret") || !strings.Contains(out.String(), "section=politics") {
		t.Fatalf("unexpected channels output:\n%s", out.String())
	}
}

func TestCollectRejectsInvalidDate(t *testing.T) {
	t.Parallel()

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"collect", "2014", "13"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "invalid date") {
		t.Fatalf("expected invalid date error, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
