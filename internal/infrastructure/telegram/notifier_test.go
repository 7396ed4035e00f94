package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestNotifyPostsToRecipient(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		path   string
		chatID string
		text   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		mu.Lock()
		path, chatID, text = r.URL.Path, r.PostForm.Get("chat_id"), r.PostForm.Get("text")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token", "default", WithEndpoint(srv.URL+"/"), WithHTTPClient(srv.Client()))
	if err := n.Notify(context.Background(), "42", "ready"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	last := func() (string, string, string) {
		mu.Lock()
		defer mu.Unlock()
		return path, chatID, text
	}
	if p, c, m := last(); p != "/bottoken/sendMessage" || c != "42" || m != "ready" {
		t.Fatalf("unexpected request %s chat=%s text=%s", p, c, m)
	}

	if err := n.Notify(context.Background(), "", "again"); err != nil {
		t.Fatalf("Notify with default chat: %v", err)
	}
	if _, c, _ := last(); c != "default" {
		t.Fatalf("expected default chat, got %s", c)
	}
}

func TestNotifyErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if err := NewNotifier("", "1").Notify(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
	if err := NewNotifier("token", "").Notify(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected missing chat error")
	}
	n := NewNotifier("token", "1", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if err := n.Notify(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected status error")
	}
}
