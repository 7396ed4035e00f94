package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"BrokenPromises/internal/ports"
)

const defaultEndpoint = "https://api.telegram.org"

// Notifier delivers collection notices through the Telegram bot API.
type Notifier struct {
	botToken      string
	defaultChatID string
	endpoint      string
	client        *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// Option customises a Notifier.
type Option func(*Notifier)

// WithEndpoint points the notifier at another API root.
func WithEndpoint(endpoint string) Option {
	return func(n *Notifier) { n.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithHTTPClient replaces the default 5s client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) { n.client = client }
}

// NewNotifier registers the bot token and the chat used when a request has
// no recipient of its own.
func NewNotifier(botToken, defaultChatID string, opts ...Option) *Notifier {
	n := &Notifier{
		botToken:      botToken,
		defaultChatID: defaultChatID,
		endpoint:      defaultEndpoint,
		client:        &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts message to the recipient chat.
func (n *Notifier) Notify(ctx context.Context, recipient, message string) error {
	chatID := recipient
	if chatID == "" {
		chatID = n.defaultChatID
	}
	if n.botToken == "" || n.client == nil {
		return errors.New("telegram notifier misconfigured")
	}
	if chatID == "" {
		return errors.New("telegram notifier has no chat to send to")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.endpoint, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}
