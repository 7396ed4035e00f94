// Package analysis talks to a remote text-analysis service that finds date
// mentions on behalf of the collector.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// Client implements ports.DateFinder over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.DateFinder = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     httpClient,
	}
}

type datesResponse struct {
	Matches []struct {
		Year   int    `json:"year"`
		Month  int    `json:"month"`
		Day    int    `json:"day"`
		Text   string `json:"text"`
		Offset int    `json:"offset"`
	} `json:"matches"`
}

// FindDates sends the text to the service and returns its matches in order.
func (c *Client) FindDates(ctx context.Context, text string) ([]ports.DateMatch, error) {
	var resp datesResponse
	if err := c.post(ctx, "/dates", map[string]any{"text": text}, &resp); err != nil {
		return nil, err
	}

	matches := make([]ports.DateMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m.Offset < 0 || m.Offset+len(m.Text) > len(text) {
			return nil, fmt.Errorf("analysis service returned offset %d outside the text", m.Offset)
		}
		matches = append(matches, ports.DateMatch{
			Date:   domain.PartialDate{Year: m.Year, Month: m.Month, Day: m.Day},
			Text:   m.Text,
			Offset: m.Offset,
		})
	}
	return matches, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
