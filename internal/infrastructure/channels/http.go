// Package channels holds the built-in news sources.
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"BrokenPromises/internal/channel"
)

const userAgent = "BrokenPromises/1.0"

// Register adds every built-in channel kind to the registry.
func Register(reg *channel.Registry) {
	reg.Register(KindGuardian, NewGuardianFromSettings)
	reg.Register(KindRSS, NewRSSFromSettings)
	reg.Register(KindListing, NewListingFromSettings)
}

func httpClient(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{Timeout: 20 * time.Second}
	}
	return client
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	resp, err := get(ctx, client, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func fetchJSON(ctx context.Context, client *http.Client, endpoint string, v any) error {
	resp, err := get(ctx, client, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func get(ctx context.Context, client *http.Client, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", target, resp.Status)
	}
	return resp, nil
}

// scrapeSelection fetches a page and returns the inner HTML of the first node
// matching selector.
func scrapeSelection(ctx context.Context, client *http.Client, pageURL, selector string) (string, error) {
	doc, err := fetchDocument(ctx, client, pageURL)
	if err != nil {
		return "", err
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", nil
	}
	body, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return strings.TrimSpace(body), nil
}
