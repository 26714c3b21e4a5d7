// Package translate translates article titles and counts repeated words.
package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	collyfetcher "github.com/JakeFAU/gridscraper/internal/fetcher/colly"
)

// DefaultEndpoint is the mobile Google Translate page.
const DefaultEndpoint = "https://translate.google.com/m"

const resultSelector = "div.result-container"

// ErrNoTranslation is returned when the response carries no result node.
var ErrNoTranslation = errors.New("translation not found in response")

// Translator translates text between two languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Fetcher performs a single HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (collyfetcher.Response, error)
}

// GoogleClient scrapes translations from the Google Translate mobile page.
type GoogleClient struct {
	endpoint string
	fetcher  Fetcher
}

// NewGoogleClient builds a client. An empty endpoint uses DefaultEndpoint.
func NewGoogleClient(endpoint string, fetcher Fetcher) *GoogleClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &GoogleClient{endpoint: endpoint, fetcher: fetcher}
}

// Translate returns text translated from source to target. Blank text is
// returned unchanged without a request.
func (c *GoogleClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse translate endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("q", text)
	endpoint.RawQuery = q.Encode()

	resp, err := c.fetcher.Fetch(ctx, endpoint.String())
	if err != nil {
		return "", fmt.Errorf("fetch translation: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch translation: unexpected status %d", resp.StatusCode)
	}
	return parseResult(resp.Body)
}

func parseResult(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse translation page: %w", err)
	}
	node := doc.Find(resultSelector).First()
	if node.Length() == 0 {
		return "", ErrNoTranslation
	}
	return strings.TrimSpace(node.Text()), nil
}
