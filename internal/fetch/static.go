// Package fetch extracts readable page text for grant corroboration. Fetch
// failure is an expected outcome here; callers degrade to an unverified
// status instead of aborting.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// maxTextBytes caps extracted text so a pathological page cannot blow up a
// prompt or log line downstream.
const maxTextBytes = 100 * 1024

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticFetcher retrieves a page over plain HTTP and extracts its visible
// text. Pages that require script execution come back mostly empty; the
// ChromiumFetcher covers those.
type StaticFetcher struct {
	client *http.Client
}

func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *StaticFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4*maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}
	return ExtractText(doc), nil
}

// ExtractText pulls the visible text out of a parsed document, dropping
// non-content elements and collapsing whitespace.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()
	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	return clampText(text)
}

func clampText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxTextBytes {
		text = text[:maxTextBytes]
	}
	return text
}
