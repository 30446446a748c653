package fetch

import (
	"context"
	"log"
)

// Fetcher returns the readable text of a page.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Fallback tries the static fetcher first and falls back to Chromium when the
// static fetch fails or yields too little text to corroborate anything.
type Fallback struct {
	Static  Fetcher
	Browser Fetcher
}

// minUsefulText is the threshold below which a static fetch is assumed to
// have hit a script-rendered page.
const minUsefulText = 200

func NewFallback() *Fallback {
	return &Fallback{Static: NewStaticFetcher(), Browser: NewChromiumFetcher()}
}

func (f *Fallback) FetchText(ctx context.Context, url string) (string, error) {
	text, err := f.Static.FetchText(ctx, url)
	if err == nil && len(text) >= minUsefulText {
		return text, nil
	}
	if f.Browser == nil {
		return text, err
	}
	if err != nil {
		log.Printf("fetch: static fetch failed url=%s err=%v, trying browser", url, err)
	} else {
		log.Printf("fetch: static fetch thin url=%s chars=%d, trying browser", url, len(text))
	}
	browserText, browserErr := f.Browser.FetchText(ctx, url)
	if browserErr != nil {
		if err != nil {
			return "", err
		}
		return text, nil
	}
	return browserText, nil
}
