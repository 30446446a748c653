package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Forest Fund</title><style>body { color: red; }</style></head>
<body>
<nav>Home | About | Grants</nav>
<script>console.log("tracking");</script>
<main>
<h1>Forest Restoration Fund</h1>
<p>Grants of $25,000 to $100,000 for community reforestation projects.</p>
</main>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestStaticFetcherExtractsVisibleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a user agent header")
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	text, err := NewStaticFetcher().FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Forest Restoration Fund") {
		t.Fatalf("expected page content, got %q", text)
	}
	if strings.Contains(text, "tracking") || strings.Contains(text, "color: red") {
		t.Fatalf("expected script and style stripped, got %q", text)
	}
	if strings.Contains(text, "Home | About") || strings.Contains(text, "Copyright") {
		t.Fatalf("expected nav and footer stripped, got %q", text)
	}
}

func TestStaticFetcherRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewStaticFetcher().FetchText(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestClampTextCollapsesWhitespace(t *testing.T) {
	got := clampText("  one\n\n two\t three  ")
	if got != "one two three" {
		t.Fatalf("expected collapsed text, got %q", got)
	}
	long := clampText(strings.Repeat("x ", maxTextBytes))
	if len(long) != maxTextBytes {
		t.Fatalf("expected cap at %d, got %d", maxTextBytes, len(long))
	}
}

type stubFetcher struct {
	text  string
	err   error
	calls int
}

func (s *stubFetcher) FetchText(ctx context.Context, url string) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestFallbackUsesStaticWhenSufficient(t *testing.T) {
	static := &stubFetcher{text: strings.Repeat("grant details ", 20)}
	browser := &stubFetcher{text: "browser text"}
	f := &Fallback{Static: static, Browser: browser}

	text, err := f.FetchText(context.Background(), "https://example.org")
	if err != nil {
		t.Fatal(err)
	}
	if text != static.text {
		t.Fatalf("expected static result, got %q", text)
	}
	if browser.calls != 0 {
		t.Fatalf("expected browser untouched, got %d calls", browser.calls)
	}
}

func TestFallbackTriesBrowserOnThinText(t *testing.T) {
	static := &stubFetcher{text: "cookie notice"}
	browser := &stubFetcher{text: strings.Repeat("rendered grant content ", 20)}
	f := &Fallback{Static: static, Browser: browser}

	text, err := f.FetchText(context.Background(), "https://example.org")
	if err != nil {
		t.Fatal(err)
	}
	if text != browser.text {
		t.Fatalf("expected browser result, got %q", text)
	}
}

func TestFallbackTriesBrowserOnStaticError(t *testing.T) {
	static := &stubFetcher{err: fmt.Errorf("status 403")}
	browser := &stubFetcher{text: "rendered content"}
	f := &Fallback{Static: static, Browser: browser}

	text, err := f.FetchText(context.Background(), "https://example.org")
	if err != nil {
		t.Fatal(err)
	}
	if text != "rendered content" {
		t.Fatalf("expected browser result, got %q", text)
	}
}

func TestFallbackKeepsThinStaticWhenBrowserFails(t *testing.T) {
	static := &stubFetcher{text: "short"}
	browser := &stubFetcher{err: fmt.Errorf("chrome not found")}
	f := &Fallback{Static: static, Browser: browser}

	text, err := f.FetchText(context.Background(), "https://example.org")
	if err != nil {
		t.Fatal(err)
	}
	if text != "short" {
		t.Fatalf("expected static text kept, got %q", text)
	}
}

func TestFallbackPropagatesWhenBothFail(t *testing.T) {
	static := &stubFetcher{err: fmt.Errorf("status 500")}
	browser := &stubFetcher{err: fmt.Errorf("chrome not found")}
	f := &Fallback{Static: static, Browser: browser}

	_, err := f.FetchText(context.Background(), "https://example.org")
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("expected static error propagated, got %v", err)
	}
}
