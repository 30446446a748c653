package fetch

import (
	"context"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ChromiumFetcher renders a page in headless Chromium before extracting text,
// covering sites that build their content with scripts. Each fetch spins up
// its own browser context; corroboration volume is low enough that reuse is
// not worth the shared-state risk.
type ChromiumFetcher struct {
	chromePath string
	timeout    time.Duration
}

func NewChromiumFetcher() *ChromiumFetcher {
	return &ChromiumFetcher{
		chromePath: detectChromePath(),
		timeout:    30 * time.Second,
	}
}

func (f *ChromiumFetcher) FetchText(ctx context.Context, url string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if f.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(f.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var text string
	if err := chromedp.Run(taskCtx,
		emulation.SetUserAgentOverride(browserUserAgent),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	); err != nil {
		return "", err
	}
	return clampText(text), nil
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
