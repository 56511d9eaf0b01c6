package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// DefaultSettle is how long the browser waits after load for scripts to render.
const DefaultSettle = 2 * time.Second

// Render loads a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func Render(ctx context.Context, url string, timeout, settle time.Duration) (string, error) {
	slog.DebugContext(ctx, "starting headless browser", "url", url)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	slog.DebugContext(ctx, "rendered page", "url", url, "bytes", len(html))
	return html, nil
}

// BrowserFetcher renders pages in headless Chrome before parsing them.
type BrowserFetcher struct {
	Timeout time.Duration
	Settle  time.Duration
}

// NewBrowserFetcher creates a BrowserFetcher with default timings.
func NewBrowserFetcher(timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BrowserFetcher{Timeout: timeout, Settle: DefaultSettle}
}

// Fetch implements DocumentFetcher.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	html, err := Render(ctx, url, b.Timeout, b.Settle)
	if err != nil {
		return nil, err
	}
	return Parse(url, html)
}

// FallbackFetcher uses Primary and retries with Fallback when the document
// Primary returned is not Ready, e.g. because the content is script-rendered.
// A retry requests the same URL again, so an incomplete page costs two fetches.
type FallbackFetcher struct {
	Primary  DocumentFetcher
	Fallback DocumentFetcher
	Ready    func(*goquery.Document) bool
}

// Fetch implements DocumentFetcher. Errors from Primary are returned as is.
func (f *FallbackFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	doc, err := f.Primary.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if f.Fallback == nil || f.Ready == nil || f.Ready(doc) {
		return doc, nil
	}

	slog.InfoContext(ctx, "page incomplete, rendering in browser", "url", url)
	rendered, err := f.Fallback.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fallback fetch: %w", err)
	}
	return rendered, nil
}
