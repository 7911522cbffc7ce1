// Package browser keeps one long-lived Chrome tab per price source. The page is
// loaded once and re-read every cycle, the way a human leaves a sportsbook open.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

type Options struct {
	URL       string
	Wait      time.Duration // settle time after navigation
	Headless  bool
	UserAgent string
}

// Tab is a persistent browser tab. It is safe for concurrent use; calls are serialized.
type Tab struct {
	opts Options

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	tabCtx      context.Context
	loaded      bool
}

func NewTab(opts Options) *Tab {
	if opts.Wait <= 0 {
		opts.Wait = 2 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Tab{opts: opts}
}

func (t *Tab) start() {
	chromeOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", t.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(t.opts.UserAgent),
	)

	// The tab outlives any single cycle, so it hangs off the background context.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chromeOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		if os.Getenv("LINECOMPARE_CHROME_DEBUG") == "1" {
			slog.Debug("chromedp", "url", t.opts.URL, "message", fmt.Sprintf(format, v...))
		}
	}))

	t.allocCancel = allocCancel
	t.tabCtx = tabCtx
	t.tabCancel = tabCancel
	t.loaded = false
}

// Evaluate runs script in the page and decodes its JSON result into out.
// The page is navigated on first use and again after any failure.
func (t *Tab) Evaluate(ctx context.Context, script string, out interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tabCtx == nil {
		t.start()
	}

	// Cancelling a derived context aborts the action without closing the tab.
	runCtx, cancel := context.WithCancel(t.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if !t.loaded {
		slog.Debug("Loading page", "url", t.opts.URL)
		if err := chromedp.Run(runCtx,
			chromedp.Navigate(t.opts.URL),
			chromedp.Sleep(t.opts.Wait),
		); err != nil {
			t.restartIfDead()
			return fmt.Errorf("navigate %s: %w", t.opts.URL, err)
		}
		t.loaded = true
	}

	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, out)); err != nil {
		t.loaded = false
		t.restartIfDead()
		return fmt.Errorf("evaluate on %s: %w", t.opts.URL, err)
	}
	return nil
}

// restartIfDead drops the browser when its tab context is gone so the next call starts fresh.
func (t *Tab) restartIfDead() {
	if t.tabCtx != nil && t.tabCtx.Err() != nil {
		t.closeLocked()
	}
}

func (t *Tab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}

func (t *Tab) closeLocked() {
	if t.tabCancel != nil {
		t.tabCancel()
	}
	if t.allocCancel != nil {
		t.allocCancel()
	}
	t.tabCtx = nil
	t.tabCancel = nil
	t.allocCancel = nil
	t.loaded = false
}
