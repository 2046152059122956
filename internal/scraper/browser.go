package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome, for result pages that
// are filled in client side.
type BrowserFetcher struct {
	execPath string
	timeout  time.Duration
	settle   time.Duration
	log      *slog.Logger
}

// NewBrowserFetcher creates a BrowserFetcher. An empty execPath lets
// FindChrome locate a browser.
func NewBrowserFetcher(execPath string, log *slog.Logger) *BrowserFetcher {
	if execPath == "" {
		execPath = FindChrome()
	}
	return &BrowserFetcher{
		execPath: execPath,
		timeout:  60 * time.Second,
		settle:   2 * time.Second,
		log:      log,
	}
}

func (f *BrowserFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(userAgent),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}
	return opts
}

// FetchPage loads url in a fresh browser and returns the rendered HTML.
// Each call starts its own browser process.
func (f *BrowserFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		f.log.Debug(fmt.Sprintf(format, args...))
	}))
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// FindChrome locates a Chrome or Chromium binary, honouring CHROME_BIN.
// It returns "" when none is found, leaving the choice to chromedp.
func FindChrome() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome-stable", "google-chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
