// Package scraper collects listings from marketplace result pages and feeds.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bike_monitor/internal/model"
)

const (
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes = 5 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// PageFetcher returns the HTML of a page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// HTTPFetcher downloads pages with a plain HTTP client. It is enough for
// sites that render results server side.
type HTTPFetcher struct {
	client HTTPClient
}

// NewHTTPFetcher creates an HTTPFetcher using client.
func NewHTTPFetcher(client HTTPClient) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// FetchPage downloads url and returns its body.
func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	body, err := get(ctx, f.client, url, "text/html")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func get(ctx context.Context, client HTTPClient, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "nl-BE,nl;q=0.9,en;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

var pageSegment = regexp.MustCompile(`/p/\d+`)

// PageURL returns the URL of result page n of a search. Page 1 is the search
// URL itself; later pages use a "/p/N/" path segment placed before any
// fragment.
func PageURL(base string, n int) string {
	if n <= 1 {
		return base
	}
	if pageSegment.MatchString(base) {
		return pageSegment.ReplaceAllString(base, "/p/"+strconv.Itoa(n))
	}
	if path, fragment, ok := strings.Cut(base, "#"); ok {
		return fmt.Sprintf("%s/p/%d/#%s", strings.TrimRight(path, "/"), n, fragment)
	}
	return fmt.Sprintf("%s/p/%d/", strings.TrimRight(base, "/"), n)
}

// HTMLSource scrapes paginated marketplace result pages.
type HTMLSource struct {
	pages PageFetcher
	delay time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// NewHTMLSource creates an HTMLSource that loads pages through pages and
// waits delay between consecutive pages.
func NewHTMLSource(pages PageFetcher, delay time.Duration, log *slog.Logger) *HTMLSource {
	return &HTMLSource{
		pages: pages,
		delay: delay,
		log:   log,
		now:   time.Now,
	}
}

// Scrape collects the listings of up to pages result pages starting at url.
// It stops early on an empty page. A failure on the first page is returned;
// later failures end the scrape with what was collected so far.
func (s *HTMLSource) Scrape(ctx context.Context, url string, pages int) ([]model.Listing, error) {
	if pages < 1 {
		pages = 1
	}

	var all []model.Listing
	for n := 1; n <= pages; n++ {
		pageURL := PageURL(url, n)
		html, err := s.pages.FetchPage(ctx, pageURL)
		if err != nil {
			if n == 1 {
				return nil, fmt.Errorf("fetch page %d: %w", n, err)
			}
			s.log.Warn("fetch result page failed, stopping", "page", n, "url", pageURL, "error", err)
			break
		}

		listings, err := ParseResults(strings.NewReader(html), pageURL, s.now())
		if err != nil {
			if n == 1 {
				return nil, fmt.Errorf("parse page %d: %w", n, err)
			}
			s.log.Warn("parse result page failed, stopping", "page", n, "error", err)
			break
		}
		s.log.Debug("result page scraped", "page", n, "listings", len(listings))
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)

		if n < pages && !sleep(ctx, s.delay) {
			return all, ctx.Err()
		}
	}
	return all, nil
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
