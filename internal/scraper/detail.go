package scraper

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bike_monitor/internal/model"
)

var (
	statCount  = regexp.MustCompile(`(\d+)\s*x`)
	styleImage = regexp.MustCompile(`url\(["']?([^"')]+)["']?\)`)
)

// DetailFetcher loads and parses individual listing pages.
type DetailFetcher struct {
	pages PageFetcher
	now   func() time.Time
}

// NewDetailFetcher creates a DetailFetcher that loads pages through pages.
// Relative dates are resolved in loc.
func NewDetailFetcher(pages PageFetcher, loc *time.Location) *DetailFetcher {
	if loc == nil {
		loc = time.Local
	}
	return &DetailFetcher{
		pages: pages,
		now:   func() time.Time { return time.Now().In(loc) },
	}
}

// Fetch returns the details of the listing at href.
func (f *DetailFetcher) Fetch(ctx context.Context, href string) (model.Detail, error) {
	html, err := f.pages.FetchPage(ctx, href)
	if err != nil {
		return model.Detail{}, fmt.Errorf("fetch listing page: %w", err)
	}
	d, err := ParseDetail(strings.NewReader(html), href, f.now())
	if err != nil {
		return model.Detail{}, err
	}
	return d, nil
}

// ParseDetail extracts the details of a single listing page.
func ParseDetail(r io.Reader, pageURL string, now time.Time) (model.Detail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.Detail{}, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return model.Detail{}, fmt.Errorf("parse page url: %w", err)
	}

	d := model.Detail{
		SellerName:  text(doc.Find(".SellerInfo-name a")),
		SellerType:  attr(doc.Find(".SellerInfo-icon[title]").First(), "title"),
		City:        text(doc.Find(".SellerLocationSection-locationName")),
		Description: text(doc.Find(".Description-description")),
	}
	if d.SellerName == "" {
		d.SellerName = text(doc.Find(".SellerInfo-name"))
	}
	if d.City == "" {
		d.City = text(doc.Find(".SellerInfo-rowWithIcon"))
	}
	doc.Find(".SellerInfo-row").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := text(s); strings.Contains(strings.ToLower(t), "jaar") {
			d.YearsActive = t
			return false
		}
		return true
	})

	if t, ok := postedAt(doc, now); ok {
		d.PostedAt = &t
	}

	doc.Find(".Attributes-item").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSuffix(text(s.Find(".Attributes-label")), ":")
		value := text(s.Find(".Attributes-value"))
		if label != "" && value != "" {
			d.Specifications = append(d.Specifications, model.Spec{Label: label, Value: value})
		}
	})

	doc.Find(".Report-stat").Each(func(_ int, s *goquery.Selection) {
		t := strings.ToLower(text(s))
		m := statCount.FindStringSubmatch(t)
		if m == nil {
			return
		}
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.Contains(t, "bekeken"):
			d.Views = n
		case strings.Contains(t, "bewaard"):
			d.Favorites = n
		}
	})

	seen := make(map[string]struct{})
	addImage := func(ref string) {
		if u := resolve(base, ref); u != "" {
			if _, ok := seen[u]; !ok {
				seen[u] = struct{}{}
				d.Images = append(d.Images, u)
			}
		}
	}
	addImage(attr(doc.Find(".HeroImage-image").First(), "src"))
	doc.Find(".Thumbnails-item").Each(func(_ int, s *goquery.Selection) {
		if m := styleImage.FindStringSubmatch(attr(s, "style")); m != nil {
			addImage(m[1])
		}
	})

	return d, nil
}

// postedAt finds the posting date: first in the title of a report stat,
// then in a "Sinds ..." stat, then in any element whose title is a date.
func postedAt(doc *goquery.Document, now time.Time) (time.Time, bool) {
	var (
		found time.Time
		ok    bool
	)
	try := func(s string) bool {
		found, ok = ParseDate(s, now)
		return ok
	}

	doc.Find(".Report-stat[title]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		return !try(attr(s, "title"))
	})
	if ok {
		return found, true
	}
	doc.Find(".Report-stat").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := text(s)
		if !strings.Contains(strings.ToLower(t), "sinds") {
			return true
		}
		return !try(t)
	})
	if ok {
		return found, true
	}
	doc.Find("[title]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		return !try(attr(s, "title"))
	})
	return found, ok
}
