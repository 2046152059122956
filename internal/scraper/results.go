package scraper

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bike_monitor/internal/model"
)

// ListingSelector matches one organic or promoted result on a search page.
const ListingSelector = "li.hz-Listing.hz-Listing--list-item"

// Promoted results carry a long tracking payload on their cover link.
const maxTrackingLen = 200

// ParseResults extracts the listings from a search result page. Promoted
// results and results without a link are skipped; relative links are
// resolved against pageURL.
func ParseResults(r io.Reader, pageURL string, scrapedAt time.Time) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	var listings []model.Listing
	doc.Find(ListingSelector).Each(func(_ int, li *goquery.Selection) {
		link := li.Find("a.hz-Listing-coverLink").First()
		if tracking, ok := link.Attr("data-tracking"); ok && len(tracking) > maxTrackingLen {
			return
		}
		href := resolve(base, attr(link, "href"))
		if href == "" {
			return
		}

		l := model.Listing{
			Title:      text(li.Find("h3.hz-Listing-title")),
			Price:      text(li.Find(".hz-Listing-price--desktop, .hz-Listing-price--mobile")),
			Href:       href,
			Seller:     text(li.Find(".hz-Listing-seller-name")),
			Location:   text(li.Find(".hz-Listing-distance-label")),
			PostedDate: text(li.Find(".hz-Listing-date")),
			ScrapedAt:  scrapedAt,
		}
		li.Find(".hz-Listing-attributes .hz-Attribute, .hz-Listing-extended-attributes .hz-Attribute").Each(func(_ int, a *goquery.Selection) {
			if t := strings.TrimSpace(a.Text()); t != "" {
				l.Attributes = append(l.Attributes, t)
			}
		})
		l.Description = text(li.Find("p.hz-Listing-description--extended"))
		if l.Description == "" {
			l.Description = text(li.Find("p.hz-Listing-description"))
		}
		img := li.Find(".hz-Listing-image-item--main img").First()
		l.Image = attr(img, "src")
		if l.Image == "" {
			l.Image = attr(img, "data-src")
		}
		l.Image = resolve(base, l.Image)

		listings = append(listings, l)
	})
	return listings, nil
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
