package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"bike_monitor/internal/model"
)

// FeedSource reads listings from an RSS or Atom search feed.
type FeedSource struct {
	client HTTPClient
	now    func() time.Time
}

// NewFeedSource creates a FeedSource using client.
func NewFeedSource(client HTTPClient) *FeedSource {
	return &FeedSource{client: client, now: time.Now}
}

// Scrape downloads and parses the feed at url. Feeds are not paginated, so
// pages is ignored. Items without a link are dropped.
func (s *FeedSource) Scrape(ctx context.Context, url string, _ int) ([]model.Listing, error) {
	body, err := get(ctx, s.client, url, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return FeedListings(feed, s.now()), nil
}

// FeedListings converts the items of feed into listings.
func FeedListings(feed *gofeed.Feed, scrapedAt time.Time) []model.Listing {
	var listings []model.Listing
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		l := model.Listing{
			Title:       strings.TrimSpace(item.Title),
			Href:        link,
			Description: strings.TrimSpace(item.Description),
			Attributes:  item.Categories,
			ScrapedAt:   scrapedAt,
		}
		if item.PublishedParsed != nil {
			l.PostedDate = item.PublishedParsed.Format(time.RFC3339)
		}
		if item.Author != nil {
			l.Seller = item.Author.Name
		}
		if item.Image != nil {
			l.Image = item.Image.URL
		}
		if price, ok := item.Custom["price"]; ok {
			l.Price = price
		}
		listings = append(listings, l)
	}
	return listings
}
