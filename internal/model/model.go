// Package model defines the domain types used across the application.
package model

import "time"

// Footprint is the minimal, identity-bearing record of a listing.
// Two footprints with the same Href are the same listing.
type Footprint struct {
	Title       string
	Price       string
	Href        string
	FirstSeenAt time.Time
}

// Listing is a classified ad as scraped from a search result page.
type Listing struct {
	Title       string
	Price       string
	Href        string
	Seller      string
	Location    string
	PostedDate  string
	Attributes  []string
	Description string
	Image       string
	ScrapedAt   time.Time
}

// Footprint returns the identity-bearing subset of the listing.
func (l Listing) Footprint() Footprint {
	return Footprint{
		Title:       l.Title,
		Price:       l.Price,
		Href:        l.Href,
		FirstSeenAt: l.ScrapedAt,
	}
}

// Spec is a single label/value pair from a listing's specification table.
type Spec struct {
	Label string
	Value string
}

// Detail holds information that is only available on a listing's own page.
type Detail struct {
	PostedAt       *time.Time
	SellerName     string
	SellerType     string
	YearsActive    string
	City           string
	Description    string
	Specifications []Spec
	Images         []string
	Views          int
	Favorites      int
}

// NotificationStatus describes what happened to a processed listing.
type NotificationStatus string

// Supported notification statuses.
const (
	NotificationSent       NotificationStatus = "sent"
	NotificationFailed     NotificationStatus = "failed"
	NotificationSkipped    NotificationStatus = "skipped"
	NotificationSuppressed NotificationStatus = "suppressed"
)

// Notification records the outcome of processing one new listing.
type Notification struct {
	ID        int64
	Monitor   string
	Href      string
	Title     string
	Status    NotificationStatus
	Reason    string
	CreatedAt time.Time
}

// CycleReport summarises a single scrape-and-notify cycle of a monitor.
type CycleReport struct {
	StartedAt  time.Time
	Duration   time.Duration
	Scraped    int
	Known      int
	Duplicates int
	Invalid    int
	New        int
	Notified   int
	Skipped    int
	Failed     int
	Seeded     bool
	Suppressed bool
	Err        error
}

// WindowStats summarises the prices and brands of the listings a monitor
// remembers.
type WindowStats struct {
	Size         int
	WithPrice    int
	WithoutPrice int
	AveragePrice float64
	MinPrice     float64
	MaxPrice     float64
	Brands       map[string]int
}

// MonitorStatus is a point-in-time view of a monitor for status reporting.
type MonitorStatus struct {
	Name       string
	URL        string
	Paused     bool
	Stage      string
	WindowSize int
	Capacity   int
	Stats      WindowStats
	LastReport *CycleReport

	// Sent is the number of notifications delivered since the history
	// began, filled in from the notification log.
	Sent int
}
