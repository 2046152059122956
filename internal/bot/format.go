package bot

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"bike_monitor/internal/model"
	"bike_monitor/internal/scraper"
)

const (
	statusActive = "active"
	statusPaused = "paused"

	maxSpecs       = 5
	maxDescription = 300
	maxBrands      = 3
)

// FormatListing formats a new listing as an HTML Telegram message. d may be
// nil when the listing page was not loaded.
func FormatListing(l model.Listing, d *model.Detail, now time.Time) string {
	brand, ok := l.Brand()
	if !ok {
		brand = "Unknown Brand"
	}
	condition, ok := l.Condition()
	if !ok {
		condition = "Unknown Condition"
	}
	size, ok := l.FrameSize()
	if !ok {
		size = "Unknown Size"
	}
	price := l.Price
	if p, ok := l.NumericPrice(); ok {
		price = FormatEuro(p)
	}

	var b strings.Builder
	b.WriteString("🚴‍♂️ <b>New Bike Listing!</b>")
	if d != nil && d.PostedAt != nil && scraper.IsToday(*d.PostedAt, now) {
		b.WriteString(" 🆕")
	}
	b.WriteString("\n\n")
	field(&b, "Title", l.Title)
	field(&b, "Brand", brand)
	field(&b, "Price", price)
	field(&b, "Condition", condition)
	field(&b, "Size", size)
	if material, ok := l.FrameMaterial(); ok {
		field(&b, "Material", material)
	}
	field(&b, "Location", l.Location)
	field(&b, "Seller", l.Seller)
	field(&b, "Date", l.PostedDate)
	b.WriteString("\n")

	description := l.Description
	if d != nil {
		if len(d.Specifications) > 0 {
			b.WriteString("<b>Specifications:</b>\n")
			for i, s := range d.Specifications {
				if i == maxSpecs {
					break
				}
				fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(s.Label), html.EscapeString(s.Value))
			}
			b.WriteString("\n")
		}
		if d.Description != "" {
			description = d.Description
		}
	}

	if description != "" {
		fmt.Fprintf(&b, "<b>Description:</b> %s\n\n", html.EscapeString(truncate(description, maxDescription)))
	}

	if d != nil {
		if d.SellerType != "" || d.YearsActive != "" {
			if d.SellerType != "" {
				field(&b, "Seller Type", d.SellerType)
			}
			if d.YearsActive != "" {
				field(&b, "Years on Platform", d.YearsActive)
			}
			b.WriteString("\n")
		}
		var stats []string
		if d.Views > 0 {
			stats = append(stats, fmt.Sprintf("👁️ %d views", d.Views))
		}
		if d.Favorites > 0 {
			stats = append(stats, fmt.Sprintf("❤️ %d favorites", d.Favorites))
		}
		if len(stats) > 0 {
			b.WriteString(strings.Join(stats, " "))
			b.WriteString("\n\n")
		}
	}

	fmt.Fprintf(&b, "🔗 <a href=\"%s\">View Listing</a>", html.EscapeString(l.Href))
	return b.String()
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<b>%s:</b> %s\n", label, html.EscapeString(value))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// FormatEuro renders an amount as "€ 1 200.00".
func FormatEuro(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return "€ " + b.String() + "." + frac
}

// FormatStatus formats the state of every monitor for display.
func FormatStatus(statuses []model.MonitorStatus) string {
	if len(statuses) == 0 {
		return "No monitors configured."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Monitors (%d):\n", len(statuses))
	for _, s := range statuses {
		state := statusActive
		if s.Paused {
			state = statusPaused
		}
		fmt.Fprintf(&b, "\n%s [%s] %s\n", s.Name, state, s.Stage)
		fmt.Fprintf(&b, "   window: %d/%d listings\n", s.WindowSize, s.Capacity)
		if s.Sent > 0 {
			fmt.Fprintf(&b, "   notified so far: %d\n", s.Sent)
		}
		if s.Stats.WithPrice > 0 {
			fmt.Fprintf(&b, "   prices: %s avg, %s - %s (%d priced)\n",
				FormatEuro(s.Stats.AveragePrice), FormatEuro(s.Stats.MinPrice), FormatEuro(s.Stats.MaxPrice), s.Stats.WithPrice)
		}
		if brands := topBrands(s.Stats.Brands, maxBrands); brands != "" {
			fmt.Fprintf(&b, "   brands: %s\n", brands)
		}
		if r := s.LastReport; r != nil {
			if r.Err != nil {
				fmt.Fprintf(&b, "   last check %s failed: %v\n", r.StartedAt.Format("15:04"), r.Err)
				continue
			}
			fmt.Fprintf(&b, "   last check %s: %d scraped, %d new, %d notified, %d skipped\n",
				r.StartedAt.Format("15:04"), r.Scraped, r.New, r.Notified, r.Skipped)
			if r.Suppressed {
				b.WriteString("   notifications suppressed (burst)\n")
			}
		}
	}
	return b.String()
}

func topBrands(brands map[string]int, n int) string {
	names := make([]string, 0, len(brands))
	for name := range brands {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if brands[names[i]] != brands[names[j]] {
			return brands[names[i]] > brands[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %d", name, brands[name])
	}
	return strings.Join(parts, ", ")
}

// FormatRecent formats the latest processed listings, newest first.
func FormatRecent(monitor string, ns []model.Notification) string {
	if len(ns) == 0 {
		if monitor == "" {
			return "No listings processed yet."
		}
		return fmt.Sprintf("No listings processed yet for %q.", monitor)
	}
	var b strings.Builder
	if monitor == "" {
		b.WriteString("Recent listings:\n")
	} else {
		fmt.Fprintf(&b, "Recent listings for %q:\n", monitor)
	}
	for _, n := range ns {
		fmt.Fprintf(&b, "\n%s [%s] %s", n.CreatedAt.Format("01-02 15:04"), n.Status, n.Title)
		if monitor == "" {
			fmt.Fprintf(&b, " (%s)", n.Monitor)
		}
		if n.Reason != "" {
			fmt.Fprintf(&b, "\n   %s", n.Reason)
		}
		fmt.Fprintf(&b, "\n   %s\n", n.Href)
	}
	return b.String()
}

// FormatStartup formats the announcement sent when monitoring starts.
func FormatStartup(statuses []model.MonitorStatus, now time.Time) string {
	var b strings.Builder
	b.WriteString("🚴‍♂️ <b>Bike Monitor Started</b>\n\n")
	for _, s := range statuses {
		fmt.Fprintf(&b, "• <b>%s</b>: %s (window %d/%d)\n",
			html.EscapeString(s.Name), html.EscapeString(s.URL), s.WindowSize, s.Capacity)
	}
	fmt.Fprintf(&b, "\nStarted at: %s", now.Format("2006-01-02 15:04:05"))
	return b.String()
}

// FormatShutdown formats the announcement sent when monitoring stops.
func FormatShutdown(now time.Time) string {
	return fmt.Sprintf("🛑 <b>Bike Monitor Stopped</b>\n\nStopped at: %s", now.Format("2006-01-02 15:04:05"))
}
