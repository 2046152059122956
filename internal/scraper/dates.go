package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dutchMonths = map[string]time.Month{
	"jan": time.January, "januari": time.January,
	"feb": time.February, "februari": time.February,
	"mrt": time.March, "maart": time.March,
	"apr": time.April, "april": time.April,
	"mei": time.May,
	"jun": time.June, "juni": time.June,
	"jul": time.July, "juli": time.July,
	"aug": time.August, "augustus": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"okt": time.October, "oktober": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	absoluteDate = regexp.MustCompile(`(\d{1,2})\s+(januari|februari|maart|april|mei|juni|juli|augustus|september|oktober|november|december|jan|feb|mrt|apr|jun|jul|aug|sept|sep|okt|nov|dec)\.?\s*'?(\d{4}|\d{2})\b(?:,?\s*(\d{1,2}):(\d{2}))?`)
	clockTime    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	daysAgo      = regexp.MustCompile(`(\d{1,2})\s+dagen?\s+geleden`)
	weeksAgo     = regexp.MustCompile(`(\d{1,2})\s+weken?\s+geleden`)
)

// ParseDate interprets a Dutch date label as shown on the marketplace, such
// as "4 sep. '25, 15:55", "Sinds 7 sep. '25", "12 okt 2025", "Vandaag" or
// "3 dagen geleden". Relative labels are resolved against now, and absolute
// dates are placed in now's location.
func ParseDate(text string, now time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, false
	}
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch {
	case strings.Contains(s, "vandaag"):
		return withClock(midnight, s), true
	case strings.Contains(s, "gisteren"):
		return withClock(midnight.AddDate(0, 0, -1), s), true
	}
	if m := daysAgo.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return midnight.AddDate(0, 0, -n), true
	}
	if m := weeksAgo.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return midnight.AddDate(0, 0, -7*n), true
	}

	m := absoluteDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month := dutchMonths[m[2]]
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	var hour, minute int
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	// time.Date normalises 31 feb into march; reject it instead.
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func withClock(day time.Time, s string) time.Time {
	m := clockTime.FindStringSubmatch(s)
	if m == nil {
		return day
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return day
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// IsToday reports whether t falls on the same calendar day as now, in now's
// location.
func IsToday(t, now time.Time) bool {
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// PostedAt parses a listing's posted-date label, which is either an RFC 3339
// timestamp (feeds) or a Dutch marketplace label.
func PostedAt(label string, now time.Time) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(label)); err == nil {
		return t.In(now.Location()), true
	}
	return ParseDate(label, now)
}
