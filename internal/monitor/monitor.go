// Package monitor runs the scrape, reconcile and notify cycle of a single
// marketplace search.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"bike_monitor/internal/bot"
	"bike_monitor/internal/config"
	"bike_monitor/internal/filter"
	"bike_monitor/internal/model"
	"bike_monitor/internal/reconcile"
	"bike_monitor/internal/scraper"
	"bike_monitor/internal/window"
)

const (
	scrapeRetries = 2
	detailRetries = 1
	retryDelay    = 2 * time.Second

	lookalikeSimilarity = 0.8
)

// Scraper returns the listings currently shown by a search.
type Scraper interface {
	Scrape(ctx context.Context, url string, pages int) ([]model.Listing, error)
}

// DetailFetcher loads the page of a single listing.
type DetailFetcher interface {
	Fetch(ctx context.Context, href string) (model.Detail, error)
}

// Classifier decides whether a listing is a race bike.
type Classifier interface {
	IsRaceBike(ctx context.Context, title, description string) bool
}

// Notifier delivers a formatted message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// History records what happened to every new listing.
type History interface {
	RecordNotification(ctx context.Context, n *model.Notification) error
}

// Metrics observes finished cycles.
type Metrics interface {
	ObserveCycle(monitor string, r model.CycleReport, windowSize int)
}

// Deps are the collaborators of a Monitor. Scraper and Notifier are
// required; the others may be nil.
type Deps struct {
	Scraper    Scraper
	Details    DetailFetcher
	Classifier Classifier
	Notifier   Notifier
	History    History
	Metrics    Metrics
	Location   *time.Location
}

// Monitor watches one search and notifies about listings it has not seen.
type Monitor struct {
	cfg      *config.Monitor
	criteria filter.Criteria
	deps     Deps
	win      *window.Window
	store    window.Store
	log      *slog.Logger
	now      func() time.Time
	delay    time.Duration

	// run serialises cycles; mu guards the fields below it.
	run    sync.Mutex
	mu     sync.Mutex
	stage  Stage
	paused bool
	size   int
	stats  model.WindowStats
	last   *model.CycleReport
}

// New creates a Monitor that remembers listings in win and saves it to
// store after every cycle. store may be nil to keep the window in memory.
func New(cfg *config.Monitor, win *window.Window, store window.Store, deps Deps, log *slog.Logger) *Monitor {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	m := &Monitor{
		cfg:      cfg,
		criteria: cfg.Criteria(),
		deps:     deps,
		win:      win,
		store:    store,
		log:      log.With("monitor", cfg.Name),
		now:      time.Now,
		delay:    retryDelay,
	}
	m.size = win.Len()
	m.stats = win.Stats()
	return m
}

// Name returns the monitor's name.
func (m *Monitor) Name() string {
	return m.cfg.Name
}

// Pause stops the scheduler from running the monitor.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

// Resume undoes Pause.
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

// Paused reports whether the monitor is paused.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Stage returns the step of the cycle the monitor is in.
func (m *Monitor) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Status returns a snapshot of the monitor's state.
func (m *Monitor) Status() model.MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := model.MonitorStatus{
		Name:       m.cfg.Name,
		URL:        m.cfg.URL,
		Paused:     m.paused,
		Stage:      m.stage.String(),
		WindowSize: m.size,
		Capacity:   m.win.Capacity(),
		Stats:      m.stats,
	}
	if m.last != nil {
		r := *m.last
		st.LastReport = &r
	}
	return st
}

func (m *Monitor) setStage(s Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage = s
}

// Seed fills an empty window from the first InitialPages pages without
// notifying and saves it. It returns the number of listings added.
func (m *Monitor) Seed(ctx context.Context) (int, error) {
	m.run.Lock()
	defer m.run.Unlock()

	m.setStage(StageScraping)
	listings, err := m.scrape(ctx, m.cfg.InitialPages)
	if err != nil {
		m.setStage(StageIdle)
		return 0, err
	}
	m.setStage(StageReconciling)
	res := reconcile.Reconcile(m.win, listings)
	if m.merge(res.Listings) {
		m.persist(ctx)
	}

	size, stats := m.win.Len(), m.win.Stats()
	m.mu.Lock()
	m.stage = StageIdle
	m.size = size
	m.stats = stats
	m.mu.Unlock()

	m.log.Info("window seeded", "added", len(res.Listings), "size", size)
	return len(res.Listings), nil
}

// RunCycle scrapes the search once, notifies about new listings and
// remembers every processed listing. Failures are logged and reported, never
// returned: the window is left untouched when scraping fails.
func (m *Monitor) RunCycle(ctx context.Context) model.CycleReport {
	m.run.Lock()
	defer m.run.Unlock()

	start := m.now()
	report := model.CycleReport{StartedAt: start}
	seeding := m.win.Len() == 0
	pages := m.cfg.OngoingPages
	if seeding {
		pages = m.cfg.InitialPages
	}

	m.setStage(StageScraping)
	listings, err := m.scrape(ctx, pages)
	if err != nil {
		report.Err = err
		m.log.Error("scrape listings", "url", m.cfg.URL, "pages", pages, "error", err)
		return m.finish(report)
	}

	m.setStage(StageReconciling)
	res := reconcile.Reconcile(m.win, listings)
	report.Scraped = len(listings)
	report.Known = res.Known
	report.Duplicates = res.Duplicates
	report.Invalid = res.Invalid
	report.New = len(res.Listings)
	if !seeding && m.log.Enabled(ctx, slog.LevelDebug) {
		m.logLookalikes(res.Listings)
	}

	var changed bool
	switch {
	case seeding:
		report.Seeded = true
		changed = m.merge(res.Listings)
		m.log.Info("first run, seeding window without notifications", "listings", len(res.Listings))
	case len(res.Listings) > m.cfg.BurstThreshold:
		report.Suppressed = true
		changed = m.merge(res.Listings)
		m.log.Warn("too many new listings, suppressing notifications",
			"new", len(res.Listings), "threshold", m.cfg.BurstThreshold)
		m.recordAll(ctx, res.Listings, model.NotificationSuppressed, "burst of new listings")
	default:
		m.setStage(StageNotifying)
		processed := m.notifyAll(ctx, res.Listings, &report)
		changed = m.merge(processed)
	}

	if changed {
		m.setStage(StagePersisting)
		m.persist(ctx)
	} else {
		m.log.Debug("window unchanged, not saving")
	}
	return m.finish(report)
}

func (m *Monitor) finish(report model.CycleReport) model.CycleReport {
	report.Duration = m.now().Sub(report.StartedAt)
	size := m.win.Len()
	stats := m.win.Stats()

	m.mu.Lock()
	m.stage = StageSleeping
	m.size = size
	m.stats = stats
	m.last = &report
	m.mu.Unlock()

	if m.deps.Metrics != nil {
		m.deps.Metrics.ObserveCycle(m.cfg.Name, report, size)
	}
	if report.Err == nil {
		m.log.Info("cycle complete",
			"scraped", report.Scraped,
			"known", report.Known,
			"duplicates", report.Duplicates,
			"new", report.New,
			"notified", report.Notified,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"window", size,
			"duration", report.Duration.Round(time.Millisecond),
		)
	}
	return report
}

func (m *Monitor) scrape(ctx context.Context, pages int) ([]model.Listing, error) {
	var listings []model.Listing
	attempt := 0
	err := retry.Do(ctx, retry.WithMaxRetries(scrapeRetries, retry.NewConstant(m.delay)), func(ctx context.Context) error {
		attempt++
		got, err := m.deps.Scraper.Scrape(ctx, m.cfg.URL, pages)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			m.log.Warn("scrape attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		listings = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", m.cfg.URL, err)
	}
	return listings, nil
}

// logLookalikes notes new listings whose title closely matches a remembered
// one, usually a relisted bike. Identity stays with the href.
func (m *Monitor) logLookalikes(listings []model.Listing) {
	known := m.win.Footprints()
	for _, l := range listings {
		for _, fp := range known {
			if sim := model.TitleSimilarity(l.Title, fp.Title); sim >= lookalikeSimilarity {
				m.log.Debug("new listing resembles a known one",
					"title", l.Title, "href", l.Href, "known_href", fp.Href, "similarity", sim)
				break
			}
		}
	}
}

// merge adds the footprints of listings to the window and reports whether
// the window changed.
func (m *Monitor) merge(listings []model.Listing) bool {
	rev := m.win.Revision()
	m.win.AddBatch(reconcile.Footprints(listings))
	return m.win.Revision() != rev
}

func (m *Monitor) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.win.Persist(context.WithoutCancel(ctx), m.store); err != nil {
		m.log.Error("save window", "error", err)
	}
}

// notifyAll processes listings in order and returns those it got to before
// ctx was cancelled.
func (m *Monitor) notifyAll(ctx context.Context, listings []model.Listing, report *model.CycleReport) []model.Listing {
	for i, l := range listings {
		if ctx.Err() != nil {
			m.log.Info("cycle cancelled", "processed", i, "remaining", len(listings)-i)
			return listings[:i]
		}

		status, reason := m.process(ctx, l)
		switch status {
		case model.NotificationSent:
			report.Notified++
		case model.NotificationFailed:
			report.Failed++
		default:
			report.Skipped++
		}
		m.record(ctx, l, status, reason)
	}
	return listings
}

// process decides whether l is worth a notification and sends it.
func (m *Monitor) process(ctx context.Context, l model.Listing) (model.NotificationStatus, string) {
	now := m.now().In(m.deps.Location)

	var detail *model.Detail
	if m.deps.Details != nil {
		d, err := m.fetchDetail(ctx, l.Href)
		if err != nil {
			m.log.Warn("fetch listing details", "href", l.Href, "error", err)
		} else {
			detail = &d
		}
	}

	if m.cfg.OnlyToday {
		posted, ok := postedAt(l, detail, now)
		if !ok {
			m.log.Info("posting date unknown, skipping", "title", l.Title, "href", l.Href)
			return model.NotificationSkipped, "posting date unknown"
		}
		if !scraper.IsToday(posted, now) {
			m.log.Info("not posted today, skipping", "title", l.Title, "posted", posted.Format(time.DateOnly))
			return model.NotificationSkipped, "not posted today"
		}
	}

	if ok, reason := m.criteria.Check(l, detail); !ok {
		m.log.Info("filtered out", "title", l.Title, "reason", reason)
		return model.NotificationSkipped, reason
	}

	if m.cfg.Classify && m.deps.Classifier != nil {
		description := l.Description
		if detail != nil && detail.Description != "" {
			description = detail.Description
		}
		if !m.deps.Classifier.IsRaceBike(ctx, l.Title, description) {
			m.log.Info("not a race bike, skipping", "title", l.Title)
			return model.NotificationSkipped, "not a race bike"
		}
	}

	if err := m.deps.Notifier.Notify(ctx, bot.FormatListing(l, detail, now)); err != nil {
		m.log.Error("send notification", "title", l.Title, "href", l.Href, "error", err)
		return model.NotificationFailed, err.Error()
	}
	m.log.Info("notification sent", "title", l.Title, "href", l.Href)
	return model.NotificationSent, ""
}

var errNoDate = errors.New("posting date not found")

// fetchDetail loads the listing page, trying again once when the page fails
// to load or, for today-only monitors, shows no posting date.
func (m *Monitor) fetchDetail(ctx context.Context, href string) (model.Detail, error) {
	var detail model.Detail
	err := retry.Do(ctx, retry.WithMaxRetries(detailRetries, retry.NewConstant(m.delay)), func(ctx context.Context) error {
		d, err := m.deps.Details.Fetch(ctx, href)
		if err != nil {
			return retry.RetryableError(err)
		}
		detail = d
		if m.cfg.OnlyToday && d.PostedAt == nil {
			return retry.RetryableError(errNoDate)
		}
		return nil
	})
	if errors.Is(err, errNoDate) {
		return detail, nil
	}
	return detail, err
}

// postedAt returns when l was posted, preferring the listing page's date.
func postedAt(l model.Listing, d *model.Detail, now time.Time) (time.Time, bool) {
	if d != nil && d.PostedAt != nil {
		return *d.PostedAt, true
	}
	return scraper.PostedAt(l.PostedDate, now)
}

func (m *Monitor) record(ctx context.Context, l model.Listing, status model.NotificationStatus, reason string) {
	if m.deps.History == nil {
		return
	}
	n := &model.Notification{
		Monitor: m.cfg.Name,
		Href:    l.Href,
		Title:   l.Title,
		Status:  status,
		Reason:  reason,
	}
	if err := m.deps.History.RecordNotification(context.WithoutCancel(ctx), n); err != nil {
		m.log.Error("record notification", "href", l.Href, "error", err)
	}
}

func (m *Monitor) recordAll(ctx context.Context, listings []model.Listing, status model.NotificationStatus, reason string) {
	for _, l := range listings {
		m.record(ctx, l, status, reason)
	}
}
