// Package metrics exposes Prometheus metrics about monitor cycles.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bike_monitor/internal/model"
)

// Metrics holds the Prometheus collectors of the application.
type Metrics struct {
	registry *prometheus.Registry

	ListingsScraped  *prometheus.CounterVec
	ListingsNew      *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	BurstsSuppressed *prometheus.CounterVec
	CycleErrors      *prometheus.CounterVec
	WindowSize       *prometheus.GaugeVec
	CycleDuration    *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ListingsScraped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bike_monitor_listings_scraped_total",
			Help: "The total number of listings scraped.",
		}, []string{"monitor"}),
		ListingsNew: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bike_monitor_listings_new_total",
			Help: "The total number of listings not seen before.",
		}, []string{"monitor"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bike_monitor_notifications_total",
			Help: "The total number of processed new listings by outcome.",
		}, []string{"monitor", "status"}), // sent, failed, skipped
		BurstsSuppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bike_monitor_bursts_suppressed_total",
			Help: "The total number of cycles whose notifications were suppressed.",
		}, []string{"monitor"}),
		CycleErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bike_monitor_cycle_errors_total",
			Help: "The total number of cycles that failed to scrape.",
		}, []string{"monitor"}),
		WindowSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bike_monitor_window_size",
			Help: "Current number of listings remembered by a monitor.",
		}, []string{"monitor"}),
		CycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bike_monitor_cycle_duration_seconds",
			Help:    "Duration of monitor cycles.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"monitor"}),
	}
}

// ObserveCycle records the outcome of one monitor cycle.
func (m *Metrics) ObserveCycle(monitor string, r model.CycleReport, windowSize int) {
	m.CycleDuration.WithLabelValues(monitor).Observe(r.Duration.Seconds())
	m.WindowSize.WithLabelValues(monitor).Set(float64(windowSize))
	if r.Err != nil {
		m.CycleErrors.WithLabelValues(monitor).Inc()
		return
	}

	m.ListingsScraped.WithLabelValues(monitor).Add(float64(r.Scraped))
	m.ListingsNew.WithLabelValues(monitor).Add(float64(r.New))
	m.Notifications.WithLabelValues(monitor, string(model.NotificationSent)).Add(float64(r.Notified))
	m.Notifications.WithLabelValues(monitor, string(model.NotificationFailed)).Add(float64(r.Failed))
	m.Notifications.WithLabelValues(monitor, string(model.NotificationSkipped)).Add(float64(r.Skipped))
	if r.Suppressed {
		m.BurstsSuppressed.WithLabelValues(monitor).Inc()
	}
}

// Handler returns the HTTP handler serving /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}

// Serve runs the metrics HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}
