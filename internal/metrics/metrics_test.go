package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"bike_monitor/internal/model"
)

func TestObserveCycle(t *testing.T) {
	m := New()

	m.ObserveCycle("racefietsen", model.CycleReport{
		Duration: 3 * time.Second,
		Scraped:  60,
		New:      4,
		Notified: 2,
		Skipped:  1,
		Failed:   1,
	}, 120)
	m.ObserveCycle("racefietsen", model.CycleReport{
		Duration:   2 * time.Second,
		Scraped:    60,
		New:        25,
		Suppressed: true,
	}, 145)
	m.ObserveCycle("racefietsen", model.CycleReport{
		Duration: time.Second,
		Err:      errors.New("timeout"),
	}, 145)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "scraped", got: testutil.ToFloat64(m.ListingsScraped.WithLabelValues("racefietsen")), want: 120},
		{name: "new", got: testutil.ToFloat64(m.ListingsNew.WithLabelValues("racefietsen")), want: 29},
		{name: "sent", got: testutil.ToFloat64(m.Notifications.WithLabelValues("racefietsen", "sent")), want: 2},
		{name: "failed", got: testutil.ToFloat64(m.Notifications.WithLabelValues("racefietsen", "failed")), want: 1},
		{name: "skipped", got: testutil.ToFloat64(m.Notifications.WithLabelValues("racefietsen", "skipped")), want: 1},
		{name: "bursts", got: testutil.ToFloat64(m.BurstsSuppressed.WithLabelValues("racefietsen")), want: 1},
		{name: "errors", got: testutil.ToFloat64(m.CycleErrors.WithLabelValues("racefietsen")), want: 1},
		{name: "window size", got: testutil.ToFloat64(m.WindowSize.WithLabelValues("racefietsen")), want: 145},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("metric mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := testutil.CollectAndCount(m.CycleDuration); got != 1 {
		t.Errorf("expected one duration series, got %d", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCycle("mtb", model.CycleReport{Scraped: 7}, 7)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{path: "/healthz", wantCode: http.StatusOK, contains: "ok"},
		{path: "/metrics", wantCode: http.StatusOK, contains: `bike_monitor_listings_scraped_total{monitor="mtb"} 7`},
		{path: "/nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("get %s: %v", tt.path, err)
			}
			defer func() { _ = resp.Body.Close() }()

			if diff := cmp.Diff(tt.wantCode, resp.StatusCode); diff != "" {
				t.Errorf("status mismatch (-want +got):\n%s", diff)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if tt.contains != "" && !strings.Contains(string(body), tt.contains) {
				t.Errorf("body missing %q, got:\n%s", tt.contains, body)
			}
		})
	}
}
