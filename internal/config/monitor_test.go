package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"bike_monitor/internal/filter"
	"bike_monitor/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadMonitorDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "racefietsen.json", `{
  "url": "https://www.2dehands.be/l/fietsen-en-brommers/fietsen-racefietsen/",
  "check_interval": 60,
  "log_file": "racefietsen.log"
}`)

	got, err := LoadMonitor(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Monitor{
		Name:            "racefietsen",
		URL:             "https://www.2dehands.be/l/fietsen-en-brommers/fietsen-racefietsen/",
		Source:          SourceHTML,
		Render:          RenderBrowser,
		MaxBikes:        300,
		InitialPages:    15,
		OngoingPages:    5,
		BackupFile:      filepath.Join("data", "racefietsen_backup.json"),
		SnapshotBackend: BackendFile,
		BurstThreshold:  20,
		OnlyToday:       true,
		FilterScope:     "all",
		RequestDelay:    1.0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadMonitor() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(time.Second, got.Delay()); diff != "" {
		t.Errorf("Delay() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMonitorOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "canyon.json", `{
  "name": "canyon-only",
  "url": "https://www.marktplaats.nl/l/fietsen/#q:canyon",
  "render": "http",
  "max_bikes": 150,
  "initial_pages": 3,
  "ongoing_pages": 1,
  "snapshot_backend": "sqlite",
  "burst_threshold": 5,
  "only_today": false,
  "seller_types": ["Particulier"],
  "min_price": 500,
  "max_price": 2500,
  "filter_scope": "title",
  "include": ["canyon"],
  "exclude": ["kinder", " "],
  "exclude_re": ["\\b4[0-9]\\s*cm"],
  "classify": true,
  "request_delay": 2.5
}`)

	got, err := LoadMonitor(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff("canyon-only", got.Name); diff != "" {
		t.Errorf("Name mismatch (-want +got):\n%s", diff)
	}
	if got.OnlyToday {
		t.Error("expected only_today=false to override the default")
	}
	if diff := cmp.Diff(2500*time.Millisecond, got.Delay()); diff != "" {
		t.Errorf("Delay() mismatch (-want +got):\n%s", diff)
	}

	want := filter.Criteria{
		Rules: []model.Filter{
			{Kind: model.FilterInclude, Scope: model.ScopeTitle, Value: "canyon"},
			{Kind: model.FilterExclude, Scope: model.ScopeTitle, Value: "kinder"},
			{Kind: model.FilterExcludeRe, Scope: model.ScopeTitle, Value: `\b4[0-9]\s*cm`},
		},
		MinPrice:    500,
		MaxPrice:    2500,
		SellerTypes: []string{"Particulier"},
	}
	if diff := cmp.Diff(want, got.Criteria()); diff != "" {
		t.Errorf("Criteria() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMonitorInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "missing url", content: `{"max_bikes": 10}`, wantErr: ErrInvalid},
		{name: "relative url", content: `{"url": "/l/fietsen"}`, wantErr: ErrInvalid},
		{name: "unknown source", content: `{"url": "https://x.be", "source": "api"}`, wantErr: ErrInvalid},
		{name: "zero capacity", content: `{"url": "https://x.be", "max_bikes": 0}`, wantErr: ErrInvalid},
		{name: "inverted price range", content: `{"url": "https://x.be", "min_price": 900, "max_price": 100}`, wantErr: ErrInvalid},
		{name: "bad regex", content: `{"url": "https://x.be", "include_re": ["[oops"]}`, wantErr: ErrInvalid},
		{name: "bad scope", content: `{"url": "https://x.be", "filter_scope": "seller"}`, wantErr: ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "m.json", tt.content)
			_, err := LoadMonitor(path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "m.json", `{"url": `)
		if _, err := LoadMonitor(path); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestFindMonitorFiles(t *testing.T) {
	dir := t.TempDir()
	configs := filepath.Join(dir, "configs")
	if err := os.Mkdir(configs, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	a := writeFile(t, configs, "a.json", `{}`)
	b := writeFile(t, configs, "b.json", `{}`)
	central := writeFile(t, configs, "centralized-config.json", `{}`)
	writeFile(t, configs, "a_backup.json", `[]`)
	writeFile(t, configs, "notes.txt", `x`)
	single := writeFile(t, dir, "single.json", `{}`)

	got, err := FindMonitorFiles([]string{configs, single, a, filepath.Join(configs, "*.json")}, central)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{a, b, single}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindMonitorFiles() mismatch (-want +got):\n%s", diff)
	}

	if _, err := FindMonitorFiles([]string{filepath.Join(dir, "missing.json")}, ""); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := FindMonitorFiles([]string{filepath.Join(dir, "*.yaml")}, ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid when nothing matches, got %v", err)
	}
}
