package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"bike_monitor/internal/config"
	"bike_monitor/internal/model"
	"bike_monitor/internal/scraper"
	"bike_monitor/internal/storage"
	"bike_monitor/internal/window"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadMonitors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "race.json", `{"url": "https://www.2dehands.be/l/racefietsen/"}`)
	writeFile(t, dir, "gravel.json", `{"url": "https://www.marktplaats.nl/l/gravel/"}`)
	writeFile(t, dir, "race_backup.json", `[]`)

	cfgs, err := LoadMonitors([]string{dir}, "")
	if err != nil {
		t.Fatalf("load monitors: %v", err)
	}
	var names []string
	for _, c := range cfgs {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"gravel", "race"}, names); diff != "" {
		t.Errorf("monitor names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMonitorsErrors(t *testing.T) {
	t.Run("none found", func(t *testing.T) {
		_, err := LoadMonitors([]string{t.TempDir()}, "")
		if !errors.Is(err, config.ErrInvalid) {
			t.Errorf("expected ErrInvalid, got %v", err)
		}
	})

	t.Run("duplicate names", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.json", `{"name": "race", "url": "https://www.2dehands.be/l/a/"}`)
		writeFile(t, dir, "b.json", `{"name": "race", "url": "https://www.2dehands.be/l/b/"}`)
		_, err := LoadMonitors([]string{dir}, "")
		if !errors.Is(err, config.ErrInvalid) {
			t.Errorf("expected ErrInvalid, got %v", err)
		}
	})
}

func TestClassifierSettings(t *testing.T) {
	c := config.DefaultCentral()
	c.RaceBikeCheck.Prompt = "race bike?"

	got := ClassifierSettings(c)
	if got.Model != "gpt-4o-mini" || got.Prompt != "race bike?" || got.MaxTokens != 10 {
		t.Errorf("unexpected settings: %+v", got)
	}
}

func TestSnapshotStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Monitor{Name: "race", SnapshotBackend: config.BackendFile, BackupFile: filepath.Join(dir, "data", "race_backup.json")}

	store, err := SnapshotStore(cfg, Env{})
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	fs, ok := store.(*window.FileStore)
	if !ok {
		t.Fatalf("expected *window.FileStore, got %T", store)
	}
	if fs.Path != cfg.BackupFile {
		t.Errorf("expected path %s, got %s", cfg.BackupFile, fs.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Errorf("expected snapshot directory to be created: %v", err)
	}

	cfg.BackupFile = ""
	store, err = SnapshotStore(cfg, Env{})
	if err != nil {
		t.Fatalf("empty backup file: %v", err)
	}
	if store != nil {
		t.Errorf("expected no store for an empty backup file, got %#v", store)
	}

	cfg.SnapshotBackend = config.BackendSQLite
	if _, err := SnapshotStore(cfg, Env{}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid without a database, got %v", err)
	}

	db, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	store, err = SnapshotStore(cfg, Env{Store: db})
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	if _, ok := store.(*storage.WindowStore); !ok {
		t.Errorf("expected *storage.WindowStore, got %T", store)
	}
}

func TestSources(t *testing.T) {
	log := testLogger()

	feed := &config.Monitor{Source: config.SourceFeed}
	src, details := Sources(feed, Env{}, log)
	if _, ok := src.(*scraper.FeedSource); !ok {
		t.Errorf("expected *scraper.FeedSource, got %T", src)
	}
	if details != nil {
		t.Errorf("expected no detail fetcher for feeds, got %T", details)
	}

	html := &config.Monitor{Source: config.SourceHTML, Render: config.RenderHTTP}
	src, details = Sources(html, Env{Location: time.UTC}, log)
	if _, ok := src.(*scraper.HTMLSource); !ok {
		t.Errorf("expected *scraper.HTMLSource, got %T", src)
	}
	if _, ok := details.(*scraper.DetailFetcher); !ok {
		t.Errorf("expected *scraper.DetailFetcher, got %T", details)
	}
}

func TestNewMonitorWithoutBackupFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fiets.json", `{"url": "https://www.2dehands.be/q/fiets/", "backup_file": "", "render": "http"}`)
	cfg, err := config.LoadMonitor(path)
	if err != nil {
		t.Fatalf("load monitor: %v", err)
	}
	if diff := cmp.Diff("", cfg.BackupFile); diff != "" {
		t.Fatalf("backup file (-want +got):\n%s", diff)
	}

	m, err := NewMonitor(context.Background(), cfg, Env{Location: time.UTC}, testLogger())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	if diff := cmp.Diff(0, m.Status().WindowSize); diff != "" {
		t.Errorf("window size (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if diff := cmp.Diff(1, len(entries)); diff != "" {
		t.Errorf("expected only the monitor file in %s (-want +got):\n%s", dir, diff)
	}
}

func TestNewMonitorRestoresWindow(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "race_backup.json")

	seen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := window.New(5)
	prev.AddBatch([]model.Footprint{
		{Title: "Trek Emonda", Price: "€ 1.200", Href: "https://example.com/a", FirstSeenAt: seen},
		{Title: "Canyon Ultimate", Price: "€ 2.100", Href: "https://example.com/b", FirstSeenAt: seen.Add(time.Minute)},
	})
	if err := prev.SaveFile(backup); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	cfg := &config.Monitor{
		Name:            "race",
		URL:             "https://www.2dehands.be/l/racefietsen/",
		Source:          config.SourceHTML,
		Render:          config.RenderHTTP,
		MaxBikes:        5,
		BackupFile:      backup,
		SnapshotBackend: config.BackendFile,
	}
	m, err := NewMonitor(context.Background(), cfg, Env{Location: time.UTC}, testLogger())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	st := m.Status()
	if st.Name != "race" || st.WindowSize != 2 || st.Capacity != 5 {
		t.Errorf("unexpected status: %+v", st)
	}
}
