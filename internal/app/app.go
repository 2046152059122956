// Package app assembles monitors from their configuration files.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bike_monitor/internal/classifier"
	"bike_monitor/internal/config"
	"bike_monitor/internal/monitor"
	"bike_monitor/internal/scraper"
	"bike_monitor/internal/storage"
	"bike_monitor/internal/window"
)

const httpTimeout = 30 * time.Second

// Env holds what the monitors of one process share.
type Env struct {
	Config     *config.Config
	Central    *config.Central
	Store      storage.Storage
	Notifier   monitor.Notifier
	Metrics    monitor.Metrics
	Classifier monitor.Classifier
	Location   *time.Location
	HTTP       scraper.HTTPClient
}

// LoadMonitors reads every monitor file found under paths. Names must be
// unique.
func LoadMonitors(paths []string, centralPath string) ([]*config.Monitor, error) {
	files, err := config.FindMonitorFiles(paths, centralPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no monitor files found in %v", config.ErrInvalid, paths)
	}

	seen := make(map[string]string, len(files))
	cfgs := make([]*config.Monitor, 0, len(files))
	for _, f := range files {
		m, err := config.LoadMonitor(f)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[m.Name]; ok {
			return nil, fmt.Errorf("%w: monitor %q defined in %s and %s", config.ErrInvalid, m.Name, prev, f)
		}
		seen[m.Name] = f
		cfgs = append(cfgs, m)
	}
	return cfgs, nil
}

// ClassifierSettings converts the central race bike settings.
func ClassifierSettings(c *config.Central) classifier.Settings {
	return classifier.Settings{
		Model:       c.RaceBikeCheck.Model,
		Prompt:      c.RaceBikeCheck.Prompt,
		MaxTokens:   c.RaceBikeCheck.MaxCompletionTokens,
		Temperature: c.RaceBikeCheck.Temperature,
	}
}

// NewHTTPClient returns the client used for plain page and feed requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// SnapshotStore returns where the window of cfg is saved. An empty
// backup_file keeps the file-backed window in memory only and yields a nil
// store.
func SnapshotStore(cfg *config.Monitor, env Env) (window.Store, error) {
	switch cfg.SnapshotBackend {
	case config.BackendSQLite:
		if env.Store == nil {
			return nil, fmt.Errorf("%w: monitor %q uses the sqlite snapshot backend without a database", config.ErrInvalid, cfg.Name)
		}
		return storage.NewWindowStore(env.Store, cfg.Name), nil
	default:
		if cfg.BackupFile == "" {
			return nil, nil
		}
		if dir := filepath.Dir(cfg.BackupFile); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create snapshot directory %s: %w", dir, err)
			}
		}
		return window.NewFileStore(cfg.BackupFile), nil
	}
}

// Sources returns the listing scraper of cfg and, for HTML searches, the
// fetcher of listing pages.
func Sources(cfg *config.Monitor, env Env, log *slog.Logger) (monitor.Scraper, monitor.DetailFetcher) {
	client := env.HTTP
	if client == nil {
		client = NewHTTPClient()
	}
	if cfg.Source == config.SourceFeed {
		return scraper.NewFeedSource(client), nil
	}

	var pages scraper.PageFetcher
	if cfg.Render == config.RenderBrowser {
		chrome := ""
		if env.Config != nil {
			chrome = env.Config.ChromeBin
		}
		pages = scraper.NewBrowserFetcher(chrome, log)
	} else {
		pages = scraper.NewHTTPFetcher(client)
	}
	return scraper.NewHTMLSource(pages, cfg.Delay(), log), scraper.NewDetailFetcher(scraper.NewHTTPFetcher(client), env.Location)
}

// NewMonitor restores the window of cfg and builds its Monitor.
func NewMonitor(ctx context.Context, cfg *config.Monitor, env Env, log *slog.Logger) (*monitor.Monitor, error) {
	store, err := SnapshotStore(cfg, env)
	if err != nil {
		return nil, err
	}
	if store == nil {
		log.Info("window snapshot disabled, keeping it in memory", "monitor", cfg.Name)
	}
	win := window.Restore(ctx, store, cfg.MaxBikes, log.With("monitor", cfg.Name))

	src, details := Sources(cfg, env, log)
	deps := monitor.Deps{
		Scraper:    src,
		Details:    details,
		Classifier: env.Classifier,
		Notifier:   env.Notifier,
		Metrics:    env.Metrics,
		Location:   env.Location,
	}
	if env.Store != nil {
		deps.History = env.Store
	}
	return monitor.New(cfg, win, store, deps, log), nil
}
