package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bike_monitor/internal/filter"
	"bike_monitor/internal/model"
)

// Listing sources.
const (
	SourceHTML = "html"
	SourceFeed = "feed"
)

// Page renderers for HTML sources.
const (
	RenderBrowser = "browser"
	RenderHTTP    = "http"
)

// Snapshot backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Monitor is the configuration of one marketplace search.
type Monitor struct {
	Name            string   `mapstructure:"name"`
	URL             string   `mapstructure:"url"`
	Source          string   `mapstructure:"source"`
	Render          string   `mapstructure:"render"`
	MaxBikes        int      `mapstructure:"max_bikes"`
	InitialPages    int      `mapstructure:"initial_pages"`
	OngoingPages    int      `mapstructure:"ongoing_pages"`
	BackupFile      string   `mapstructure:"backup_file"`
	SnapshotBackend string   `mapstructure:"snapshot_backend"`
	BurstThreshold  int      `mapstructure:"burst_threshold"`
	OnlyToday       bool     `mapstructure:"only_today"`
	SellerTypes     []string `mapstructure:"seller_types"`
	MinPrice        float64  `mapstructure:"min_price"`
	MaxPrice        float64  `mapstructure:"max_price"`
	FilterScope     string   `mapstructure:"filter_scope"`
	Include         []string `mapstructure:"include"`
	Exclude         []string `mapstructure:"exclude"`
	IncludeRe       []string `mapstructure:"include_re"`
	ExcludeRe       []string `mapstructure:"exclude_re"`
	Classify        bool     `mapstructure:"classify"`
	RequestDelay    float64  `mapstructure:"request_delay"`
	InitBuffer      bool     `mapstructure:"init_buffer"`
}

// LoadMonitor reads and validates a monitor file. The monitor is named
// after the file when the file does not name it.
func LoadMonitor(path string) (*Monitor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	v.SetDefault("name", name)
	v.SetDefault("source", SourceHTML)
	v.SetDefault("render", RenderBrowser)
	v.SetDefault("max_bikes", 300)
	v.SetDefault("initial_pages", 15)
	v.SetDefault("ongoing_pages", 5)
	v.SetDefault("backup_file", filepath.Join("data", name+"_backup.json"))
	v.SetDefault("snapshot_backend", BackendFile)
	v.SetDefault("burst_threshold", 20)
	v.SetDefault("only_today", true)
	v.SetDefault("filter_scope", string(model.ScopeAll))
	v.SetDefault("request_delay", 1.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read monitor config %s: %w", path, err)
	}

	var m Monitor
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("decode monitor config %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("monitor config %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the monitor for missing or contradictory settings.
func (m *Monitor) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if m.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalid)
	}
	u, err := url.Parse(m.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q is not an http(s) URL", ErrInvalid, m.URL)
	}
	if m.Source != SourceHTML && m.Source != SourceFeed {
		return fmt.Errorf("%w: source must be %q or %q, got %q", ErrInvalid, SourceHTML, SourceFeed, m.Source)
	}
	if m.Render != RenderBrowser && m.Render != RenderHTTP {
		return fmt.Errorf("%w: render must be %q or %q, got %q", ErrInvalid, RenderBrowser, RenderHTTP, m.Render)
	}
	if m.SnapshotBackend != BackendFile && m.SnapshotBackend != BackendSQLite {
		return fmt.Errorf("%w: snapshot_backend must be %q or %q, got %q", ErrInvalid, BackendFile, BackendSQLite, m.SnapshotBackend)
	}
	if m.MaxBikes <= 0 {
		return fmt.Errorf("%w: max_bikes must be positive", ErrInvalid)
	}
	if m.InitialPages < 1 || m.OngoingPages < 1 {
		return fmt.Errorf("%w: initial_pages and ongoing_pages must be at least 1", ErrInvalid)
	}
	if m.BurstThreshold < 1 {
		return fmt.Errorf("%w: burst_threshold must be at least 1", ErrInvalid)
	}
	if m.MinPrice < 0 || m.MaxPrice < 0 || (m.MaxPrice > 0 && m.MinPrice > m.MaxPrice) {
		return fmt.Errorf("%w: invalid price range %.2f-%.2f", ErrInvalid, m.MinPrice, m.MaxPrice)
	}
	switch model.FilterScope(m.FilterScope) {
	case model.ScopeAll, model.ScopeTitle, model.ScopeContent:
	default:
		return fmt.Errorf("%w: filter_scope must be all, title or content, got %q", ErrInvalid, m.FilterScope)
	}
	for _, p := range append(append([]string{}, m.IncludeRe...), m.ExcludeRe...) {
		if err := filter.ValidateRegex(p); err != nil {
			return fmt.Errorf("%w: pattern %q: %w", ErrInvalid, p, err)
		}
	}
	if m.RequestDelay < 0 {
		return fmt.Errorf("%w: request_delay must not be negative", ErrInvalid)
	}
	return nil
}

// Criteria returns the notification criteria of the monitor.
func (m *Monitor) Criteria() filter.Criteria {
	scope := model.FilterScope(m.FilterScope)
	var rules []model.Filter
	add := func(kind model.FilterKind, values []string) {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				rules = append(rules, model.Filter{Kind: kind, Scope: scope, Value: v})
			}
		}
	}
	add(model.FilterInclude, m.Include)
	add(model.FilterExclude, m.Exclude)
	add(model.FilterIncludeRe, m.IncludeRe)
	add(model.FilterExcludeRe, m.ExcludeRe)

	return filter.Criteria{
		Rules:       rules,
		MinPrice:    m.MinPrice,
		MaxPrice:    m.MaxPrice,
		SellerTypes: m.SellerTypes,
	}
}

// Delay returns the pause between consecutive page requests.
func (m *Monitor) Delay() time.Duration {
	return time.Duration(m.RequestDelay * float64(time.Second))
}

const backupSuffix = "_backup.json"

// FindMonitorFiles expands paths into monitor files. A directory
// contributes its *.json files and a pattern its matches, window snapshots
// excluded. The centralised config file and duplicates are skipped.
func FindMonitorFiles(paths []string, centralPath string) ([]string, error) {
	centralAbs := ""
	if centralPath != "" {
		centralAbs, _ = filepath.Abs(centralPath)
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if abs == centralAbs {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err == nil && info.IsDir():
			matches, err := filepath.Glob(filepath.Join(p, "*.json"))
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", p, err)
			}
			sort.Strings(matches)
			for _, f := range matches {
				if !strings.HasSuffix(f, backupSuffix) {
					add(f)
				}
			}
		case err == nil:
			add(p)
		case strings.ContainsAny(p, "*?["):
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, fmt.Errorf("glob %s: %w", p, err)
			}
			sort.Strings(matches)
			for _, f := range matches {
				if !strings.HasSuffix(f, backupSuffix) {
					add(f)
				}
			}
		default:
			return nil, fmt.Errorf("monitor config %s: %w", p, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no monitor config files found", ErrInvalid)
	}
	return files, nil
}
