package window

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bike_monitor/internal/model"
)

// Store persists the contents of a window between process runs.
type Store interface {
	Load(ctx context.Context) ([]model.Footprint, error)
	Save(ctx context.Context, fps []model.Footprint) error
}

// snapshotEntry is the on-disk form of a footprint. Older snapshots hold full
// listings; their extra fields are ignored.
type snapshotEntry struct {
	Title     string `json:"title"`
	Price     string `json:"price"`
	Href      string `json:"href"`
	ScrapedAt string `json:"scraped_at"`
}

// Timestamps written by earlier versions carry no zone offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// FileStore keeps a window snapshot as a JSON array in a single file.
type FileStore struct {
	Path string
	now  func() time.Time
}

// NewFileStore creates a FileStore for the snapshot at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path, now: time.Now}
}

// Load reads the snapshot. A missing file is reported as fs.ErrNotExist.
// Entries without an href are dropped; unparseable timestamps become the
// current time.
func (s *FileStore) Load(_ context.Context) ([]model.Footprint, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.Path, err)
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}

	fps := make([]model.Footprint, 0, len(entries))
	for _, e := range entries {
		if e.Href == "" {
			continue
		}
		fps = append(fps, model.Footprint{
			Title:       e.Title,
			Price:       e.Price,
			Href:        e.Href,
			FirstSeenAt: parseTimestamp(e.ScrapedAt, now),
		})
	}
	return fps, nil
}

// Save replaces the snapshot atomically: the data is written to a temporary
// file in the same directory, synced and renamed over the old snapshot.
func (s *FileStore) Save(_ context.Context, fps []model.Footprint) error {
	entries := make([]snapshotEntry, len(fps))
	for i, fp := range fps {
		entries[i] = snapshotEntry{
			Title:     fp.Title,
			Price:     fp.Price,
			Href:      fp.Href,
			ScrapedAt: fp.FirstSeenAt.Format(time.RFC3339Nano),
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func parseTimestamp(s string, now func() time.Time) time.Time {
	if s == "" {
		return now()
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return now()
}

// Restore builds a window from store. Any failure to load is logged and
// results in an empty window, so a lost or corrupt snapshot never prevents
// start-up. A nil store yields an empty window.
func Restore(ctx context.Context, store Store, capacity int, log *slog.Logger, opts ...Option) *Window {
	w := New(capacity, opts...)
	if store == nil {
		return w
	}

	fps, err := store.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("no window snapshot, starting empty")
		return w
	case err != nil:
		log.Error("load window snapshot, starting empty", "error", err)
		return w
	}

	// Snapshots list the newest first; replaying them oldest first keeps
	// the eviction order of equal timestamps.
	for i := len(fps) - 1; i >= 0; i-- {
		w.Add(fps[i])
	}
	log.Debug("window restored", "loaded", len(fps), "size", w.Len(), "capacity", w.Capacity())
	return w
}

// Persist saves the window's contents to store.
func (w *Window) Persist(ctx context.Context, store Store) error {
	return store.Save(ctx, w.Footprints())
}

// LoadFile restores a window from the JSON snapshot at path. It never fails:
// a missing or malformed file yields an empty window.
func LoadFile(path string, capacity int, log *slog.Logger) *Window {
	return Restore(context.Background(), NewFileStore(path), capacity, log)
}

// SaveFile atomically writes the window to the JSON snapshot at path.
func (w *Window) SaveFile(path string) error {
	return w.Persist(context.Background(), NewFileStore(path))
}
