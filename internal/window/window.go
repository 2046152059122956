// Package window implements the rolling window of recently seen listings.
package window

import (
	"sort"
	"time"

	"bike_monitor/internal/model"
)

// DefaultCapacity is used when a window is created with a non-positive capacity.
const DefaultCapacity = 300

// KeyFunc extracts the deduplication key of a footprint.
type KeyFunc func(model.Footprint) string

// HrefKey identifies a listing by its URL.
func HrefKey(fp model.Footprint) string {
	return fp.Href
}

// Window is a bounded set of footprints ordered from most to least recently
// first seen. When full, the footprints seen longest ago are evicted first.
// A Window is not safe for concurrent use; each monitor owns its own.
type Window struct {
	capacity    int
	key         KeyFunc
	entries     []model.Footprint
	index       map[string]struct{}
	lastUpdated time.Time
	revision    uint64
	now         func() time.Time
}

// Option configures a Window.
type Option func(*Window)

// WithKeyFunc overrides the deduplication key.
func WithKeyFunc(fn KeyFunc) Option {
	return func(w *Window) { w.key = fn }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

// New creates an empty window holding at most capacity footprints.
func New(capacity int, opts ...Option) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	w := &Window{
		capacity: capacity,
		key:      HrefKey,
		index:    make(map[string]struct{}, capacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.lastUpdated = w.now()
	return w
}

// Contains reports whether a footprint with the given key is in the window.
func (w *Window) Contains(key string) bool {
	_, ok := w.index[key]
	return ok
}

// Add inserts fp unless a footprint with the same key is already present,
// then evicts the oldest footprints until the capacity bound holds again.
// A zero FirstSeenAt is stamped with the current time.
func (w *Window) Add(fp model.Footprint) {
	k := w.key(fp)
	if _, ok := w.index[k]; ok {
		return
	}
	if fp.FirstSeenAt.IsZero() {
		fp.FirstSeenAt = w.now()
	}

	// Entries are kept newest first; a new entry goes before any entry seen
	// at the same instant so ties are evicted in insertion order.
	i := sort.Search(len(w.entries), func(i int) bool {
		return !w.entries[i].FirstSeenAt.After(fp.FirstSeenAt)
	})
	w.entries = append(w.entries, model.Footprint{})
	copy(w.entries[i+1:], w.entries[i:])
	w.entries[i] = fp
	w.index[k] = struct{}{}

	w.evict()
	w.lastUpdated = w.now()
	w.revision++
}

// AddBatch adds each footprint in order. When two footprints share a key the
// first one wins.
func (w *Window) AddBatch(fps []model.Footprint) {
	for _, fp := range fps {
		w.Add(fp)
	}
}

// Len returns the number of footprints in the window.
func (w *Window) Len() int {
	return len(w.entries)
}

// Capacity returns the maximum number of footprints the window holds.
func (w *Window) Capacity() int {
	return w.capacity
}

// LastUpdated returns the time of the last successful insertion.
func (w *Window) LastUpdated() time.Time {
	return w.lastUpdated
}

// Revision counts successful insertions. It changes exactly when the
// window's contents do.
func (w *Window) Revision() uint64 {
	return w.revision
}

// Key returns the deduplication key of fp under this window's KeyFunc.
func (w *Window) Key(fp model.Footprint) string {
	return w.key(fp)
}

// Footprints returns a copy of the window's contents, newest first.
func (w *Window) Footprints() []model.Footprint {
	out := make([]model.Footprint, len(w.entries))
	copy(out, w.entries)
	return out
}

func (w *Window) evict() {
	for len(w.entries) > w.capacity {
		last := len(w.entries) - 1
		delete(w.index, w.key(w.entries[last]))
		w.entries[last] = model.Footprint{}
		w.entries = w.entries[:last]
	}
}
