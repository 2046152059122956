// Package reconcile decides which listings of a freshly scraped batch are new
// with respect to the rolling window.
package reconcile

import "bike_monitor/internal/model"

// Window is the read-only view of the rolling window used during reconciliation.
type Window interface {
	Contains(key string) bool
	Footprints() []model.Footprint
	Key(fp model.Footprint) string
}

// Result is the outcome of reconciling one batch.
type Result struct {
	// Listings are the truly new listings, in batch order.
	Listings []model.Listing
	// Known counts listings already present in the window.
	Known int
	// Duplicates counts listings dropped by the url safety net or because
	// they repeat an earlier listing of the same batch.
	Duplicates int
	// Invalid counts listings without an href.
	Invalid int
}

// Reconcile filters batch down to listings the window has not seen. It runs
// three stages in order: drop listings whose key is in the window, drop
// listings whose key equals that of any window member, then drop repeated
// keys within the batch keeping the first occurrence. Neither w nor batch is
// modified.
func Reconcile(w Window, batch []model.Listing) Result {
	var res Result

	survivors := make([]model.Listing, 0, len(batch))
	for _, l := range batch {
		if l.Href == "" {
			res.Invalid++
			continue
		}
		if w.Contains(w.Key(l.Footprint())) {
			res.Known++
			continue
		}
		survivors = append(survivors, l)
	}

	// The window index and its contents should agree; this pass catches
	// listings the index missed.
	if len(survivors) > 0 {
		members := make(map[string]struct{})
		for _, fp := range w.Footprints() {
			members[w.Key(fp)] = struct{}{}
		}
		kept := survivors[:0]
		for _, l := range survivors {
			if _, ok := members[w.Key(l.Footprint())]; ok {
				res.Duplicates++
				continue
			}
			kept = append(kept, l)
		}
		survivors = kept
	}

	seen := make(map[string]struct{}, len(survivors))
	for _, l := range survivors {
		k := w.Key(l.Footprint())
		if _, ok := seen[k]; ok {
			res.Duplicates++
			continue
		}
		seen[k] = struct{}{}
		res.Listings = append(res.Listings, l)
	}
	return res
}

// Footprints converts listings to the footprints merged into the window.
func Footprints(listings []model.Listing) []model.Footprint {
	out := make([]model.Footprint, len(listings))
	for i, l := range listings {
		out[i] = l.Footprint()
	}
	return out
}
