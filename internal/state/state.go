// Package state persists the last-published watermark per
// (source, category).
package state

import "time"

// Store is the publish watermark store. Load bootstraps the backend (an
// absent state is not an error); Get reads the watermark for one key;
// Update records a new watermark after a confirmed publish.
//
// Persistence is best-effort: a failed Update is reported to the caller for
// logging but the item has already been delivered, so losing the marker only
// risks a duplicate post on a future run.
type Store interface {
	Load() error
	Get(source, category string) (time.Time, bool)
	Update(source, category string, published time.Time) error
}
