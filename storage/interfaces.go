package storage

import (
	"errors"

	"sublet-scraper/models"
)

// ErrDuplicate is returned by Insert when the listing URL is already present.
// It signals a skipped write, not a storage failure.
var ErrDuplicate = errors.New("storage: listing already present")

// Store is the persistence surface the pipeline writes through. The keyed
// mapping (URL → record) is the source of truth for duplicate detection; the
// tabular log is a derived append-style projection kept in sync by Insert.
type Store interface {
	// Has reports whether url is already recorded. A missing store is an
	// empty store, not an error.
	Has(url string) (bool, error)

	// Insert records a new listing in the keyed store and appends it to the
	// tabular log as one operation. Returns ErrDuplicate if the URL is
	// already present; any other error means neither representation gained
	// the record.
	Insert(rec *models.ListingRecord) error

	// Get returns the record for url, or nil if absent.
	Get(url string) (*models.ListingRecord, error)

	// All returns every stored record keyed by URL.
	All() (map[string]*models.ListingRecord, error)

	// Stats summarizes both representations.
	Stats() (*models.StoreStats, error)

	Close() error
}
