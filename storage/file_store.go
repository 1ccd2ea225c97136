package storage

import (
	"fmt"

	"sublet-scraper/models"
)

// FileStore composes the keyed JSON store and the rotated CSV log into one
// Store. The keyed store is written first and is authoritative; if the
// tabular append then fails, the keyed entry is rolled back so the two
// files cannot silently diverge.
type FileStore struct {
	keyed *KeyedStore
	log   *TabularLog
}

// NewFileStore returns a file-backed Store. jsonPath is the keyed database;
// csvDir/csvPrefix name the rotated tabular files; rotationLimit is the row
// count at which a new tabular file starts.
func NewFileStore(jsonPath, csvDir, csvPrefix string, rotationLimit int) *FileStore {
	return &FileStore{
		keyed: NewKeyedStore(jsonPath),
		log:   NewTabularLog(csvDir, csvPrefix, rotationLimit),
	}
}

func (s *FileStore) Has(url string) (bool, error) {
	return s.keyed.Has(url)
}

func (s *FileStore) Insert(rec *models.ListingRecord) error {
	if err := s.keyed.Put(rec); err != nil {
		return err
	}
	if err := s.log.Append(rec); err != nil {
		if rbErr := s.keyed.Delete(rec.Link); rbErr != nil {
			return fmt.Errorf("file store: append failed (%v) and rollback failed: %w", err, rbErr)
		}
		return fmt.Errorf("file store: tabular append: %w", err)
	}
	return nil
}

func (s *FileStore) Get(url string) (*models.ListingRecord, error) {
	return s.keyed.Get(url)
}

func (s *FileStore) All() (map[string]*models.ListingRecord, error) {
	return s.keyed.All()
}

func (s *FileStore) Stats() (*models.StoreStats, error) {
	db, err := s.keyed.All()
	if err != nil {
		return nil, err
	}

	stats := aggregate(db)

	files, err := s.log.FileStats()
	if err != nil {
		return nil, err
	}
	stats.Files = files
	return stats, nil
}

func (s *FileStore) Close() error { return nil }

// aggregate computes summary figures over the keyed store contents.
func aggregate(db map[string]*models.ListingRecord) *models.StoreStats {
	stats := &models.StoreStats{TotalListings: len(db)}

	var priced int
	var total float64
	for _, rec := range db {
		if rec.NumImages > 0 {
			stats.WithImages++
		}
		if rec.Price == nil {
			continue
		}
		p := *rec.Price
		if priced == 0 || p < stats.MinPrice {
			stats.MinPrice = p
		}
		if priced == 0 || p > stats.MaxPrice {
			stats.MaxPrice = p
		}
		total += float64(p)
		priced++
	}
	if priced > 0 {
		stats.AveragePrice = total / float64(priced)
	}
	return stats
}
