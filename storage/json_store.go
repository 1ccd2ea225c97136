package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sublet-scraper/models"
)

// KeyedStore is the canonical URL → record mapping, persisted as a single
// pretty-printed JSON object. The whole file is read and rewritten on each
// access; there is exactly one writer.
type KeyedStore struct {
	path string
}

// NewKeyedStore returns a store backed by the JSON file at path. The file is
// created lazily on the first successful Put.
func NewKeyedStore(path string) *KeyedStore {
	return &KeyedStore{path: path}
}

func (s *KeyedStore) load() (map[string]*models.ListingRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]*models.ListingRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyed store: read %q: %w", s.path, err)
	}

	db := map[string]*models.ListingRecord{}
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("keyed store: parse %q: %w", s.path, err)
	}

	// Link is the key, not part of the stored value.
	for url, rec := range db {
		rec.Link = url
	}
	return db, nil
}

func (s *KeyedStore) save(db map[string]*models.ListingRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("keyed store: create dir: %w", err)
	}

	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("keyed store: marshal: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot truncate the database.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("keyed store: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("keyed store: rename %q: %w", tmp, err)
	}
	return nil
}

// Has reports whether url is present.
func (s *KeyedStore) Has(url string) (bool, error) {
	db, err := s.load()
	if err != nil {
		return false, err
	}
	_, ok := db[url]
	return ok, nil
}

// Put inserts rec under rec.Link. Returns ErrDuplicate if the key exists;
// existing records are never overwritten.
func (s *KeyedStore) Put(rec *models.ListingRecord) error {
	db, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := db[rec.Link]; ok {
		return ErrDuplicate
	}
	db[rec.Link] = rec
	return s.save(db)
}

// Delete removes url from the store. Used to roll back a Put when the
// paired tabular append fails.
func (s *KeyedStore) Delete(url string) error {
	db, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := db[url]; !ok {
		return nil
	}
	delete(db, url)
	return s.save(db)
}

// Get returns the record for url, or nil if absent.
func (s *KeyedStore) Get(url string) (*models.ListingRecord, error) {
	db, err := s.load()
	if err != nil {
		return nil, err
	}
	return db[url], nil
}

// All returns every stored record keyed by URL.
func (s *KeyedStore) All() (map[string]*models.ListingRecord, error) {
	return s.load()
}

// SizeBytes returns the database file size, or 0 if it does not exist yet.
func (s *KeyedStore) SizeBytes() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
