package services

import (
	"errors"

	"sublet-scraper/models"
	"sublet-scraper/storage"
	"sublet-scraper/utils"
)

// ListingSource fetches and extracts one listing page. Satisfied by
// *craigslist.Scraper; faked in tests.
type ListingSource interface {
	FetchListing(url string) (string, error)
	ExtractListing(body, url string) (*models.ListingRecord, error)
}

// Pipeline drives one URL through duplicate check → fetch → extract →
// persist. The keyed store is always the first and authoritative write; the
// tabular projection is handled inside the store's Insert.
type Pipeline struct {
	store  storage.Store
	source ListingSource
	logger *utils.Logger
}

// NewPipeline wires a pipeline over the given store and listing source.
func NewPipeline(store storage.Store, source ListingSource, logger *utils.Logger) *Pipeline {
	return &Pipeline{store: store, source: source, logger: logger}
}

// Process runs one URL through the pipeline, short-circuiting at the first
// failure. Failures are logged here and reported as an Outcome, never
// propagated — a batch caller moves on to the next URL regardless.
func (p *Pipeline) Process(url string) (models.Outcome, *models.ListingRecord) {
	dup, err := p.store.Has(url)
	if err != nil {
		p.logger.Error("[pipeline] Duplicate check failed for %s: %v", url, err)
		return models.OutcomeStoreFailed, nil
	}
	if dup {
		p.logger.Info("[pipeline] Duplicate listing, skipping: %s", url)
		return models.OutcomeDuplicate, nil
	}

	body, err := p.source.FetchListing(url)
	if err != nil {
		p.logger.Error("[pipeline] Fetch failed for %s: %v", url, err)
		return models.OutcomeFetchFailed, nil
	}

	rec, err := p.source.ExtractListing(body, url)
	if err != nil {
		p.logger.Error("[pipeline] Parse failed for %s: %v", url, err)
		return models.OutcomeParseFailed, nil
	}

	if err := p.store.Insert(rec); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost the race against our own earlier write; treat as skipped.
			p.logger.Info("[pipeline] Already stored, skipping: %s", url)
			return models.OutcomeDuplicate, nil
		}
		p.logger.Error("[pipeline] Store failed for %s: %v", url, err)
		return models.OutcomeStoreFailed, nil
	}

	p.logger.Info("[pipeline] Stored listing: %s", url)
	return models.OutcomeInserted, rec
}

// ProcessAll runs every URL through Process and returns the records that
// were newly inserted, in input order.
func (p *Pipeline) ProcessAll(urls []string) []*models.ListingRecord {
	var inserted []*models.ListingRecord
	counts := map[models.Outcome]int{}

	for _, url := range urls {
		outcome, rec := p.Process(url)
		counts[outcome]++
		if outcome == models.OutcomeInserted {
			inserted = append(inserted, rec)
		}
	}

	p.logger.Info("[pipeline] Batch done — %d inserted, %d duplicate, %d fetch failed, %d parse failed, %d store failed",
		counts[models.OutcomeInserted], counts[models.OutcomeDuplicate],
		counts[models.OutcomeFetchFailed], counts[models.OutcomeParseFailed],
		counts[models.OutcomeStoreFailed])
	return inserted
}
