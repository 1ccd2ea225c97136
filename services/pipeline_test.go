package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"sublet-scraper/models"
	"sublet-scraper/storage"
	"sublet-scraper/utils"
)

// fakeSource returns canned markup and records without any network access.
type fakeSource struct {
	fetchErr error
	parseErr error
	fetches  int
}

func (f *fakeSource) FetchListing(url string) (string, error) {
	f.fetches++
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return "<html><body></body></html>", nil
}

func (f *fakeSource) ExtractListing(body, url string) (*models.ListingRecord, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return &models.ListingRecord{
		Link:        url,
		DateScraped: "2025-05-20",
		Price:       models.IntPtr(1100),
		NumImages:   1,
	}, nil
}

func newTestPipeline(t *testing.T, source ListingSource) (*Pipeline, storage.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := storage.NewFileStore(filepath.Join(dir, "db.json"), dir, "craigslist_listings", 300)
	return NewPipeline(store, source, utils.NewLogger()), store, dir
}

func TestProcessIdempotent(t *testing.T) {
	src := &fakeSource{}
	p, _, _ := newTestPipeline(t, src)
	url := "https://vancouver.craigslist.org/van/sub/d/1.html"

	outcome, rec := p.Process(url)
	if outcome != models.OutcomeInserted {
		t.Fatalf("first Process = %v; want inserted", outcome)
	}
	if rec == nil || rec.Link != url {
		t.Fatalf("first Process record = %+v", rec)
	}

	outcome, rec = p.Process(url)
	if outcome != models.OutcomeDuplicate {
		t.Errorf("second Process = %v; want duplicate", outcome)
	}
	if rec != nil {
		t.Errorf("second Process record = %+v; want nil", rec)
	}
	if src.fetches != 1 {
		t.Errorf("fetches = %d; want 1 (duplicates short-circuit before fetch)", src.fetches)
	}
}

func TestProcessDuplicateLeavesTabularUntouched(t *testing.T) {
	src := &fakeSource{}
	p, _, dir := newTestPipeline(t, src)
	url := "https://vancouver.craigslist.org/van/sub/d/1.html"

	if outcome, _ := p.Process(url); outcome != models.OutcomeInserted {
		t.Fatalf("first Process: got %v", outcome)
	}

	files, err := filepath.Glob(filepath.Join(dir, "craigslist_listings_*.csv"))
	if err != nil || len(files) != 1 {
		t.Fatalf("tabular files: %v %v", files, err)
	}
	before, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if outcome, _ := p.Process(url); outcome != models.OutcomeDuplicate {
		t.Fatalf("second Process: got %v", outcome)
	}

	after, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Error("tabular file modified by duplicate Process")
	}
}

func TestProcessFetchFailure(t *testing.T) {
	src := &fakeSource{fetchErr: errors.New("connection refused")}
	p, store, _ := newTestPipeline(t, src)
	url := "https://vancouver.craigslist.org/van/sub/d/1.html"

	outcome, _ := p.Process(url)
	if outcome != models.OutcomeFetchFailed {
		t.Errorf("Process = %v; want fetch_failed", outcome)
	}

	has, err := store.Has(url)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if has {
		t.Error("failed fetch must not persist anything")
	}
}

func TestProcessParseFailure(t *testing.T) {
	src := &fakeSource{parseErr: errors.New("bad markup")}
	p, store, _ := newTestPipeline(t, src)

	outcome, _ := p.Process("https://x.craigslist.org/1.html")
	if outcome != models.OutcomeParseFailed {
		t.Errorf("Process = %v; want parse_failed", outcome)
	}
	if has, _ := store.Has("https://x.craigslist.org/1.html"); has {
		t.Error("failed parse must not persist anything")
	}
}

func TestProcessAllSkipsDuplicates(t *testing.T) {
	src := &fakeSource{}
	p, _, _ := newTestPipeline(t, src)

	urls := []string{
		"https://x.craigslist.org/1.html",
		"https://x.craigslist.org/1.html", // duplicate of the first
		"https://x.craigslist.org/2.html",
	}
	inserted := p.ProcessAll(urls)

	if len(inserted) != 2 {
		t.Fatalf("inserted = %d records; want 2", len(inserted))
	}
	if inserted[0].Link != urls[0] || inserted[1].Link != urls[2] {
		t.Errorf("inserted order: %s, %s", inserted[0].Link, inserted[1].Link)
	}
}

func TestProcessAllRoundTrip(t *testing.T) {
	src := &fakeSource{}
	p, store, _ := newTestPipeline(t, src)

	var urls []string
	for i := 0; i < 5; i++ {
		urls = append(urls, fmt.Sprintf("https://x.craigslist.org/%d.html", i))
	}
	p.ProcessAll(urls)

	db, err := store.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(db) != 5 {
		t.Fatalf("stored %d records; want 5", len(db))
	}
	for _, u := range urls {
		rec, err := store.Get(u)
		if err != nil || rec == nil {
			t.Errorf("Get(%s): %v, %+v", u, err, rec)
			continue
		}
		if rec.Link != u || *rec.Price != 1100 {
			t.Errorf("Get(%s): link=%q price=%v", u, rec.Link, rec.Price)
		}
	}
}
