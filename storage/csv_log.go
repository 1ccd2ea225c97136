package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"sublet-scraper/models"
)

// csvHeader is the fixed column order of every tabular log file.
var csvHeader = []string{
	"date_scraped", "link", "price", "rooms", "separate_bath",
	"separate_kitchen", "furnished", "neighborhood", "start_date",
	"num_images", "has_watermark", "description", "housing_type",
	"rent_period", "parking", "amenities",
}

// TabularLog is the rotated CSV projection of the keyed store. Files are
// named <prefix>_<YYYY>_<MM>_<DD>.csv; rotation is entry-count driven (a
// file may span several days while under the limit) but today's dated file,
// once it exists, always wins.
type TabularLog struct {
	dir    string
	prefix string
	limit  int

	now func() time.Time // stubbed in tests
}

// NewTabularLog returns a log writing dated CSV files under dir. limit is
// the row count at which a new dated file is started.
func NewTabularLog(dir, prefix string, limit int) *TabularLog {
	return &TabularLog{dir: dir, prefix: prefix, limit: limit, now: time.Now}
}

func (t *TabularLog) fileFor(day time.Time) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s_%s.csv", t.prefix, day.Format("2006_01_02")))
}

// listFiles returns all tabular files sorted by name. Filenames embed the
// date, so the last entry is the most recently started file.
func (t *TabularLog) listFiles() ([]string, error) {
	pattern := filepath.Join(t.dir, t.prefix+"_*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("tabular log: glob %q: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// activeFile applies the rotation policy: today's file if it exists, else
// today's file when the log is empty or the newest file is full, else the
// newest existing file.
func (t *TabularLog) activeFile() (string, error) {
	today := t.fileFor(t.now())

	files, err := t.listFiles()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return today, nil
	}
	for _, f := range files {
		if f == today {
			return today, nil
		}
	}

	newest := files[len(files)-1]
	rows, err := t.rowCount(newest)
	if err != nil {
		// Unreadable file: start fresh rather than fail the write.
		return today, nil
	}
	if rows >= t.limit {
		return today, nil
	}
	return newest, nil
}

// rowCount returns the number of data rows (excluding the header).
func (t *TabularLog) rowCount(path string) (int, error) {
	rows, err := t.readAll(path)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// readAll returns the data rows of path, excluding the header.
func (t *TabularLog) readAll(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tabular log: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tabular log: read %q: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[1:], nil
}

// Append writes one record to the active file, creating it with a header
// row when needed. Existing files are fully reloaded and rewritten; the log
// is single-writer by design.
func (t *TabularLog) Append(rec *models.ListingRecord) error {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return fmt.Errorf("tabular log: create dir: %w", err)
	}

	path, err := t.activeFile()
	if err != nil {
		return err
	}

	var rows [][]string
	if _, statErr := os.Stat(path); statErr == nil {
		rows, err = t.readAll(path)
		if err != nil {
			return err
		}
	}
	rows = append(rows, recordRow(rec))

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("tabular log: create %q: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("tabular log: write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("tabular log: write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("tabular log: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("tabular log: close %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("tabular log: rename %q: %w", tmp, err)
	}
	return nil
}

// recordRow flattens a record into the csvHeader column order. Amenities
// are joined with "; ".
func recordRow(rec *models.ListingRecord) []string {
	return []string{
		rec.DateScraped,
		rec.Link,
		optionalInt(rec.Price),
		optionalInt(rec.Rooms),
		strconv.FormatBool(rec.SeparateBath),
		strconv.FormatBool(rec.SeparateKitchen),
		strconv.FormatBool(rec.Furnished),
		rec.Neighborhood,
		rec.StartDate,
		strconv.Itoa(rec.NumImages),
		strconv.FormatBool(rec.HasWatermark),
		rec.Description,
		rec.HousingType,
		rec.RentPeriod,
		rec.Parking,
		strings.Join(rec.Amenities, "; "),
	}
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// FileStats summarizes every tabular file: row count, scrape-date range and
// size on disk.
func (t *TabularLog) FileStats() ([]models.FileStats, error) {
	files, err := t.listFiles()
	if err != nil {
		return nil, err
	}

	var stats []models.FileStats
	for _, path := range files {
		rows, err := t.readAll(path)
		if err != nil {
			return nil, err
		}

		fs := models.FileStats{Path: path, Entries: len(rows)}
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			d := row[0]
			if fs.FirstScrape == "" || d < fs.FirstScrape {
				fs.FirstScrape = d
			}
			if d > fs.LastScrape {
				fs.LastScrape = d
			}
		}
		if info, err := os.Stat(path); err == nil {
			fs.SizeBytes = info.Size()
		}
		stats = append(stats, fs)
	}
	return stats, nil
}
