package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sublet-scraper/models"
)

// PostgresStore is the Store implementation for STORE_BACKEND=postgres.
// Unlike the file backend it writes the keyed row and the tabular projection
// row in a single transaction, so the two representations can never diverge.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, runs schema migrations and returns a
// ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			url              TEXT PRIMARY KEY,
			date_scraped     DATE        NOT NULL,
			price            INTEGER,
			rooms            INTEGER,
			separate_bath    BOOLEAN     NOT NULL DEFAULT FALSE,
			separate_kitchen BOOLEAN     NOT NULL DEFAULT FALSE,
			furnished        BOOLEAN     NOT NULL DEFAULT FALSE,
			neighborhood     TEXT        NOT NULL DEFAULT '',
			start_date       TEXT        NOT NULL DEFAULT '',
			num_images       INTEGER     NOT NULL DEFAULT 0,
			has_watermark    BOOLEAN     NOT NULL DEFAULT FALSE,
			description      TEXT        NOT NULL DEFAULT '',
			housing_type     TEXT        NOT NULL DEFAULT '',
			rent_period      TEXT        NOT NULL DEFAULT '',
			parking          TEXT        NOT NULL DEFAULT '',
			amenities        TEXT[]      NOT NULL DEFAULT '{}',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS tabular_log (
			id         SERIAL PRIMARY KEY,
			logged_on  DATE NOT NULL DEFAULT CURRENT_DATE,
			url        TEXT NOT NULL,
			date_scraped DATE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_tabular_log_day ON tabular_log(logged_on);
	`)
	return err
}

func (ps *PostgresStore) Has(url string) (bool, error) {
	var exists bool
	err := ps.db.QueryRow("SELECT EXISTS (SELECT 1 FROM listings WHERE url = $1)", url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: has: %w", err)
	}
	return exists, nil
}

func (ps *PostgresStore) Insert(rec *models.ListingRecord) error {
	tx, err := ps.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO listings (
			url, date_scraped, price, rooms, separate_bath, separate_kitchen,
			furnished, neighborhood, start_date, num_images, has_watermark,
			description, housing_type, rent_period, parking, amenities
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (url) DO NOTHING
	`,
		rec.Link, rec.DateScraped, nullableInt(rec.Price), nullableInt(rec.Rooms),
		rec.SeparateBath, rec.SeparateKitchen, rec.Furnished, rec.Neighborhood,
		rec.StartDate, rec.NumImages, rec.HasWatermark, rec.Description,
		rec.HousingType, rec.RentPeriod, rec.Parking, pq.Array(rec.Amenities),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicate
	}

	if _, err := tx.Exec(
		"INSERT INTO tabular_log (url, date_scraped) VALUES ($1, $2)",
		rec.Link, rec.DateScraped,
	); err != nil {
		return fmt.Errorf("postgres: insert log row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Get(url string) (*models.ListingRecord, error) {
	row := ps.db.QueryRow(selectColumns+" FROM listings WHERE url = $1", url)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return rec, nil
}

func (ps *PostgresStore) All() (map[string]*models.ListingRecord, error) {
	rows, err := ps.db.Query(selectColumns + " FROM listings ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("postgres: all: %w", err)
	}
	defer rows.Close()

	db := map[string]*models.ListingRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		db[rec.Link] = rec
	}
	return db, rows.Err()
}

func (ps *PostgresStore) Stats() (*models.StoreStats, error) {
	db, err := ps.All()
	if err != nil {
		return nil, err
	}
	stats := aggregate(db)

	// One FileStats entry per log day, mirroring the dated-file layout of
	// the file backend.
	rows, err := ps.db.Query(`
		SELECT to_char(logged_on, 'YYYY_MM_DD'), COUNT(*),
		       MIN(date_scraped)::text, MAX(date_scraped)::text
		FROM tabular_log
		GROUP BY logged_on
		ORDER BY logged_on
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: log stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fs models.FileStats
		if err := rows.Scan(&fs.Path, &fs.Entries, &fs.FirstScrape, &fs.LastScrape); err != nil {
			return nil, fmt.Errorf("postgres: scan log stats: %w", err)
		}
		stats.Files = append(stats.Files, fs)
	}
	return stats, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

const selectColumns = `SELECT url, date_scraped::text, price, rooms,
	separate_bath, separate_kitchen, furnished, neighborhood, start_date,
	num_images, has_watermark, description, housing_type, rent_period,
	parking, amenities`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.ListingRecord, error) {
	rec := &models.ListingRecord{}
	var price, rooms sql.NullInt64
	var amenities pq.StringArray

	err := row.Scan(
		&rec.Link, &rec.DateScraped, &price, &rooms,
		&rec.SeparateBath, &rec.SeparateKitchen, &rec.Furnished,
		&rec.Neighborhood, &rec.StartDate, &rec.NumImages, &rec.HasWatermark,
		&rec.Description, &rec.HousingType, &rec.RentPeriod, &rec.Parking,
		&amenities,
	)
	if err != nil {
		return nil, err
	}

	if price.Valid {
		rec.Price = models.IntPtr(int(price.Int64))
	}
	if rooms.Valid {
		rec.Rooms = models.IntPtr(int(rooms.Int64))
	}
	rec.Amenities = []string(amenities)
	if len(rec.Amenities) == 0 {
		rec.Amenities = nil
	}
	return rec, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
