package models

// ListingRecord is the structured extraction of one Craigslist listing.
// Every field except Link and DateScraped is best-effort: extraction that
// cannot find a field leaves it at its zero/absent value.
type ListingRecord struct {
	// Link is the canonical listing URL and the keyed store's key. It is
	// serialized into CSV rows but omitted from keyed-store values, where
	// the key already carries it.
	Link string `json:"-"`

	DateScraped     string   `json:"date_scraped"`
	Price           *int     `json:"price"`
	Rooms           *int     `json:"rooms"`
	SeparateBath    bool     `json:"separate_bath"`
	SeparateKitchen bool     `json:"separate_kitchen"`
	Furnished       bool     `json:"furnished"`
	Neighborhood    string   `json:"neighborhood,omitempty"`
	StartDate       string   `json:"start_date,omitempty"`
	NumImages       int      `json:"num_images"`
	HasWatermark    bool     `json:"has_watermark"`
	Description     string   `json:"description,omitempty"`
	HousingType     string   `json:"housing_type,omitempty"`
	RentPeriod      string   `json:"rent_period,omitempty"`
	Parking         string   `json:"parking,omitempty"`
	Amenities       []string `json:"amenities,omitempty"`
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int { return &v }

// Outcome is the result of running one URL through the pipeline.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeDuplicate
	OutcomeFetchFailed
	OutcomeParseFailed
	OutcomeStoreFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeParseFailed:
		return "parse_failed"
	case OutcomeStoreFailed:
		return "store_failed"
	}
	return "unknown"
}

// FileStats describes one tabular log file.
type FileStats struct {
	Path        string
	Entries     int
	FirstScrape string
	LastScrape  string
	SizeBytes   int64
}

// StoreStats aggregates the keyed store plus all tabular files.
type StoreStats struct {
	TotalListings int
	MinPrice      int
	MaxPrice      int
	AveragePrice  float64
	WithImages    int
	Files         []FileStats
}
