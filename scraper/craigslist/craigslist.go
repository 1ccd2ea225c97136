package craigslist

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/utils"
)

// Scraper harvests listing URLs from a Craigslist search page and turns
// individual listing pages into structured records.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	fetcher Fetcher
	retry   *utils.RetryConfig
	seen    *utils.URLSet
}

// New creates a ready-to-use Scraper. With cfg.RenderJS set, pages are
// rendered in headless Chrome instead of fetched directly.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	var fetcher Fetcher = NewHTTPFetcher()
	if cfg.RenderJS {
		fetcher = NewBrowserFetcher()
	}

	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		seen: utils.NewURLSet(),
	}
}

// SearchURL builds the search results URL from the configured site, area,
// category and filters.
func (s *Scraper) SearchURL() string {
	path := "/search/" + s.cfg.Category
	if s.cfg.Area != "" {
		path = "/search/" + s.cfg.Area + "/" + s.cfg.Category
	}

	u := url.URL{
		Scheme: "https",
		Host:   s.cfg.Site + ".craigslist.org",
		Path:   path,
	}

	q := url.Values{}
	if s.cfg.Query != "" {
		q.Set("query", s.cfg.Query)
	}
	if s.cfg.MaxPrice > 0 {
		q.Set("max_price", strconv.Itoa(s.cfg.MaxPrice))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Search fetches the search results page and harvests listing links.
// Links already seen in this run are dropped; the persistent duplicate
// check against the store happens later, in the pipeline.
func (s *Scraper) Search() ([]string, error) {
	searchURL := s.SearchURL()
	s.logger.Info("[craigslist] Searching: %s", searchURL)

	var body string
	err := s.retry.Do("search-page", func() error {
		b, err := s.fetcher.Fetch(searchURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("craigslist: search: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("craigslist: parse search page: %w", err)
	}

	links := s.HarvestLinks(doc)
	s.logger.Info("[craigslist] Found %d listing links", len(links))
	return links, nil
}

// HarvestLinks collects absolute listing URLs from a search results
// document, in document order, deduplicated within the run.
func (s *Scraper) HarvestLinks(doc *goquery.Document) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if !isListingURL(href) {
			return
		}
		if s.seen.Add(href) {
			links = append(links, href)
		}
	})
	return links
}

// isListingURL keeps only fully-qualified Craigslist posting URLs.
func isListingURL(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !strings.HasSuffix(u.Hostname(), ".craigslist.org") {
		return false
	}
	return strings.HasSuffix(u.Path, ".html")
}

// FetchListing retrieves the raw markup of one listing page.
func (s *Scraper) FetchListing(listingURL string) (string, error) {
	var body string
	err := s.retry.Do("listing-page", func() error {
		b, err := s.fetcher.Fetch(listingURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

// ExtractListing parses listing markup and extracts a structured record.
// The optional watermark classification runs here because it needs network
// access for the first gallery image.
func (s *Scraper) ExtractListing(body, listingURL string) (*models.ListingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("craigslist: parse listing %q: %w", listingURL, err)
	}

	rec := Extract(doc, listingURL, time.Now())

	if s.cfg.DetectWatermarks && rec.NumImages > 0 {
		if src, ok := firstImageURL(doc); ok {
			rec.HasWatermark = s.detectWatermark(src)
		}
	}
	return rec, nil
}
