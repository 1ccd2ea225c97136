package craigslist

import (
	"testing"

	"sublet-scraper/config"
	"sublet-scraper/utils"
)

func newTestScraper(t *testing.T) *Scraper {
	t.Helper()
	cfg := &config.Config{
		Site:       "vancouver",
		Area:       "van",
		Category:   "sub",
		Query:      "may sublet",
		MaxPrice:   1200,
		MaxRetries: 1,
	}
	return New(cfg, utils.NewLogger())
}

func TestSearchURL(t *testing.T) {
	s := newTestScraper(t)

	want := "https://vancouver.craigslist.org/search/van/sub?max_price=1200&query=may+sublet"
	if got := s.SearchURL(); got != want {
		t.Errorf("SearchURL() = %q; want %q", got, want)
	}
}

func TestSearchURLWithoutArea(t *testing.T) {
	s := newTestScraper(t)
	s.cfg.Area = ""
	s.cfg.Query = ""
	s.cfg.MaxPrice = 0

	want := "https://vancouver.craigslist.org/search/sub"
	if got := s.SearchURL(); got != want {
		t.Errorf("SearchURL() = %q; want %q", got, want)
	}
}

func TestHarvestLinks(t *testing.T) {
	html := `<html><body>
		<a href="https://vancouver.craigslist.org/van/sub/d/room/7701.html">listing</a>
		<a href="https://vancouver.craigslist.org/van/sub/d/room/7702.html">listing</a>
		<a href="https://vancouver.craigslist.org/van/sub/d/room/7701.html">same again</a>
		<a href="/van/sub/d/room/7703.html">relative</a>
		<a href="#map">fragment</a>
		<a href="https://example.com/not-craigslist.html">elsewhere</a>
		<a href="https://vancouver.craigslist.org/search/sub?page=2">pagination</a>
	</body></html>`

	s := newTestScraper(t)
	links := s.HarvestLinks(parseDoc(t, html))

	want := []string{
		"https://vancouver.craigslist.org/van/sub/d/room/7701.html",
		"https://vancouver.craigslist.org/van/sub/d/room/7702.html",
	}
	if len(links) != len(want) {
		t.Fatalf("HarvestLinks: got %d links %v, want %d", len(links), links, len(want))
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q; want %q", i, links[i], want[i])
		}
	}
}

func TestHarvestLinksDedupesAcrossCalls(t *testing.T) {
	html := `<html><body><a href="https://vancouver.craigslist.org/van/sub/d/1.html">x</a></body></html>`

	s := newTestScraper(t)
	first := s.HarvestLinks(parseDoc(t, html))
	second := s.HarvestLinks(parseDoc(t, html))

	if len(first) != 1 || len(second) != 0 {
		t.Errorf("expected 1 then 0 links, got %d then %d", len(first), len(second))
	}
}

func TestIsListingURL(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{"https://vancouver.craigslist.org/van/sub/d/room/1.html", true},
		{"http://sfbay.craigslist.org/sby/sub/d/2.html", true},
		{"https://vancouver.craigslist.org/search/sub", false},
		{"https://example.com/listing.html", false},
		{"/van/sub/d/3.html", false},
		{"ftp://vancouver.craigslist.org/x.html", false},
	}

	for _, tt := range tests {
		if got := isListingURL(tt.href); got != tt.want {
			t.Errorf("isListingURL(%q) = %v; want %v", tt.href, got, tt.want)
		}
	}
}
