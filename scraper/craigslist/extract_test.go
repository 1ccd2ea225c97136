package craigslist

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sublet-scraper/models"
)

var scrapedAt = time.Date(2025, time.May, 20, 12, 0, 0, 0, time.UTC)

const listingHTML = `<html><body>
<h1 class="postingtitle"><span class="postingtitletext">
  <span id="titletextonly">Bright room in shared flat</span> -
  <span class="price">$1,150</span> <small>(Kitsilano)</small>
</span></h1>
<div class="mapaddress">W 4th Ave at Yew St</div>
<figure class="iw"><div id="thumb">
  <a href="#"><img src="https://images.craigslist.org/a.jpg"></a>
  <a href="#"><img src="https://images.craigslist.org/b.jpg"></a>
</div></figure>
<p class="attrgroup">
  <span>2br</span><span>1ba</span><span>furnished</span>
  <span>laundry in bldg</span><span>off-street parking</span>
  <span>available june 5</span><span>monthly</span><span>apartment</span>
</p>
<section id="postingbody">Cozy two bedroom with separate kitchen. Great light.</section>
</body></html>`

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestExtractFullListing(t *testing.T) {
	rec := Extract(parseDoc(t, listingHTML), "https://vancouver.craigslist.org/van/sub/1.html", scrapedAt)

	if rec.DateScraped != "2025-05-20" {
		t.Errorf("DateScraped: got %q, want %q", rec.DateScraped, "2025-05-20")
	}
	if rec.Price == nil || *rec.Price != 1150 {
		t.Errorf("Price: got %v, want 1150", rec.Price)
	}
	if rec.Rooms == nil || *rec.Rooms != 2 {
		t.Errorf("Rooms: got %v, want 2", rec.Rooms)
	}
	if !rec.SeparateBath {
		t.Error("SeparateBath: got false, want true (1ba span)")
	}
	if !rec.SeparateKitchen {
		t.Error("SeparateKitchen: got false, want true (body fallback)")
	}
	if !rec.Furnished {
		t.Error("Furnished: got false, want true")
	}
	if rec.Neighborhood != "W 4th Ave at Yew St" {
		t.Errorf("Neighborhood: got %q", rec.Neighborhood)
	}
	if rec.StartDate != "2025-06-05" {
		t.Errorf("StartDate: got %q, want %q", rec.StartDate, "2025-06-05")
	}
	if rec.NumImages != 2 {
		t.Errorf("NumImages: got %d, want 2", rec.NumImages)
	}
	if rec.Parking != "off-street parking" {
		t.Errorf("Parking: got %q", rec.Parking)
	}
	if rec.RentPeriod != "monthly" {
		t.Errorf("RentPeriod: got %q", rec.RentPeriod)
	}
	if rec.HousingType != "apartment" {
		t.Errorf("HousingType: got %q", rec.HousingType)
	}
	if len(rec.Amenities) != 1 || rec.Amenities[0] != "laundry" {
		t.Errorf("Amenities: got %v, want [laundry]", rec.Amenities)
	}
	if rec.Description != "Bright room in shared flat" {
		t.Errorf("Description: got %q", rec.Description)
	}
}

func TestExtractBodyFallbacks(t *testing.T) {
	// No price element, no attribute groups; everything must come from the
	// body text or stay absent.
	html := `<html><body>
		<section id="postingbody">Quiet place with own bath.
		3 bedrooms total. Available March 3. Contact me.</section>
	</body></html>`

	rec := Extract(parseDoc(t, html), "https://vancouver.craigslist.org/van/sub/2.html", scrapedAt)

	if rec.Price != nil {
		t.Errorf("Price: got %d, want absent", *rec.Price)
	}
	if rec.Rooms == nil || *rec.Rooms != 3 {
		t.Errorf("Rooms: got %v, want 3", rec.Rooms)
	}
	if !rec.SeparateBath {
		t.Error("SeparateBath: got false, want true (own bath)")
	}
	if rec.SeparateKitchen {
		t.Error("SeparateKitchen: got true, want false")
	}
	if rec.StartDate != "2025-03-03" {
		t.Errorf("StartDate: got %q, want %q", rec.StartDate, "2025-03-03")
	}
	if rec.NumImages != 0 {
		t.Errorf("NumImages: got %d, want 0", rec.NumImages)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	rec := Extract(parseDoc(t, "<html><body></body></html>"), "https://x.craigslist.org/1.html", scrapedAt)

	if rec.Link != "https://x.craigslist.org/1.html" {
		t.Errorf("Link: got %q", rec.Link)
	}
	if rec.Price != nil || rec.Rooms != nil || rec.StartDate != "" || rec.Neighborhood != "" {
		t.Error("expected all optional fields absent on empty document")
	}
}

func TestApplyToken(t *testing.T) {
	tests := []struct {
		token string
		check func(*models.ListingRecord) bool
		desc  string
	}{
		{"2br", func(r *models.ListingRecord) bool { return r.Rooms != nil && *r.Rooms == 2 }, "rooms=2"},
		{"1Ba", func(r *models.ListingRecord) bool { return r.SeparateBath }, "separate bath"},
		{"private bath", func(r *models.ListingRecord) bool { return r.SeparateBath }, "separate bath"},
		{"separate kitchen", func(r *models.ListingRecord) bool { return r.SeparateKitchen }, "separate kitchen"},
		{"Furnished", func(r *models.ListingRecord) bool { return r.Furnished }, "furnished"},
		{"w/d laundry on site", func(r *models.ListingRecord) bool {
			return len(r.Amenities) == 1 && r.Amenities[0] == "laundry"
		}, "laundry amenity"},
		{"street parking", func(r *models.ListingRecord) bool { return r.Parking == "street parking" }, "parking text"},
		{"available June 5", func(r *models.ListingRecord) bool { return r.StartDate == "2025-06-05" }, "start date"},
		{"rent weekly", func(r *models.ListingRecord) bool { return r.RentPeriod == "rent weekly" }, "rent period"},
		{"condo", func(r *models.ListingRecord) bool { return r.HousingType == "condo" }, "housing type"},
		{"condos", func(r *models.ListingRecord) bool { return r.HousingType == "" }, "no housing type (inexact)"},
		{"available sometime", func(r *models.ListingRecord) bool { return r.StartDate == "" }, "unparseable date ignored"},
	}

	for _, tt := range tests {
		rec := &models.ListingRecord{}
		applyToken(rec, tt.token, scrapedAt)
		if !tt.check(rec) {
			t.Errorf("applyToken(%q): expected %s, got %+v", tt.token, tt.desc, rec)
		}
	}
}

func TestApplyTokenFirstMatchWins(t *testing.T) {
	rec := &models.ListingRecord{}
	applyToken(rec, "2br", scrapedAt)
	applyToken(rec, "4br", scrapedAt)
	if rec.Rooms == nil || *rec.Rooms != 2 {
		t.Errorf("Rooms: got %v, want 2 (first match wins)", rec.Rooms)
	}
}

func TestParseMonthDay(t *testing.T) {
	tests := []struct {
		in   string
		year int
		want string
		ok   bool
	}{
		{"june 5", 2025, "2025-06-05", true},
		{"march 3", 2025, "2025-03-03", true},
		{"jun 5", 2025, "2025-06-05", true},
		{"january 5", 2025, "2025-01-05", true}, // always the scrape year, even near year-end
		{"june 5th", 2025, "2025-06-05", true},
		{"notamonth 5", 2025, "", false},
		{"june", 2025, "", false},
		{"", 2025, "", false},
	}

	for _, tt := range tests {
		got, ok := parseMonthDay(tt.in, tt.year)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseMonthDay(%q, %d) = (%q, %v); want (%q, %v)",
				tt.in, tt.year, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractNeighborhoodFallback(t *testing.T) {
	html := `<html><body>
		<span class="postingtitletext"><span id="titletextonly">Room</span> <small>(Mount Pleasant)</small></span>
	</body></html>`

	rec := Extract(parseDoc(t, html), "https://x.craigslist.org/2.html", scrapedAt)
	if rec.Neighborhood != "Mount Pleasant" {
		t.Errorf("Neighborhood: got %q, want %q", rec.Neighborhood, "Mount Pleasant")
	}
}
