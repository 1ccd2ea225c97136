package craigslist

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"sublet-scraper/models"
)

var (
	// roomsPattern matches "2 bed", "3bed", "2 room" in free text.
	roomsPattern = regexp.MustCompile(`(\d+)\s*(?:bed|room)`)

	// datePatterns capture "Month Day" following an availability cue.
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`available\s+([a-z]+\s+\d{1,2})`),
		regexp.MustCompile(`starting\s+([a-z]+\s+\d{1,2})`),
		regexp.MustCompile(`from\s+([a-z]+\s+\d{1,2})`),
	}

	leadingIntPattern = regexp.MustCompile(`^(\d+)`)
	nonDigits         = regexp.MustCompile(`[^\d]`)
)

var bathTerms = []string{"private bath", "own bath", "separate bath"}
var kitchenTerms = []string{"private kitchen", "own kitchen", "separate kitchen"}

var housingTypes = map[string]bool{
	"apartment": true,
	"house":     true,
	"condo":     true,
	"townhouse": true,
	"duplex":    true,
}

// Extract builds a ListingRecord from a parsed listing document. Every
// field rule is independent and non-fatal: a rule that finds nothing leaves
// its field at the absent default and never aborts the others. Only Link
// and DateScraped are guaranteed to be set.
func Extract(doc *goquery.Document, listingURL string, scrapedAt time.Time) *models.ListingRecord {
	rec := &models.ListingRecord{
		Link:        listingURL,
		DateScraped: scrapedAt.Format("2006-01-02"),
	}

	extractTitle(doc, rec)
	extractPrice(doc, rec)
	extractNeighborhood(doc, rec)
	extractAttrGroups(doc, rec, scrapedAt)
	extractBody(doc, rec, scrapedAt)

	rec.NumImages = doc.Find("#thumb img").Length()
	return rec
}

// extractTitle seeds the description from the posting title block.
func extractTitle(doc *goquery.Document, rec *models.ListingRecord) {
	title := strings.TrimSpace(doc.Find("#titletextonly").First().Text())
	if title != "" {
		rec.Description = title
	}
}

// extractPrice reads the price element and keeps digits only.
func extractPrice(doc *goquery.Document, rec *models.ListingRecord) {
	text := doc.Find("span.price").First().Text()
	if text == "" {
		return
	}
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return
	}
	var price int
	if _, err := fmt.Sscanf(digits, "%d", &price); err == nil {
		rec.Price = models.IntPtr(price)
	}
}

// extractNeighborhood prefers the map address block, falling back to the
// parenthesized area next to the posting title.
func extractNeighborhood(doc *goquery.Document, rec *models.ListingRecord) {
	if addr := strings.TrimSpace(doc.Find("div.mapaddress").First().Text()); addr != "" {
		rec.Neighborhood = addr
		return
	}
	small := strings.TrimSpace(doc.Find("span.postingtitletext small").First().Text())
	small = strings.Trim(small, "() ")
	if small != "" {
		rec.Neighborhood = small
	}
}

// extractAttrGroups walks the short token spans of the attribute groups
// ("2br", "furnished", "available june 5", ...) and applies each token's
// rules. Matching is case-insensitive substring; the first match per
// category wins.
func extractAttrGroups(doc *goquery.Document, rec *models.ListingRecord, scrapedAt time.Time) {
	doc.Find("p.attrgroup span").Each(func(_ int, span *goquery.Selection) {
		applyToken(rec, span.Text(), scrapedAt)
	})
}

func applyToken(rec *models.ListingRecord, raw string, scrapedAt time.Time) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return
	}

	if rec.Rooms == nil && strings.Contains(token, "br") {
		if m := leadingIntPattern.FindString(token); m != "" {
			var n int
			if _, err := fmt.Sscanf(m, "%d", &n); err == nil {
				rec.Rooms = models.IntPtr(n)
			}
		}
	}

	// "ba" covers "1ba", "private bath", "separate bath" and friends.
	if !rec.SeparateBath && strings.Contains(token, "ba") {
		rec.SeparateBath = true
	}

	if !rec.SeparateKitchen && containsAny(token, kitchenTerms) {
		rec.SeparateKitchen = true
	}

	if strings.Contains(token, "furnished") {
		rec.Furnished = true
	}

	if strings.Contains(token, "laundry") {
		rec.Amenities = append(rec.Amenities, "laundry")
	}

	if rec.Parking == "" && strings.Contains(token, "parking") {
		rec.Parking = strings.TrimSpace(raw)
	}

	if rec.StartDate == "" {
		if idx := strings.Index(token, "available"); idx >= 0 {
			rest := strings.TrimSpace(token[idx+len("available"):])
			if iso, ok := parseMonthDay(rest, scrapedAt.Year()); ok {
				rec.StartDate = iso
			}
		}
	}

	if rec.RentPeriod == "" && (strings.Contains(token, "weekly") || strings.Contains(token, "monthly")) {
		rec.RentPeriod = strings.TrimSpace(raw)
	}

	if rec.HousingType == "" && housingTypes[token] {
		rec.HousingType = token
	}
}

// extractBody scans the free-text posting body with fallback patterns.
// It only fills fields the attribute groups did not already set, except the
// bath/kitchen booleans, which are OR-ed with keyword checks.
func extractBody(doc *goquery.Document, rec *models.ListingRecord, scrapedAt time.Time) {
	body := doc.Find("section#postingbody").First()
	if body.Length() == 0 {
		return
	}
	text := strings.ToLower(body.Text())

	if !rec.SeparateBath {
		rec.SeparateBath = containsAny(text, bathTerms)
	}
	if !rec.SeparateKitchen {
		rec.SeparateKitchen = containsAny(text, kitchenTerms)
	}

	if rec.Rooms == nil {
		if m := roomsPattern.FindStringSubmatch(text); m != nil {
			var n int
			if _, err := fmt.Sscanf(m[1], "%d", &n); err == nil {
				rec.Rooms = models.IntPtr(n)
			}
		}
	}

	if rec.StartDate == "" {
		for _, pattern := range datePatterns {
			m := pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if iso, ok := parseMonthDay(m[1], scrapedAt.Year()); ok {
				rec.StartDate = iso
				break
			}
		}
	}

	if rec.Description == "" {
		rec.Description = clamp(normalizeSpace(body.Text()), 500)
	}
}

// parseMonthDay turns "june 5" plus a year into an ISO date. The year is
// always the scrape-time year; a listing scraped in December that says
// "available january 5" resolves into the past, matching the source data's
// own ambiguity.
func parseMonthDay(s string, year int) (string, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return "", false
	}

	month := fields[0]
	day := strings.TrimFunc(fields[1], func(r rune) bool { return !unicode.IsDigit(r) })
	if day == "" {
		return "", false
	}

	for _, layout := range []string{"January 2 2006", "Jan 2 2006"} {
		t, err := time.Parse(layout, fmt.Sprintf("%s %s %d", month, day, year))
		if err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
