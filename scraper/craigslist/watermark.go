package craigslist

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Watermark heuristic: listings whose photos carry an agency watermark tend
// to have a band of near-white pixels. If more than 5% of the first gallery
// image is near-white, flag it. This is explicitly weak and is disabled by
// default (DETECT_WATERMARKS).
const (
	watermarkWhiteRatio = 0.05
	// 240 on the 0-255 scale, in the 16-bit range color.RGBA() reports.
	nearWhite = 240 * 257
)

// firstImageURL returns the src of the first gallery thumbnail.
func firstImageURL(doc *goquery.Document) (string, bool) {
	src := doc.Find("#thumb img").First().AttrOr("src", "")
	src = strings.TrimSpace(src)
	if src == "" {
		return "", false
	}
	if _, err := url.ParseRequestURI(src); err != nil {
		return "", false
	}
	return src, true
}

// detectWatermark downloads and classifies one image. Any failure means
// "no watermark" — the field is best-effort.
func (s *Scraper) detectWatermark(imageURL string) bool {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		s.logger.Warn("[craigslist] Watermark check failed for %s: %v", imageURL, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		s.logger.Warn("[craigslist] Watermark check could not decode %s: %v", imageURL, err)
		return false
	}

	return whitePixelRatio(img) > watermarkWhiteRatio
}

// whitePixelRatio reports the fraction of pixels whose grayscale value is
// near-white, using the usual luma weights.
func whitePixelRatio(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	white := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			gray := (299*r + 587*g + 114*b) / 1000
			if gray >= nearWhite {
				white++
			}
		}
	}
	return float64(white) / float64(total)
}
