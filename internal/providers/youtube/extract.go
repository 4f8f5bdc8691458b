package youtube

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// VideoIDLength is the length of every YouTube video id
const VideoIDLength = 11

var (
	videoIDMarker = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]+)"`)
	videoIDChars  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// IsVideoID reports whether s has the shape of a video id
func IsVideoID(s string) bool {
	return len(s) == VideoIDLength && videoIDChars.MatchString(s)
}

// MarkerExtractor finds `"videoId":"..."` tokens in the embedded initial data
type MarkerExtractor struct{}

// ExtractFirst returns the first marker token of exactly 11 characters, in document order
func (MarkerExtractor) ExtractFirst(doc string) (string, bool) {
	for _, m := range videoIDMarker.FindAllStringSubmatch(doc, -1) {
		if len(m[1]) == VideoIDLength {
			return m[1], true
		}
	}
	return "", false
}

// AnchorExtractor finds the first /watch?v= link in the markup
type AnchorExtractor struct{}

// ExtractFirst returns the v parameter of the first watch link with a valid id
func (AnchorExtractor) ExtractFirst(doc string) (string, bool) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", false
	}

	var id string
	parsed.Find(`a[href*="/watch?v="]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		if v := u.Query().Get("v"); IsVideoID(v) {
			id = v
			return false
		}
		return true
	})

	return id, id != ""
}

// Extractor is satisfied by every extraction strategy in this package
type Extractor interface {
	ExtractFirst(doc string) (string, bool)
}

// ChainExtractor tries each extractor in order and returns the first hit
type ChainExtractor []Extractor

// DefaultExtractor reads only the embedded data marker. A page without a
// marker match has no video.
func DefaultExtractor() Extractor {
	return MarkerExtractor{}
}

// NewExtractor returns DefaultExtractor, or a chain that falls back to
// /watch?v= anchors when anchorFallback is set.
func NewExtractor(anchorFallback bool) Extractor {
	if !anchorFallback {
		return DefaultExtractor()
	}
	return ChainExtractor{MarkerExtractor{}, AnchorExtractor{}}
}

// ExtractFirst implements Extractor
func (c ChainExtractor) ExtractFirst(doc string) (string, bool) {
	for _, e := range c {
		if id, ok := e.ExtractFirst(doc); ok {
			return id, true
		}
	}
	return "", false
}
