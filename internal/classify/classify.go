// Package classify derives band and site tags from cell identifiers.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/awsl-project/ranstat/internal/domain"
)

// band markers embedded in NR cell names, e.g. "HNI0123_N78_1"
var bandMarkers = []struct {
	marker string
	band   string
}{
	{"_N09_", domain.Band900MHz},
	{"_N35_", domain.Band3500MHz},
	{"_N78_", domain.Band3500MHz},
}

// siteSuffixRE matches the trailing "_<band marker>_<suffix>" of a cell name.
var siteSuffixRE = regexp.MustCompile(`(?i)^(.+?)_N\d{2}_[^_]+$`)

// Band returns the display band for a cell name, or "Unknown".
func Band(cell string) string {
	upper := strings.ToUpper(cell)
	for _, m := range bandMarkers {
		if strings.Contains(upper, m.marker) {
			return m.band
		}
	}
	return domain.BandUnknown
}

// Site extracts the site name from a cell name. It returns nil for an empty identifier.
func Site(cell string) *string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	var site string
	if m := siteSuffixRE.FindStringSubmatch(cell); m != nil {
		site = m[1]
	} else {
		site, _, _ = strings.Cut(cell, "_")
	}
	if site == "" {
		return nil
	}
	return &site
}

// FreqBandCode normalises an LTE band column value ("B8", "8.0", " 8 ") to its short code.
func FreqBandCode(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "B"), "b")
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) && f >= 0 {
		return strconv.FormatInt(int64(f), 10)
	}
	if s == "" {
		return domain.BandUnknown
	}
	return s
}

var bandCodeNames = map[string]string{
	"8":  domain.Band900MHz,
	"78": domain.Band3500MHz,
}

// DisplayBand maps a stored short band code to its display name; other values pass through.
func DisplayBand(code string) string {
	if name, ok := bandCodeNames[code]; ok {
		return name
	}
	return code
}

// CanonicalBand matches a user supplied band name case-insensitively against
// the known display names; unknown names are returned trimmed.
func CanonicalBand(s string) string {
	s = strings.TrimSpace(s)
	for _, b := range []string{domain.Band900MHz, domain.Band3500MHz, domain.BandUnknown} {
		if strings.EqualFold(s, b) {
			return b
		}
	}
	return s
}

// BandCodes returns the stored codes that display as name, used to push an
// LTE band filter down to storage. A name with no mapping is its own code.
func BandCodes(name string) []string {
	name = CanonicalBand(name)
	var codes []string
	for code, display := range bandCodeNames {
		if display == name {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return []string{name}
	}
	return codes
}
