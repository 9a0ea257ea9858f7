// Package coerce turns raw spreadsheet and CSV cell text into typed values.
// Nothing here panics or returns an error for malformed input: callers get an
// explicit "missing" result and decide whether that means zero or null.
package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Number is a tri-state numeric result. The zero value is "missing".
type Number struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Number {
	return Number{Value: v, Valid: true}
}

// OrZero is the accumulator policy: a missing counter contributes nothing.
func (n Number) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// Ptr is the nullable policy: a missing value stays nil.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Parse strips thousands separators, blanks and surrounding quotes and parses
// the remainder. Non-finite results count as missing.
func Parse(raw string) Number {
	s := clean(raw)
	if s == "" {
		return Number{}
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Some(v)
}

// Float is shorthand for Parse(raw).OrZero().
func Float(raw string) float64 {
	return Parse(raw).OrZero()
}

func clean(raw string) string {
	s := strings.TrimSpace(raw)
	for len(s) >= 1 {
		trimmed := strings.Trim(s, `"'`)
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return s
}

// ExcelEpoch is day zero of the 1900 spreadsheet date system (with the leap-year bug folded in).
var ExcelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31.
const maxSerial = 2958465

var (
	slashDateRE = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
	isoDateRE   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
)

// Date returns the calendar date (UTC midnight) of a serial number, an
// M/D/YYYY[ H:MM] string or a YYYY-MM-DD[ HH:MM[:SS]] string. Any time part is dropped.
func Date(raw string) (time.Time, bool) {
	t, ok := DateTime(raw)
	if !ok {
		return time.Time{}, false
	}
	if n, isSerial := serial(raw); isSerial {
		return ExcelEpoch.AddDate(0, 0, int(math.Floor(n))), true
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// DateTime is Date with the time of day kept. Serial fractions are rounded to
// the nearest minute.
func DateTime(raw string) (time.Time, bool) {
	s := clean(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := slashDateRE.FindStringSubmatch(s); m != nil {
		return build(atoi(m[3]), atoi(m[1]), atoi(m[2]), m[4], m[5], m[6])
	}
	if m := isoDateRE.FindStringSubmatch(s); m != nil {
		return build(atoi(m[1]), atoi(m[2]), atoi(m[3]), m[4], m[5], m[6])
	}

	n, ok := serial(s)
	if !ok {
		return time.Time{}, false
	}
	days := math.Floor(n)
	minutes := math.Round((n - days) * 1440)
	return ExcelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(minutes) * time.Minute), true
}

// HasTime reports whether raw carries a time of day: an "H:MM" part on a
// string date, or a fractional serial. "45985" and "11/24/2025" do not.
func HasTime(raw string) bool {
	s := clean(raw)
	if m := slashDateRE.FindStringSubmatch(s); m != nil {
		return m[4] != ""
	}
	if m := isoDateRE.FindStringSubmatch(s); m != nil {
		return m[4] != ""
	}
	n, ok := serial(s)
	return ok && n != math.Floor(n)
}

// IsSerial reports whether raw is a spreadsheet serial date number.
func IsSerial(raw string) bool {
	_, ok := serial(raw)
	return ok
}

func serial(raw string) (float64, bool) {
	s := clean(raw)
	if strings.ContainsAny(s, "/:") {
		return 0, false
	}
	n := Parse(s)
	if !n.Valid || n.Value <= 0 || n.Value > maxSerial {
		return 0, false
	}
	return n.Value, true
}

func build(year, month, day int, hh, mm, ss string) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	var hour, minute, sec int
	if hh != "" {
		hour, minute = atoi(hh), atoi(mm)
		if ss != "" {
			sec = atoi(ss)
		}
		if hour > 23 || minute > 59 || sec > 59 {
			return time.Time{}, false
		}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	// 2/30/2025 normalizes to March; reject it
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Hour parses an hour-of-day value such as "13", "13.0" or "13:00".
func Hour(raw string) (int, bool) {
	s := clean(raw)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	n := Parse(s)
	if !n.Valid || n.Value != math.Trunc(n.Value) {
		return 0, false
	}
	h := int(n.Value)
	if h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}
