// Package bucket builds the comparable grouping keys used by the accumulators.
// Keys are plain structs so they can be used as map keys directly; a site name
// containing any separator character can never collide with another key.
package bucket

import (
	"time"
)

// HourlyKey identifies one (date, hour, band) bucket.
type HourlyKey struct {
	Date time.Time
	Hour int
	Band string
}

// WeeklyKey identifies one (week start, site, band) bucket.
type WeeklyKey struct {
	WeekStart time.Time
	Site      string
	Band      string
}

// NewHourlyKey normalises the date to UTC midnight before building the key.
func NewHourlyKey(date time.Time, hour int, band string) HourlyKey {
	return HourlyKey{Date: TruncateToDay(date, time.UTC), Hour: hour, Band: band}
}

// NewWeeklyKey keys on the Monday of the date's week.
func NewWeeklyKey(date time.Time, site, band string) WeeklyKey {
	return WeeklyKey{WeekStart: WeekStart(date), Site: site, Band: band}
}

// Less orders hourly keys by date, hour, band.
func (k HourlyKey) Less(o HourlyKey) bool {
	if !k.Date.Equal(o.Date) {
		return k.Date.Before(o.Date)
	}
	if k.Hour != o.Hour {
		return k.Hour < o.Hour
	}
	return k.Band < o.Band
}

// Less orders weekly keys by week start, site, band.
func (k WeeklyKey) Less(o WeeklyKey) bool {
	if !k.WeekStart.Equal(o.WeekStart) {
		return k.WeekStart.Before(o.WeekStart)
	}
	if k.Site != o.Site {
		return k.Site < o.Site
	}
	return k.Band < o.Band
}

// TruncateToDay returns midnight of t's calendar day in loc.
// The result is re-expressed in UTC so equal days compare equal as map keys.
func TruncateToDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday on or before d, as a UTC date.
// Sunday (weekday 0) goes back six days, every other day goes back weekday-1.
func WeekStart(d time.Time) time.Time {
	day := TruncateToDay(d, time.UTC)
	wd := int(day.Weekday())
	shift := wd - 1
	if wd == 0 {
		shift = 6
	}
	return day.AddDate(0, 0, -shift)
}

// ISOWeek returns the ISO-8601 week number (weeks start Monday, week 1 holds
// the year's first Thursday).
func ISOWeek(d time.Time) int {
	_, w := TruncateToDay(d, time.UTC).ISOWeek()
	return w
}
