// Package stats folds raw counter rows into per-bucket running sums.
// Folding is the first of two phases: every row of an import is folded before
// any KPI is derived, because the ratios need fully summed denominators.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/awsl-project/ranstat/internal/bucket"
	"github.com/awsl-project/ranstat/internal/classify"
	"github.com/awsl-project/ranstat/internal/coerce"
	"github.com/awsl-project/ranstat/internal/domain"
)

// counterField binds a canonical raw field to the running sum it feeds.
type counterField struct {
	field string
	sum   func(c *domain.Counters) *float64
}

var counterFields = []counterField{
	{domain.FieldRRCConnAttempts, func(c *domain.Counters) *float64 { return &c.RRCConnAttempts }},
	{domain.FieldRRCConnSuccess, func(c *domain.Counters) *float64 { return &c.RRCConnSuccess }},
	{domain.FieldNGSigAttempts, func(c *domain.Counters) *float64 { return &c.NGSigAttempts }},
	{domain.FieldNGSigSuccess, func(c *domain.Counters) *float64 { return &c.NGSigSuccess }},
	{domain.FieldBearerSetupAttempts, func(c *domain.Counters) *float64 { return &c.BearerSetupAttempts }},
	{domain.FieldBearerSetupSuccess, func(c *domain.Counters) *float64 { return &c.BearerSetupSuccess }},
	{domain.FieldIntraHOAttempts, func(c *domain.Counters) *float64 { return &c.IntraHOAttempts }},
	{domain.FieldIntraHOSuccess, func(c *domain.Counters) *float64 { return &c.IntraHOSuccess }},
	{domain.FieldInterHOAttempts, func(c *domain.Counters) *float64 { return &c.InterHOAttempts }},
	{domain.FieldInterHOSuccess, func(c *domain.Counters) *float64 { return &c.InterHOSuccess }},
	{domain.FieldDLThpVolume, func(c *domain.Counters) *float64 { return &c.DLThpVolumeBytes }},
	{domain.FieldDLThpTime, func(c *domain.Counters) *float64 { return &c.DLThpTimeMs }},
	{domain.FieldULThpVolume, func(c *domain.Counters) *float64 { return &c.ULThpVolumeUnits }},
	{domain.FieldULThpTime, func(c *domain.Counters) *float64 { return &c.ULThpTimeMs }},
	{domain.FieldDLCellVolume, func(c *domain.Counters) *float64 { return &c.DLCellVolumeBytes }},
	{domain.FieldDLCellTime, func(c *domain.Counters) *float64 { return &c.DLCellTimeMs }},
	{domain.FieldDLLastSlotTime, func(c *domain.Counters) *float64 { return &c.DLLastSlotTimeMs }},
	{domain.FieldDLPRBUsed, func(c *domain.Counters) *float64 { return &c.DLPRBUsed }},
	{domain.FieldDLPRBAvailable, func(c *domain.Counters) *float64 { return &c.DLPRBAvailable }},
	{domain.FieldULPRBUsed, func(c *domain.Counters) *float64 { return &c.ULPRBUsed }},
	{domain.FieldULPRBAvailable, func(c *domain.Counters) *float64 { return &c.ULPRBAvailable }},
	{domain.FieldActiveUsers, func(c *domain.Counters) *float64 { return &c.ActiveUsersSum }},
	{domain.FieldDLUnrestricted, func(c *domain.Counters) *float64 { return &c.DLUnrestrictedBytes }},
	{domain.FieldDLRestricted, func(c *domain.Counters) *float64 { return &c.DLRestrictedBytes }},
	{domain.FieldULUnrestricted, func(c *domain.Counters) *float64 { return &c.ULUnrestrictedBytes }},
	{domain.FieldULRestricted, func(c *domain.Counters) *float64 { return &c.ULRestrictedBytes }},
	{domain.FieldDLTraffic, func(c *domain.Counters) *float64 { return &c.DLTrafficBytes }},
	{domain.FieldULTraffic, func(c *domain.Counters) *float64 { return &c.ULTrafficBytes }},
	{domain.FieldDLDRBVolume, func(c *domain.Counters) *float64 { return &c.DLDRBKBytes }},
	{domain.FieldULDRBVolume, func(c *domain.Counters) *float64 { return &c.ULDRBKBytes }},
	{domain.FieldCellDowntime, func(c *domain.Counters) *float64 { return &c.CellDowntimeSec }},
	{domain.FieldPeriod, func(c *domain.Counters) *float64 { return &c.PeriodMinutes }},
	{domain.FieldAbnormalRel, func(c *domain.Counters) *float64 { return &c.AbnormalReleases }},
	{domain.FieldNormalRel, func(c *domain.Counters) *float64 { return &c.NormalReleases }},
	{domain.FieldSuccessfulChg, func(c *domain.Counters) *float64 { return &c.SuccessfulChanges }},
	{domain.FieldCtxAbnormalRel, func(c *domain.Counters) *float64 { return &c.ContextAbnormalRel }},
	{domain.FieldCtxNormalRel, func(c *domain.Counters) *float64 { return &c.ContextNormalRel }},
}

// CounterFieldNames returns the canonical names of every summed counter.
func CounterFieldNames() []string {
	names := make([]string, len(counterFields))
	for i, f := range counterFields {
		names[i] = f.field
	}
	return names
}

// CountersFrom coerces the counter fields of one record.
// Absent or malformed counters contribute zero.
func CountersFrom(rec domain.RawRecord) domain.Counters {
	c := domain.Counters{Samples: 1}
	for _, f := range counterFields {
		*f.sum(&c) = coerce.Float(rec.Get(f.field))
	}
	return c
}

// SkipError reports a row dropped from aggregation.
type SkipError struct {
	Row    int
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// recordTime resolves the bucket date and hour of a record. An explicit hour
// column wins; otherwise the hour comes from a value that carries a time of
// day, datetime column first, and the date is taken from that same instant.
// A date-only row on an hourly feed is skipped rather than put into hour 0.
func recordTime(rec domain.RawRecord, needHour bool) (time.Time, int, string) {
	rawDate := rec.Get(domain.FieldDate)
	rawDateTime := rec.Get(domain.FieldDateTime)

	var (
		date time.Time
		ok   bool
	)
	switch {
	case strings.TrimSpace(rawDate) != "":
		if date, ok = coerce.Date(rawDate); !ok {
			return time.Time{}, 0, fmt.Sprintf("invalid date %q", rawDate)
		}
	case strings.TrimSpace(rawDateTime) != "":
		dt, ok := coerce.DateTime(rawDateTime)
		if !ok {
			return time.Time{}, 0, fmt.Sprintf("invalid datetime %q", rawDateTime)
		}
		date = bucket.TruncateToDay(dt, time.UTC)
	default:
		return time.Time{}, 0, "missing date"
	}

	if !needHour {
		return date, 0, ""
	}

	if rawHour := rec.Get(domain.FieldHour); strings.TrimSpace(rawHour) != "" {
		h, ok := coerce.Hour(rawHour)
		if !ok {
			return time.Time{}, 0, fmt.Sprintf("invalid hour %q", rawHour)
		}
		return date, h, ""
	}
	// 整数 serial 的 datetime 列就是 00:00
	if strings.TrimSpace(rawDateTime) != "" && (coerce.HasTime(rawDateTime) || coerce.IsSerial(rawDateTime)) {
		if dt, ok := coerce.DateTime(rawDateTime); ok {
			return bucket.TruncateToDay(dt, time.UTC), dt.Hour(), ""
		}
	}
	if coerce.HasTime(rawDate) {
		if dt, ok := coerce.DateTime(rawDate); ok {
			return bucket.TruncateToDay(dt, time.UTC), dt.Hour(), ""
		}
	}
	return time.Time{}, 0, "missing hour"
}

// NRHourlyKey keys an NR row by date, hour and the band classified from its cell name.
func NRHourlyKey(rec domain.RawRecord) (bucket.HourlyKey, string) {
	date, hour, reason := recordTime(rec, true)
	if reason != "" {
		return bucket.HourlyKey{}, reason
	}
	return bucket.NewHourlyKey(date, hour, classify.Band(rec.Get(domain.FieldCellName))), ""
}

// LTEHourlyKey keys an LTE row by date, hour and its raw frequency band code.
func LTEHourlyKey(rec domain.RawRecord) (bucket.HourlyKey, string) {
	date, hour, reason := recordTime(rec, true)
	if reason != "" {
		return bucket.HourlyKey{}, reason
	}
	return bucket.NewHourlyKey(date, hour, classify.FreqBandCode(rec.Get(domain.FieldFreqBand))), ""
}

// SiteWeeklyKey keys an NR row by the Monday of its week, its site and its band.
// An explicit site column wins over the site parsed from the cell name.
func SiteWeeklyKey(rec domain.RawRecord) (bucket.WeeklyKey, string) {
	date, _, reason := recordTime(rec, false)
	if reason != "" {
		return bucket.WeeklyKey{}, reason
	}
	cell := rec.Get(domain.FieldCellName)
	site := strings.TrimSpace(rec.Get(domain.FieldSiteName))
	if site == "" {
		s := classify.Site(cell)
		if s == nil {
			return bucket.WeeklyKey{}, "missing cell name"
		}
		site = *s
	}
	return bucket.NewWeeklyKey(date, site, classify.Band(cell)), ""
}

// Bucket is one finished accumulator.
type Bucket[K any] struct {
	Key      K
	Counters domain.Counters
}

// SortBuckets orders buckets by key.
func SortBuckets[K Key[K]](buckets []Bucket[K]) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Key.Less(buckets[j].Key)
	})
}

// Total sums the counters of every bucket.
func Total[K any](buckets []Bucket[K]) domain.Counters {
	var total domain.Counters
	for _, b := range buckets {
		total.Add(b.Counters)
	}
	return total
}
