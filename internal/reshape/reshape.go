// Package reshape turns stored KPI records into the rows the query API returns.
package reshape

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/awsl-project/ranstat/internal/classify"
	"github.com/awsl-project/ranstat/internal/domain"
)

const dateLayout = "2006-01-02"

// Filter selects rows by date range, band and site.
type Filter = domain.KPIFilter

// HourlyRow NR/LTE 小时级 API 行
type HourlyRow struct {
	Date string `json:"date"`
	Hour int    `json:"hour"`
	Band string `json:"band"`
	domain.KPIs
}

// WeeklyRow 站点周级 API 行
type WeeklyRow struct {
	WeekStart  string `json:"weekStart"`
	WeekNumber int    `json:"weekNumber"`
	Site       string `json:"site"`
	Band       string `json:"band"`
	domain.KPIs
}

// HourlyRows reshapes NR hourly records.
func HourlyRows(records []*domain.NRHourlyKPI, f Filter) []HourlyRow {
	rows := make([]HourlyRow, 0, len(records))
	for _, r := range records {
		if !KeepHourly(f, r) {
			continue
		}
		rows = append(rows, HourlyRow{
			Date: r.Date.UTC().Format(dateLayout),
			Hour: r.Hour,
			Band: r.Band,
			KPIs: r.KPIs,
		})
	}
	sortHourly(rows)
	return rows
}

// LTERows reshapes LTE hourly records. Band codes are shown as display names,
// and the band filter matches the display name.
func LTERows(records []*domain.LTEHourlyKPI, f Filter) []HourlyRow {
	rows := make([]HourlyRow, 0, len(records))
	for _, r := range records {
		if !KeepLTE(f, r) {
			continue
		}
		band := classify.DisplayBand(r.FreqBand)
		rows = append(rows, HourlyRow{
			Date: r.Date.UTC().Format(dateLayout),
			Hour: r.Hour,
			Band: band,
			KPIs: r.KPIs,
		})
	}
	sortHourly(rows)
	return rows
}

// WeeklyRows reshapes NR site weekly records.
func WeeklyRows(records []*domain.SiteWeeklyKPI, f Filter) []WeeklyRow {
	rows := make([]WeeklyRow, 0, len(records))
	for _, r := range records {
		if !KeepWeekly(f, r) {
			continue
		}
		rows = append(rows, WeeklyRow{
			WeekStart:  r.WeekStart.UTC().Format(dateLayout),
			WeekNumber: r.WeekNumber,
			Site:       r.Site,
			Band:       r.Band,
			KPIs:       r.KPIs,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.WeekStart != b.WeekStart {
			return a.WeekStart < b.WeekStart
		}
		if a.Site != b.Site {
			return a.Site < b.Site
		}
		return a.Band < b.Band
	})
	return rows
}

// KeepHourly reports whether an NR hourly record passes the filter.
func KeepHourly(f Filter, r *domain.NRHourlyKPI) bool {
	return r != nil && f.InRange(r.Date) && bandMatch(f, r.Band)
}

// KeepLTE reports whether an LTE record passes the filter. The band filter
// matches the display name of the record's band code.
func KeepLTE(f Filter, r *domain.LTEHourlyKPI) bool {
	return r != nil && f.InRange(r.Date) && bandMatch(f, classify.DisplayBand(r.FreqBand))
}

// KeepWeekly reports whether a site weekly record passes the filter.
func KeepWeekly(f Filter, r *domain.SiteWeeklyKPI) bool {
	if r == nil || !f.InRange(r.WeekStart) || !bandMatch(f, r.Band) {
		return false
	}
	return f.Site == nil || strings.EqualFold(*f.Site, r.Site)
}

// Select keeps the records that pass keep, in their original order.
func Select[T any](records []T, f Filter, keep func(Filter, T) bool) []T {
	return lo.Filter(records, func(r T, _ int) bool { return keep(f, r) })
}

// Bands returns the distinct bands present in rows, in first-seen order.
func Bands(rows []HourlyRow) []string {
	return lo.Uniq(lo.Map(rows, func(r HourlyRow, _ int) string { return r.Band }))
}

// WeeklyBands returns the distinct bands present in weekly rows, in first-seen order.
func WeeklyBands(rows []WeeklyRow) []string {
	return lo.Uniq(lo.Map(rows, func(r WeeklyRow, _ int) string { return r.Band }))
}

// Sites returns the distinct sites present in rows, sorted.
func Sites(rows []WeeklyRow) []string {
	sites := lo.Uniq(lo.Map(rows, func(r WeeklyRow, _ int) string { return r.Site }))
	sort.Strings(sites)
	return sites
}

func bandMatch(f Filter, band string) bool {
	if len(f.Bands) == 0 {
		return true
	}
	return lo.ContainsBy(f.Bands, func(b string) bool {
		return strings.EqualFold(strings.TrimSpace(b), band)
	})
}

// date strings are ISO so lexical order is chronological
func sortHourly(rows []HourlyRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Band < b.Band
	})
}
