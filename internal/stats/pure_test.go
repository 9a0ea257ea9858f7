package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/awsl-project/ranstat/internal/bucket"
	"github.com/awsl-project/ranstat/internal/domain"
)

func nrRow(date, hour, cell string, att, succ string) domain.RawRecord {
	return domain.RawRecord{
		domain.FieldDate:            date,
		domain.FieldHour:            hour,
		domain.FieldCellName:        cell,
		domain.FieldRRCConnAttempts: att,
		domain.FieldRRCConnSuccess:  succ,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountersFrom(t *testing.T) {
	rec := domain.RawRecord{
		domain.FieldRRCConnAttempts: "1,200",
		domain.FieldRRCConnSuccess:  "N/A",
		domain.FieldDLDRBVolume:     `"5"`,
		"unrelated_column":          "99",
	}
	c := CountersFrom(rec)

	if c.Samples != 1 {
		t.Errorf("Samples = %v, want 1", c.Samples)
	}
	if c.RRCConnAttempts != 1200 {
		t.Errorf("RRCConnAttempts = %v, want 1200", c.RRCConnAttempts)
	}
	if c.RRCConnSuccess != 0 {
		t.Errorf("invalid counter should contribute 0, got %v", c.RRCConnSuccess)
	}
	if c.DLDRBKBytes != 5 {
		t.Errorf("DLDRBKBytes = %v, want 5", c.DLDRBKBytes)
	}
	if c.ULDRBKBytes != 0 {
		t.Errorf("missing counter should contribute 0, got %v", c.ULDRBKBytes)
	}
}

func TestCounterFieldNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range CounterFieldNames() {
		if seen[name] {
			t.Errorf("duplicate counter field %q", name)
		}
		seen[name] = true
	}
}

func TestNRHourlyFold(t *testing.T) {
	a := NewNRHourly()
	rows := []domain.RawRecord{
		nrRow("11/24/2025", "13", "S1_N78_1", "100", "80"),
		nrRow("45985", "13", "S2_N35_1", "100", "70"),
		nrRow("2025-11-24", "13", "S1_N09_1", "50", "50"),
		nrRow("11/24/2025", "14", "S1_N78_1", "10", "10"),
	}
	for i, r := range rows {
		if err := a.Fold(i+1, r); err != nil {
			t.Fatalf("Fold row %d: %v", i+1, err)
		}
	}

	if a.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", a.Len())
	}
	if a.Folded() != 4 {
		t.Errorf("Folded() = %d, want 4", a.Folded())
	}

	buckets := a.Buckets()
	want := []struct {
		key  bucket.HourlyKey
		att  float64
		succ float64
		rows float64
	}{
		{bucket.HourlyKey{Date: day(2025, 11, 24), Hour: 13, Band: "3500MHz"}, 200, 150, 2},
		{bucket.HourlyKey{Date: day(2025, 11, 24), Hour: 13, Band: "900MHz"}, 50, 50, 1},
		{bucket.HourlyKey{Date: day(2025, 11, 24), Hour: 14, Band: "3500MHz"}, 10, 10, 1},
	}
	for i, w := range want {
		b := buckets[i]
		if b.Key != w.key {
			t.Errorf("buckets[%d].Key = %+v, want %+v", i, b.Key, w.key)
		}
		if b.Counters.RRCConnAttempts != w.att || b.Counters.RRCConnSuccess != w.succ {
			t.Errorf("buckets[%d] att/succ = %v/%v, want %v/%v", i,
				b.Counters.RRCConnAttempts, b.Counters.RRCConnSuccess, w.att, w.succ)
		}
		if b.Counters.Samples != w.rows {
			t.Errorf("buckets[%d].Samples = %v, want %v", i, b.Counters.Samples, w.rows)
		}
	}
}

func TestFold_HourFromDateTime(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.RawRecord
		hour int
	}{
		{
			name: "datetime column",
			rec:  domain.RawRecord{domain.FieldDateTime: "11/24/2025 13:00", domain.FieldCellName: "S_N78_1"},
			hour: 13,
		},
		{
			name: "serial datetime column",
			rec:  domain.RawRecord{domain.FieldDateTime: "45985.541666667", domain.FieldCellName: "S_N78_1"},
			hour: 13,
		},
		{
			name: "time part of the date column",
			rec:  domain.RawRecord{domain.FieldDate: "11/24/2025 07:00", domain.FieldCellName: "S_N78_1"},
			hour: 7,
		},
		{
			name: "explicit hour wins over datetime",
			rec: domain.RawRecord{
				domain.FieldDate:     "11/24/2025",
				domain.FieldHour:     "5",
				domain.FieldDateTime: "11/24/2025 13:00",
			},
			hour: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, reason := NRHourlyKey(tt.rec)
			if reason != "" {
				t.Fatalf("unexpected skip: %s", reason)
			}
			if key.Hour != tt.hour {
				t.Errorf("Hour = %d, want %d", key.Hour, tt.hour)
			}
			if !key.Date.Equal(day(2025, 11, 24)) {
				t.Errorf("Date = %v, want 2025-11-24", key.Date)
			}
		})
	}
}

func TestFold_SkipsBadRows(t *testing.T) {
	tests := []struct {
		name   string
		rec    domain.RawRecord
		reason string
	}{
		{name: "bad date", rec: nrRow("31/31/2025", "1", "S_N78_1", "1", "1"), reason: `invalid date "31/31/2025"`},
		{name: "bad hour", rec: nrRow("11/24/2025", "25", "S_N78_1", "1", "1"), reason: `invalid hour "25"`},
		{name: "no date", rec: nrRow("", "1", "S_N78_1", "1", "1"), reason: "missing date"},
		{name: "bad datetime", rec: domain.RawRecord{domain.FieldDateTime: "soon"}, reason: `invalid datetime "soon"`},
		{name: "slash date without hour", rec: nrRow("11/24/2025", "", "S_N78_1", "1", "1"), reason: "missing hour"},
		{name: "serial date without hour", rec: nrRow("45985", "", "S_N78_1", "1", "1"), reason: "missing hour"},
		{name: "iso date without hour", rec: nrRow("2025-11-24", "", "S_N78_1", "1", "1"), reason: "missing hour"},
		{
			name:   "date-only datetime string",
			rec:    domain.RawRecord{domain.FieldDateTime: "2025-11-24", domain.FieldCellName: "S_N78_1"},
			reason: "missing hour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewNRHourly()
			err := a.Fold(7, tt.rec)
			skip, ok := err.(*SkipError)
			if !ok {
				t.Fatalf("Fold() error = %v, want *SkipError", err)
			}
			if skip.Row != 7 || skip.Reason != tt.reason {
				t.Errorf("SkipError = %+v, want row 7 reason %q", skip, tt.reason)
			}
			if a.Len() != 0 || a.Folded() != 0 {
				t.Errorf("skipped row must not create a bucket")
			}
		})
	}
}

func TestFold_SerialDateRollsOverMidnight(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.RawRecord
	}{
		{name: "date column", rec: domain.RawRecord{domain.FieldDate: "45985.9999", domain.FieldCellName: "S_N78_1"}},
		{name: "datetime column", rec: domain.RawRecord{domain.FieldDateTime: "45985.9999", domain.FieldCellName: "S_N78_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, reason := NRHourlyKey(tt.rec)
			if reason != "" {
				t.Fatalf("unexpected skip: %s", reason)
			}
			if !key.Date.Equal(day(2025, time.November, 25)) || key.Hour != 0 {
				t.Errorf("key = %s hour %d, want 2025-11-25 hour 0", key.Date.Format("2006-01-02"), key.Hour)
			}
		})
	}
}

func TestFold_IntegerSerialDateTimeIsMidnight(t *testing.T) {
	key, reason := NRHourlyKey(domain.RawRecord{domain.FieldDateTime: "45985", domain.FieldCellName: "S_N78_1"})
	if reason != "" {
		t.Fatalf("unexpected skip: %s", reason)
	}
	if !key.Date.Equal(day(2025, time.November, 24)) || key.Hour != 0 {
		t.Errorf("key = %s hour %d, want 2025-11-24 hour 0", key.Date.Format("2006-01-02"), key.Hour)
	}
}

func TestFold_MissingCellIsUnknownBand(t *testing.T) {
	key, reason := NRHourlyKey(nrRow("11/24/2025", "0", "", "1", "1"))
	if reason != "" {
		t.Fatalf("unexpected skip: %s", reason)
	}
	if key.Band != domain.BandUnknown {
		t.Errorf("Band = %q, want Unknown", key.Band)
	}
}

func TestLTEHourlyKey(t *testing.T) {
	rec := domain.RawRecord{
		domain.FieldDate:     "11/24/2025",
		domain.FieldHour:     "9",
		domain.FieldFreqBand: "B78",
	}
	key, reason := LTEHourlyKey(rec)
	if reason != "" {
		t.Fatalf("unexpected skip: %s", reason)
	}
	if key.Band != "78" {
		t.Errorf("Band = %q, want 78", key.Band)
	}
}

func TestSiteWeeklyKey(t *testing.T) {
	tests := []struct {
		name   string
		rec    domain.RawRecord
		want   bucket.WeeklyKey
		reason string
	}{
		{
			name: "site from cell name",
			rec:  domain.RawRecord{domain.FieldDate: "11/30/2025", domain.FieldCellName: "HNI01_N78_2"},
			want: bucket.WeeklyKey{WeekStart: day(2025, 11, 24), Site: "HNI01", Band: "3500MHz"},
		},
		{
			name: "explicit site column",
			rec:  domain.RawRecord{domain.FieldDate: "11/26/2025", domain.FieldCellName: "X_N09_2", domain.FieldSiteName: "HANOI-01"},
			want: bucket.WeeklyKey{WeekStart: day(2025, 11, 24), Site: "HANOI-01", Band: "900MHz"},
		},
		{
			name:   "no cell name",
			rec:    domain.RawRecord{domain.FieldDate: "11/26/2025"},
			reason: "missing cell name",
		},
		{
			name: "no hour needed",
			rec:  domain.RawRecord{domain.FieldDate: "45985", domain.FieldHour: "garbage", domain.FieldCellName: "S_N35_1"},
			want: bucket.WeeklyKey{WeekStart: day(2025, 11, 24), Site: "S", Band: "3500MHz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, reason := SiteWeeklyKey(tt.rec)
			if reason != tt.reason {
				t.Fatalf("reason = %q, want %q", reason, tt.reason)
			}
			if reason == "" && key != tt.want {
				t.Errorf("key = %+v, want %+v", key, tt.want)
			}
		})
	}
}

func TestFoldAll_OrderIndependent(t *testing.T) {
	var rows []domain.RawRecord
	cells := []string{"A_N78_1", "B_N09_1", "C_N35_2", "D_L18_1"}
	for i := 0; i < 500; i++ {
		rows = append(rows, domain.RawRecord{
			domain.FieldDate:            "11/24/2025",
			domain.FieldHour:            []string{"0", "1", "2"}[i%3],
			domain.FieldCellName:        cells[i%len(cells)],
			domain.FieldRRCConnAttempts: "3",
			domain.FieldRRCConnSuccess:  "2",
			domain.FieldDLTraffic:       "1000000.5",
		})
	}

	first, skipped := FoldAll[bucket.HourlyKey](NRHourlyKey, rows)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips: %v", skipped)
	}

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		shuffled := append([]domain.RawRecord(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, _ := FoldAll[bucket.HourlyKey](NRHourlyKey, shuffled)
		if len(got) != len(first) {
			t.Fatalf("round %d: %d buckets, want %d", round, len(got), len(first))
		}
		for i := range first {
			if got[i].Key != first[i].Key {
				t.Errorf("round %d: key[%d] = %+v, want %+v", round, i, got[i].Key, first[i].Key)
			}
			if got[i].Counters != first[i].Counters {
				t.Errorf("round %d: counters[%d] differ", round, i)
			}
		}
	}
}

func TestFoldAll_ReportsSkips(t *testing.T) {
	rows := []domain.RawRecord{
		nrRow("11/24/2025", "1", "A_N78_1", "1", "1"),
		nrRow("bad", "1", "A_N78_1", "1", "1"),
		nrRow("11/24/2025", "1", "A_N78_1", "1", "1"),
	}
	buckets, skipped := FoldAll[bucket.HourlyKey](NRHourlyKey, rows)
	if len(buckets) != 1 {
		t.Errorf("len(buckets) = %d, want 1", len(buckets))
	}
	if len(skipped) != 1 || skipped[0].Row != 2 {
		t.Errorf("skipped = %v, want row 2", skipped)
	}
	if buckets[0].Counters.Samples != 2 {
		t.Errorf("Samples = %v, want 2", buckets[0].Counters.Samples)
	}
}

func TestMerge(t *testing.T) {
	a := NewSiteWeekly()
	b := NewSiteWeekly()
	_ = a.Fold(1, domain.RawRecord{domain.FieldDate: "11/24/2025", domain.FieldCellName: "S_N78_1", domain.FieldAbnormalRel: "2"})
	_ = b.Fold(1, domain.RawRecord{domain.FieldDate: "11/25/2025", domain.FieldCellName: "S_N78_2", domain.FieldAbnormalRel: "3"})
	_ = b.Fold(2, domain.RawRecord{domain.FieldDate: "12/01/2025", domain.FieldCellName: "S_N78_2", domain.FieldAbnormalRel: "5"})

	a.Merge(b)

	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	buckets := a.Buckets()
	if buckets[0].Counters.AbnormalReleases != 5 {
		t.Errorf("week 48 abnormal = %v, want 5", buckets[0].Counters.AbnormalReleases)
	}
	if buckets[1].Counters.AbnormalReleases != 5 {
		t.Errorf("week 49 abnormal = %v, want 5", buckets[1].Counters.AbnormalReleases)
	}
	if b.Len() != 2 {
		t.Errorf("merge must not modify its source")
	}

	total := Total(buckets)
	if total.AbnormalReleases != 10 || total.Samples != 3 {
		t.Errorf("Total = %+v", total)
	}
}
