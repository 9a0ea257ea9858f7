package classify

import (
	"testing"

	"github.com/awsl-project/ranstat/internal/domain"
)

func TestBand(t *testing.T) {
	tests := []struct {
		cell string
		want string
	}{
		{"HNI0123_N09_1", domain.Band900MHz},
		{"HNI0123_N35_2", domain.Band3500MHz},
		{"HNI0123_N78_3", domain.Band3500MHz},
		{"hni0123_n78_3", domain.Band3500MHz},
		{"HNI0123_L18_1", domain.BandUnknown},
		{"HNI0123N78", domain.BandUnknown},
		{"", domain.BandUnknown},
	}

	for _, tt := range tests {
		if got := Band(tt.cell); got != tt.want {
			t.Errorf("Band(%q) = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestBand_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		if Band("SITE_N09_A") != domain.Band900MHz {
			t.Fatal("Band is not deterministic")
		}
	}
}

func TestSite(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want *string
	}{
		{name: "band suffix stripped", cell: "HNI0123_N78_1", want: ptr("HNI0123")},
		{name: "site containing underscores", cell: "HN_DONGDA_N09_A", want: ptr("HN_DONGDA")},
		{name: "fallback to first token", cell: "HNI0123_L18_1", want: ptr("HNI0123")},
		{name: "no underscore", cell: "HNI0123", want: ptr("HNI0123")},
		{name: "surrounding blanks", cell: "  HNI0123_N35_2 ", want: ptr("HNI0123")},
		{name: "empty", cell: "", want: nil},
		{name: "blank", cell: "   ", want: nil},
		{name: "leading separator", cell: "_X", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Site(tt.cell)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("Site(%q) = %v, want %v", tt.cell, deref(got), deref(tt.want))
			case *got != *tt.want:
				t.Errorf("Site(%q) = %q, want %q", tt.cell, *got, *tt.want)
			}
		})
	}
}

func TestFreqBandCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"8", "8"},
		{" 8 ", "8"},
		{"8.0", "8"},
		{"B78", "78"},
		{"b3", "3"},
		{"n41", "n41"},
		{"", domain.BandUnknown},
	}
	for _, tt := range tests {
		if got := FreqBandCode(tt.raw); got != tt.want {
			t.Errorf("FreqBandCode(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDisplayBand(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"8", "900MHz"},
		{"78", "3500MHz"},
		{"3", "3"},
		{"900MHz", "900MHz"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DisplayBand(tt.code); got != tt.want {
			t.Errorf("DisplayBand(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestBandCodes(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"900MHz", "8"},
		{"900mhz", "8"},
		{" 3500MHz ", "78"},
		{"3", "3"},
	}
	for _, tt := range tests {
		got := BandCodes(tt.name)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("BandCodes(%q) = %v, want [%s]", tt.name, got, tt.want)
		}
	}
	if got := CanonicalBand("unknown"); got != "Unknown" {
		t.Errorf("CanonicalBand(unknown) = %q", got)
	}
}
