// Package kpi derives KPI values from fully summed counters.
//
// Every formula is guarded: when its denominator is not strictly positive the
// KPI is nil, never 0, NaN or Inf. The raw traffic volumes are the only
// unguarded family and are always present.
package kpi

import (
	"github.com/awsl-project/ranstat/internal/domain"
)

// Unit constants.
const (
	bitsPerByte   = 8
	ulThpUnitBits = 64   // UL throughput volume counter reports 64-bit blocks
	kbpsPerMbps   = 1000 // bits per ms is kbit/s
	bytesPerGB    = 1e9
	kbitPerGbit   = 1e6
)

// Derive evaluates every KPI for one bucket. It is a pure function.
func Derive(c domain.Counters) domain.KPIs {
	k := domain.KPIs{
		RRCSetupSR:    SuccessRate(c.RRCConnSuccess, c.RRCConnAttempts),
		NGSigSR:       SuccessRate(c.NGSigSuccess, c.NGSigAttempts),
		BearerSetupSR: SuccessRate(c.BearerSetupSuccess, c.BearerSetupAttempts),
		IntraHOSR:     SuccessRate(c.IntraHOSuccess, c.IntraHOAttempts),
		InterHOSR:     SuccessRate(c.InterHOSuccess, c.InterHOAttempts),

		DLUserThpMbps: Throughput(bitsPerByte, c.DLThpVolumeBytes, c.DLThpTimeMs, kbpsPerMbps),
		ULUserThpMbps: Throughput(ulThpUnitBits, c.ULThpVolumeUnits, c.ULThpTimeMs, kbpsPerMbps),
		// last-slot time is excluded from the active time
		DLCellThpMbps: Throughput(bitsPerByte, c.DLCellVolumeBytes, c.DLCellTimeMs-c.DLLastSlotTimeMs, kbpsPerMbps),

		DLPRBUtil:      Percent(c.DLPRBUsed, c.DLPRBAvailable),
		ULPRBUtil:      Percent(c.ULPRBUsed, c.ULPRBAvailable),
		AvgActiveUsers: Ratio(c.ActiveUsersSum, c.Samples),

		DLUnrestrictedPct: Share(c.DLUnrestrictedBytes, c.DLUnrestrictedBytes, c.DLRestrictedBytes),
		ULUnrestrictedPct: Share(c.ULUnrestrictedBytes, c.ULUnrestrictedBytes, c.ULRestrictedBytes),
		TotalUnrestrictedPct: Share(
			c.DLUnrestrictedBytes+c.ULUnrestrictedBytes,
			c.DLUnrestrictedBytes, c.DLRestrictedBytes, c.ULUnrestrictedBytes, c.ULRestrictedBytes,
		),

		DLTrafficGB:    VolumeGB(c.DLTrafficBytes),
		ULTrafficGB:    VolumeGB(c.ULTrafficBytes),
		TotalTrafficGB: VolumeGB(c.DLTrafficBytes, c.ULTrafficBytes),
		DLDRBTrafficGb: DRBTrafficGbit(c.DLDRBKBytes),
		ULDRBTrafficGb: DRBTrafficGbit(c.ULDRBKBytes),
		DRBTrafficGb:   DRBTrafficGbit(c.DLDRBKBytes, c.ULDRBKBytes),

		CellAvailability: Availability(c.CellDowntimeSec, c.PeriodMinutes),

		DropRate: Percent(c.AbnormalReleases, c.AbnormalReleases+c.NormalReleases),
		// successful changes are not drops; remove them from the release base
		DropRateExclMobility: Percent(c.AbnormalReleases, c.AbnormalReleases+c.NormalReleases-c.SuccessfulChanges),
		Retainability: Percent(
			c.NormalReleases-c.SuccessfulChanges,
			c.AbnormalReleases+c.NormalReleases-c.SuccessfulChanges,
		),
		ContextRetainability: Percent(c.ContextNormalRel, c.ContextAbnormalRel+c.ContextNormalRel),
	}
	k.Accessibility = Accessibility(k.RRCSetupSR, k.NGSigSR, k.BearerSetupSR)
	return k
}

// Ratio returns num/den, or nil unless den > 0.
func Ratio(num, den float64) *float64 {
	if !(den > 0) {
		return nil
	}
	v := num / den
	return &v
}

// Percent returns 100*num/den, or nil unless den > 0.
func Percent(num, den float64) *float64 {
	if !(den > 0) {
		return nil
	}
	v := 100 * num / den
	return &v
}

// SuccessRate is Percent(success, attempts).
func SuccessRate(success, attempts float64) *float64 {
	return Percent(success, attempts)
}

// Throughput returns (scale*volume)/time/unit, or nil unless time > 0.
// Callers pass the already composed time denominator.
func Throughput(scale, volume, time, unit float64) *float64 {
	if !(time > 0) {
		return nil
	}
	v := scale * volume / time / unit
	return &v
}

// Share returns 100*part/sum(constituents), or nil unless the sum > 0.
func Share(part float64, constituents ...float64) *float64 {
	var total float64
	for _, c := range constituents {
		total += c
	}
	return Percent(part, total)
}

// VolumeGB sums byte counters into GB. Never nil.
func VolumeGB(bytes ...float64) *float64 {
	var total float64
	for _, b := range bytes {
		total += b
	}
	v := total / bytesPerGB
	return &v
}

// DRBTrafficGbit converts summed DRB kilobyte counters into gigabits. Never nil.
func DRBTrafficGbit(kbytes ...float64) *float64 {
	var total float64
	for _, k := range kbytes {
		total += k
	}
	v := bitsPerByte * total / kbitPerGbit
	return &v
}

// Availability returns 100*(1 - downtimeSec/(60*periodMin)), or nil unless periodMin > 0.
func Availability(downtimeSec, periodMin float64) *float64 {
	if !(periodMin > 0) {
		return nil
	}
	v := 100 * (1 - downtimeSec/(60*periodMin))
	return &v
}

// Accessibility multiplies percentage factors and rescales the product back to
// a percentage. Any nil factor makes the result nil.
func Accessibility(factors ...*float64) *float64 {
	if len(factors) == 0 {
		return nil
	}
	v := 100.0
	for _, f := range factors {
		if f == nil {
			return nil
		}
		v *= *f / 100
	}
	return &v
}
