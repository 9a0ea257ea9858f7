// Package ingest decodes uploaded counter exports into canonical raw records.
//
// Source headers vary by vendor and export tool. Every spelling is resolved to
// a domain.Field* name in a single pass when the header row is found, so the
// aggregation core never sees spelling variants.
package ingest

import (
	"regexp"
	"strings"

	"github.com/awsl-project/ranstat/internal/domain"
)

var sepRE = regexp.MustCompile(`[\s_.\-/()]+`)

// norm lowercases, trims and collapses separators so "N.RRC.ConnEstab.Att",
// "n_rrc_connestab_att" and "N RRC ConnEstab Att" compare equal.
func norm(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "\"'\ufeff")
	return strings.TrimSpace(sepRE.ReplaceAllString(strings.ToLower(s), " "))
}

// fieldAliases 规范字段 -> 源表头拼写
// canonical name itself is always accepted
var fieldAliases = map[string][]string{
	domain.FieldDate:     {"Date", "Day", "Data Date", "Result Date"},
	domain.FieldHour:     {"Hour", "HH", "Hour Id", "Time Hour"},
	domain.FieldDateTime: {"Datetime", "Date Time", "Start Time", "Begin Time", "Result Time", "Period Start Time", "Timestamp"},
	domain.FieldCellName: {"Cell Name", "Cell", "NRCell Name", "NR Cell Name", "EUtranCell Name", "Cell Id Name", "Object Name"},
	domain.FieldSiteName: {"Site Name", "Site", "gNodeB Name", "gNB Name", "NE Name"},
	domain.FieldFreqBand: {"FREQ_BAND", "Freq Band", "Frequency Band", "Band", "Band Indicator"},
	domain.FieldPeriod:   {"Period", "Granularity Period", "Period Minutes", "Collection Period"},

	domain.FieldRRCConnAttempts:     {"N.RRC.ConnEstab.Att", "L.RRC.ConnReq.Att", "RRC Conn Att", "RRC Setup Attempts"},
	domain.FieldRRCConnSuccess:      {"N.RRC.ConnEstab.Succ", "L.RRC.ConnReq.Succ", "RRC Conn Succ", "RRC Setup Success"},
	domain.FieldNGSigAttempts:       {"N.NGSig.ConnEstab.Att", "L.S1Sig.ConnEstab.Att", "NG Sig Att", "S1 Sig Att"},
	domain.FieldNGSigSuccess:        {"N.NGSig.ConnEstab.Succ", "L.S1Sig.ConnEstab.Succ", "NG Sig Succ", "S1 Sig Succ"},
	domain.FieldBearerSetupAttempts: {"N.QosFlow.Est.Att", "L.E-RAB.AttEst", "Bearer Setup Att", "ERAB Setup Att"},
	domain.FieldBearerSetupSuccess:  {"N.QosFlow.Est.Succ", "L.E-RAB.SuccEst", "Bearer Setup Succ", "ERAB Setup Succ"},
	domain.FieldIntraHOAttempts:     {"N.HO.IntraFreq.Att", "L.HHO.IntraFreq.ExecAttOut", "Intra HO Att"},
	domain.FieldIntraHOSuccess:      {"N.HO.IntraFreq.Succ", "L.HHO.IntraFreq.ExecSuccOut", "Intra HO Succ"},
	domain.FieldInterHOAttempts:     {"N.HO.InterFreq.Att", "L.HHO.InterFreq.ExecAttOut", "Inter HO Att"},
	domain.FieldInterHOSuccess:      {"N.HO.InterFreq.Succ", "L.HHO.InterFreq.ExecSuccOut", "Inter HO Succ"},

	domain.FieldDLThpVolume:    {"N.ThpVol.DL", "L.Thrp.bits.DL", "DL Thp Vol", "DL User Thp Volume"},
	domain.FieldDLThpTime:      {"N.ThpTime.DL", "L.Thrp.Time.DL", "DL Thp Time"},
	domain.FieldULThpVolume:    {"N.ThpVol.UL", "L.Thrp.bits.UL", "UL Thp Vol", "UL User Thp Volume"},
	domain.FieldULThpTime:      {"N.ThpTime.UL", "L.Thrp.Time.UL", "UL Thp Time"},
	domain.FieldDLCellVolume:   {"N.ThpVol.DL.Cell", "L.Thrp.bits.DL.Cell", "DL Cell Vol"},
	domain.FieldDLCellTime:     {"N.ThpTime.DL.Cell", "L.Thrp.Time.Cell.DL", "DL Cell Time"},
	domain.FieldDLLastSlotTime: {"N.ThpTime.DL.LastSlot", "L.Thrp.Time.DL.RmvLastTTI", "DL Last Slot Time"},
	domain.FieldDLPRBUsed:      {"N.PRB.DL.Used.Avg", "L.ChMeas.PRB.DL.Used.Avg", "DL PRB Used"},
	domain.FieldDLPRBAvailable: {"N.PRB.DL.Avail.Avg", "L.ChMeas.PRB.DL.Avail", "DL PRB Avail", "DL PRB Available"},
	domain.FieldULPRBUsed:      {"N.PRB.UL.Used.Avg", "L.ChMeas.PRB.UL.Used.Avg", "UL PRB Used"},
	domain.FieldULPRBAvailable: {"N.PRB.UL.Avail.Avg", "L.ChMeas.PRB.UL.Avail", "UL PRB Avail", "UL PRB Available"},
	domain.FieldActiveUsers:    {"N.User.RRCConn.Active.Avg", "L.Traffic.ActiveUser.Avg", "Active Users", "Avg Active Users"},
	domain.FieldDLUnrestricted: {"N.ThpVol.DL.Unrestricted", "DL Unrestricted Vol", "DL Unrestricted Volume"},
	domain.FieldDLRestricted:   {"N.ThpVol.DL.Restricted", "DL Restricted Vol", "DL Restricted Volume"},
	domain.FieldULUnrestricted: {"N.ThpVol.UL.Unrestricted", "UL Unrestricted Vol", "UL Unrestricted Volume"},
	domain.FieldULRestricted:   {"N.ThpVol.UL.Restricted", "UL Restricted Vol", "UL Restricted Volume"},
	domain.FieldDLTraffic:      {"N.Traffic.DL.Bytes", "L.Traffic.DL.Bytes", "DL Traffic Bytes", "DL Traffic"},
	domain.FieldULTraffic:      {"N.Traffic.UL.Bytes", "L.Traffic.UL.Bytes", "UL Traffic Bytes", "UL Traffic"},
	domain.FieldDLDRBVolume:    {"N.DRB.Vol.DL.KB", "L.PDCP.DL.Vol.KB", "DL DRB KBytes", "DL DRB Volume"},
	domain.FieldULDRBVolume:    {"N.DRB.Vol.UL.KB", "L.PDCP.UL.Vol.KB", "UL DRB KBytes", "UL DRB Volume"},
	domain.FieldCellDowntime:   {"N.Cell.Unavail.Dur", "L.Cell.Unavail.Dur.Sys", "Cell Downtime", "Cell Unavailable Duration"},
	domain.FieldAbnormalRel:    {"N.UECtxt.AbnormRel", "L.E-RAB.AbnormRel", "Abnormal Releases", "Abnormal Rel"},
	domain.FieldNormalRel:      {"N.UECtxt.NormRel", "L.E-RAB.NormRel", "Normal Releases", "Normal Rel"},
	domain.FieldSuccessfulChg:  {"N.HO.Succ.Change", "L.E-RAB.Rel.HOSucc", "Successful Changes", "Succ Change"},
	domain.FieldCtxAbnormalRel: {"N.UECtxt.Rel.Abnorm", "L.UECNTX.AbnormRel", "Ctx Abnormal Rel", "Context Abnormal Releases"},
	domain.FieldCtxNormalRel:   {"N.UECtxt.Rel.Norm", "L.UECNTX.NormRel", "Ctx Normal Rel", "Context Normal Releases"},
}

// aliasIndex normalized spelling -> canonical field
var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]string {
	idx := make(map[string]string)
	for canon, aliases := range fieldAliases {
		idx[norm(canon)] = canon
		for _, a := range aliases {
			idx[norm(a)] = canon
		}
	}
	return idx
}

// Resolve maps a source header to its canonical field name.
func Resolve(header string) (string, bool) {
	canon, ok := aliasIndex[norm(header)]
	return canon, ok
}

// requiredFields lists, per feed, groups of which at least one field must be present.
func requiredFields(feed domain.Feed) [][]string {
	dateGroup := []string{domain.FieldDate, domain.FieldDateTime}
	switch feed {
	case domain.FeedLTEHourly:
		return [][]string{dateGroup, {domain.FieldFreqBand}}
	case domain.FeedNRSiteWeekly:
		return [][]string{dateGroup, {domain.FieldCellName, domain.FieldSiteName}}
	default:
		return [][]string{dateGroup, {domain.FieldCellName}}
	}
}
