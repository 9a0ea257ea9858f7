package domain

// RawRecord is one decoded source row keyed by canonical field name.
// Values are the raw cell text; header spelling variants are resolved by the decoder.
type RawRecord map[string]string

// Get returns the raw value for a canonical field, or "" when absent.
func (r RawRecord) Get(field string) string {
	if r == nil {
		return ""
	}
	return r[field]
}

// Canonical field names.
const (
	FieldDate     = "date"
	FieldHour     = "hour"
	FieldDateTime = "datetime"
	FieldCellName = "cell_name"
	FieldSiteName = "site_name"
	FieldFreqBand = "freq_band"
	FieldPeriod   = "period_min"

	FieldRRCConnAttempts     = "rrc_conn_att"
	FieldRRCConnSuccess      = "rrc_conn_succ"
	FieldNGSigAttempts       = "ng_sig_att"
	FieldNGSigSuccess        = "ng_sig_succ"
	FieldBearerSetupAttempts = "bearer_setup_att"
	FieldBearerSetupSuccess  = "bearer_setup_succ"
	FieldIntraHOAttempts     = "intra_ho_att"
	FieldIntraHOSuccess      = "intra_ho_succ"
	FieldInterHOAttempts     = "inter_ho_att"
	FieldInterHOSuccess      = "inter_ho_succ"

	FieldDLThpVolume     = "dl_thp_vol"
	FieldDLThpTime       = "dl_thp_time"
	FieldULThpVolume     = "ul_thp_vol"
	FieldULThpTime       = "ul_thp_time"
	FieldDLCellVolume    = "dl_cell_vol"
	FieldDLCellTime      = "dl_cell_time"
	FieldDLLastSlotTime  = "dl_last_slot_time"
	FieldDLPRBUsed       = "dl_prb_used"
	FieldDLPRBAvailable  = "dl_prb_avail"
	FieldULPRBUsed       = "ul_prb_used"
	FieldULPRBAvailable  = "ul_prb_avail"
	FieldActiveUsers     = "active_users"
	FieldDLUnrestricted  = "dl_unrestricted_vol"
	FieldDLRestricted    = "dl_restricted_vol"
	FieldULUnrestricted  = "ul_unrestricted_vol"
	FieldULRestricted    = "ul_restricted_vol"
	FieldDLTraffic       = "dl_traffic_bytes"
	FieldULTraffic       = "ul_traffic_bytes"
	FieldDLDRBVolume     = "dl_drb_kbytes"
	FieldULDRBVolume     = "ul_drb_kbytes"
	FieldCellDowntime    = "cell_downtime_sec"
	FieldAbnormalRel     = "abnormal_rel"
	FieldNormalRel       = "normal_rel"
	FieldSuccessfulChg   = "succ_change"
	FieldCtxAbnormalRel  = "ctx_abnormal_rel"
	FieldCtxNormalRel    = "ctx_normal_rel"
)
