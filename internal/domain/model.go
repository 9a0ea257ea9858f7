package domain

import "time"

// Feed 数据源类型，每种 feed 对应一张 KPI 表
type Feed string

const (
	FeedNRHourly     Feed = "nr_hourly"
	FeedLTEHourly    Feed = "lte_hourly"
	FeedNRSiteWeekly Feed = "nr_site_weekly"
)

// AllFeeds lists every supported feed in display order.
func AllFeeds() []Feed {
	return []Feed{FeedNRHourly, FeedLTEHourly, FeedNRSiteWeekly}
}

// ParseFeed accepts the canonical name or the dashed URL form ("nr-hourly").
func ParseFeed(s string) (Feed, error) {
	switch s {
	case "nr_hourly", "nr-hourly":
		return FeedNRHourly, nil
	case "lte_hourly", "lte-hourly":
		return FeedLTEHourly, nil
	case "nr_site_weekly", "nr-site-weekly", "site-weekly", "site_weekly":
		return FeedNRSiteWeekly, nil
	}
	return "", ErrUnknownFeed
}

// 频段显示名称
const (
	Band900MHz  = "900MHz"
	Band3500MHz = "3500MHz"
	BandUnknown = "Unknown"
)

// Counters 是一个 bucket 内累加的原始计数器
// 只做加法，从不覆盖
type Counters struct {
	// 行数
	Samples float64

	// Accessibility
	RRCConnAttempts     float64
	RRCConnSuccess      float64
	NGSigAttempts       float64
	NGSigSuccess        float64
	BearerSetupAttempts float64
	BearerSetupSuccess  float64

	// Mobility
	IntraHOAttempts float64
	IntraHOSuccess  float64
	InterHOAttempts float64
	InterHOSuccess  float64

	// Integrity
	DLThpVolumeBytes  float64
	DLThpTimeMs       float64
	ULThpVolumeUnits  float64 // 64 bit units
	ULThpTimeMs       float64
	DLCellVolumeBytes float64
	DLCellTimeMs      float64
	DLLastSlotTimeMs  float64

	// Utilization
	DLPRBUsed      float64
	DLPRBAvailable float64
	ULPRBUsed      float64
	ULPRBAvailable float64
	ActiveUsersSum float64

	// Volume
	DLUnrestrictedBytes float64
	DLRestrictedBytes   float64
	ULUnrestrictedBytes float64
	ULRestrictedBytes   float64
	DLTrafficBytes      float64
	ULTrafficBytes      float64
	DLDRBKBytes         float64
	ULDRBKBytes         float64

	// Availability
	CellDowntimeSec float64
	PeriodMinutes   float64

	// Retainability
	AbnormalReleases   float64
	NormalReleases     float64
	SuccessfulChanges  float64
	ContextAbnormalRel float64
	ContextNormalRel   float64
}

// Add folds o into c.
func (c *Counters) Add(o Counters) {
	c.Samples += o.Samples
	c.RRCConnAttempts += o.RRCConnAttempts
	c.RRCConnSuccess += o.RRCConnSuccess
	c.NGSigAttempts += o.NGSigAttempts
	c.NGSigSuccess += o.NGSigSuccess
	c.BearerSetupAttempts += o.BearerSetupAttempts
	c.BearerSetupSuccess += o.BearerSetupSuccess
	c.IntraHOAttempts += o.IntraHOAttempts
	c.IntraHOSuccess += o.IntraHOSuccess
	c.InterHOAttempts += o.InterHOAttempts
	c.InterHOSuccess += o.InterHOSuccess
	c.DLThpVolumeBytes += o.DLThpVolumeBytes
	c.DLThpTimeMs += o.DLThpTimeMs
	c.ULThpVolumeUnits += o.ULThpVolumeUnits
	c.ULThpTimeMs += o.ULThpTimeMs
	c.DLCellVolumeBytes += o.DLCellVolumeBytes
	c.DLCellTimeMs += o.DLCellTimeMs
	c.DLLastSlotTimeMs += o.DLLastSlotTimeMs
	c.DLPRBUsed += o.DLPRBUsed
	c.DLPRBAvailable += o.DLPRBAvailable
	c.ULPRBUsed += o.ULPRBUsed
	c.ULPRBAvailable += o.ULPRBAvailable
	c.ActiveUsersSum += o.ActiveUsersSum
	c.DLUnrestrictedBytes += o.DLUnrestrictedBytes
	c.DLRestrictedBytes += o.DLRestrictedBytes
	c.ULUnrestrictedBytes += o.ULUnrestrictedBytes
	c.ULRestrictedBytes += o.ULRestrictedBytes
	c.DLTrafficBytes += o.DLTrafficBytes
	c.ULTrafficBytes += o.ULTrafficBytes
	c.DLDRBKBytes += o.DLDRBKBytes
	c.ULDRBKBytes += o.ULDRBKBytes
	c.CellDowntimeSec += o.CellDowntimeSec
	c.PeriodMinutes += o.PeriodMinutes
	c.AbnormalReleases += o.AbnormalReleases
	c.NormalReleases += o.NormalReleases
	c.SuccessfulChanges += o.SuccessfulChanges
	c.ContextAbnormalRel += o.ContextAbnormalRel
	c.ContextNormalRel += o.ContextNormalRel
}

// KPIs 派生指标，nil 表示分母为 0（不是 0 值）
type KPIs struct {
	RRCSetupSR    *float64 `json:"rrcSetupSr"`
	NGSigSR       *float64 `json:"ngSigSr"`
	BearerSetupSR *float64 `json:"bearerSetupSr"`
	IntraHOSR     *float64 `json:"intraHoSr"`
	InterHOSR     *float64 `json:"interHoSr"`
	Accessibility *float64 `json:"accessibility"`

	DLUserThpMbps *float64 `json:"dlUserThpMbps"`
	ULUserThpMbps *float64 `json:"ulUserThpMbps"`
	DLCellThpMbps *float64 `json:"dlCellThpMbps"`

	DLPRBUtil      *float64 `json:"dlPrbUtil"`
	ULPRBUtil      *float64 `json:"ulPrbUtil"`
	AvgActiveUsers *float64 `json:"avgActiveUsers"`

	DLUnrestrictedPct    *float64 `json:"dlUnrestrictedPct"`
	ULUnrestrictedPct    *float64 `json:"ulUnrestrictedPct"`
	TotalUnrestrictedPct *float64 `json:"totalUnrestrictedPct"`

	DLTrafficGB    *float64 `json:"dlTrafficGb"`
	ULTrafficGB    *float64 `json:"ulTrafficGb"`
	TotalTrafficGB *float64 `json:"totalTrafficGb"`
	DLDRBTrafficGb *float64 `json:"dlDrbTrafficGbit"`
	ULDRBTrafficGb *float64 `json:"ulDrbTrafficGbit"`
	DRBTrafficGb   *float64 `json:"drbTrafficGbit"`

	CellAvailability *float64 `json:"cellAvailability"`

	DropRate             *float64 `json:"dropRate"`
	DropRateExclMobility *float64 `json:"dropRateExclMobility"`
	Retainability        *float64 `json:"retainability"`
	ContextRetainability *float64 `json:"contextRetainability"`
}

// NRHourlyKPI NR 小时级、按频段聚合的 KPI
type NRHourlyKPI struct {
	ID        uint64
	CreatedAt time.Time
	UpdatedAt time.Time

	Date time.Time
	Hour int
	Band string

	Counters Counters
	KPIs     KPIs
}

// LTEHourlyKPI LTE 小时级 KPI，FreqBand 保存原始频段代码（如 "8"、"78"）
type LTEHourlyKPI struct {
	ID        uint64
	CreatedAt time.Time
	UpdatedAt time.Time

	Date     time.Time
	Hour     int
	FreqBand string

	Counters Counters
	KPIs     KPIs
}

// SiteWeeklyKPI NR 站点周级 KPI
type SiteWeeklyKPI struct {
	ID        uint64
	CreatedAt time.Time
	UpdatedAt time.Time

	WeekStart  time.Time
	WeekNumber int
	Site       string
	Band       string

	Counters Counters
	KPIs     KPIs
}

// UpsertResult 批量写入结果
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
}
