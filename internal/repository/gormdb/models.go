package gormdb

import (
	"github.com/awsl-project/ranstat/internal/domain"
)

// BaseModel 时间戳统一存 Unix 毫秒
type BaseModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}

// NRHourlyKPI nr_hourly_kpis 表
type NRHourlyKPI struct {
	BaseModel
	Date int64  `gorm:"not null;uniqueIndex:uk_nr_hourly_key,priority:1"`
	Hour int    `gorm:"not null;uniqueIndex:uk_nr_hourly_key,priority:2"`
	Band string `gorm:"size:32;not null;uniqueIndex:uk_nr_hourly_key,priority:3"`

	Counters domain.Counters `gorm:"embedded;embeddedPrefix:c_"`
	KPIs     domain.KPIs     `gorm:"embedded;embeddedPrefix:k_"`
}

func (NRHourlyKPI) TableName() string { return "nr_hourly_kpis" }

// LTEHourlyKPI lte_hourly_kpis 表，FreqBand 存原始代码
type LTEHourlyKPI struct {
	BaseModel
	Date     int64  `gorm:"not null;uniqueIndex:uk_lte_hourly_key,priority:1"`
	Hour     int    `gorm:"not null;uniqueIndex:uk_lte_hourly_key,priority:2"`
	FreqBand string `gorm:"size:32;not null;uniqueIndex:uk_lte_hourly_key,priority:3"`

	Counters domain.Counters `gorm:"embedded;embeddedPrefix:c_"`
	KPIs     domain.KPIs     `gorm:"embedded;embeddedPrefix:k_"`
}

func (LTEHourlyKPI) TableName() string { return "lte_hourly_kpis" }

// SiteWeeklyKPI nr_site_weekly_kpis 表
type SiteWeeklyKPI struct {
	BaseModel
	WeekStart  int64  `gorm:"not null;uniqueIndex:uk_site_weekly_key,priority:1"`
	WeekNumber int    `gorm:"not null"`
	Site       string `gorm:"size:128;not null;uniqueIndex:uk_site_weekly_key,priority:2"`
	Band       string `gorm:"size:32;not null;uniqueIndex:uk_site_weekly_key,priority:3"`

	Counters domain.Counters `gorm:"embedded;embeddedPrefix:c_"`
	KPIs     domain.KPIs     `gorm:"embedded;embeddedPrefix:k_"`
}

func (SiteWeeklyKPI) TableName() string { return "nr_site_weekly_kpis" }

// ImportBatch import_batches 表，每次导入一行
type ImportBatch struct {
	BaseModel
	BatchID        string `gorm:"size:36;not null;uniqueIndex"`
	Feed           string `gorm:"size:32;not null;index"`
	FileName       string `gorm:"size:255"`
	RawRecords     int
	SkippedRecords int
	DerivedRecords int
	Inserted       int
	Updated        int
	Errors         LongText
	DurationMs     int64
}

func (ImportBatch) TableName() string { return "import_batches" }

// AllModels returns every model managed by auto-migration.
func AllModels() []any {
	return []any{
		&NRHourlyKPI{},
		&LTEHourlyKPI{},
		&SiteWeeklyKPI{},
		&ImportBatch{},
	}
}
