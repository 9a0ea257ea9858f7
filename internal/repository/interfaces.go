package repository

import (
	"context"
	"time"

	"github.com/awsl-project/ranstat/internal/domain"
)

// NRHourlyKPIRepository NR 小时级 KPI 存储
type NRHourlyKPIRepository interface {
	// UpsertBatch 按 (date, hour, band) 自然键写入，整批在一个事务内，任一行失败全部回滚
	UpsertBatch(ctx context.Context, records []*domain.NRHourlyKPI) (domain.UpsertResult, error)
	Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.NRHourlyKPI, error)
	Count(ctx context.Context) (int64, error)
	// DeleteOlderThan 删除 date 早于 before 的记录
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// LTEHourlyKPIRepository LTE 小时级 KPI 存储，自然键 (date, hour, freq_band)
type LTEHourlyKPIRepository interface {
	UpsertBatch(ctx context.Context, records []*domain.LTEHourlyKPI) (domain.UpsertResult, error)
	// Query 的 Bands 过滤按显示名称匹配（"900MHz" 会匹配代码 "8"）
	Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.LTEHourlyKPI, error)
	Count(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SiteWeeklyKPIRepository NR 站点周级 KPI 存储，自然键 (week_start, site, band)
type SiteWeeklyKPIRepository interface {
	UpsertBatch(ctx context.Context, records []*domain.SiteWeeklyKPI) (domain.UpsertResult, error)
	Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.SiteWeeklyKPI, error)
	Count(ctx context.Context) (int64, error)
	// DeleteOlderThan 删除 week_start 早于 before 的记录
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// ImportBatchRepository 导入批次记录
type ImportBatchRepository interface {
	Create(ctx context.Context, summary *domain.ImportSummary) error
	List(ctx context.Context, limit int) ([]*domain.ImportSummary, error)
}
