package gormdb

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/awsl-project/ranstat/internal/classify"
	"github.com/awsl-project/ranstat/internal/domain"
)

// ==================== NR hourly ====================

type NRHourlyKPIRepository struct {
	db *DB
}

func NewNRHourlyKPIRepository(db *DB) *NRHourlyKPIRepository {
	return &NRHourlyKPIRepository{db: db}
}

func (r *NRHourlyKPIRepository) UpsertBatch(ctx context.Context, records []*domain.NRHourlyKPI) (domain.UpsertResult, error) {
	models := make([]*NRHourlyKPI, len(records))
	for i, rec := range records {
		models[i] = r.toModel(rec)
	}
	return upsertBatch(ctx, r.db.gorm, models, func(m *NRHourlyKPI) (string, []any) {
		return "date = ? AND hour = ? AND band = ?", []any{m.Date, m.Hour, m.Band}
	})
}

func (r *NRHourlyKPIRepository) Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.NRHourlyKPI, error) {
	q := dateRange(r.db.gorm.WithContext(ctx).Model(&NRHourlyKPI{}), "date", filter)
	if bands := canonicalBands(filter.Bands); len(bands) > 0 {
		q = q.Where("band IN ?", bands)
	}

	var models []NRHourlyKPI
	if err := q.Order("date, hour, band").Find(&models).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.NRHourlyKPI, len(models))
	for i := range models {
		result[i] = r.toDomain(&models[i])
	}
	return result, nil
}

func (r *NRHourlyKPIRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.gorm.WithContext(ctx).Model(&NRHourlyKPI{}).Count(&count).Error
	return count, err
}

func (r *NRHourlyKPIRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return deleteBefore(ctx, r.db.gorm, &NRHourlyKPI{}, "date", before)
}

func (r *NRHourlyKPIRepository) toModel(k *domain.NRHourlyKPI) *NRHourlyKPI {
	return &NRHourlyKPI{
		Date:     dayTimestamp(k.Date),
		Hour:     k.Hour,
		Band:     k.Band,
		Counters: k.Counters,
		KPIs:     k.KPIs,
	}
}

func (r *NRHourlyKPIRepository) toDomain(m *NRHourlyKPI) *domain.NRHourlyKPI {
	return &domain.NRHourlyKPI{
		ID:        m.ID,
		CreatedAt: fromTimestamp(m.CreatedAt),
		UpdatedAt: fromTimestamp(m.UpdatedAt),
		Date:      fromTimestamp(m.Date),
		Hour:      m.Hour,
		Band:      m.Band,
		Counters:  m.Counters,
		KPIs:      m.KPIs,
	}
}

// ==================== LTE hourly ====================

type LTEHourlyKPIRepository struct {
	db *DB
}

func NewLTEHourlyKPIRepository(db *DB) *LTEHourlyKPIRepository {
	return &LTEHourlyKPIRepository{db: db}
}

func (r *LTEHourlyKPIRepository) UpsertBatch(ctx context.Context, records []*domain.LTEHourlyKPI) (domain.UpsertResult, error) {
	models := make([]*LTEHourlyKPI, len(records))
	for i, rec := range records {
		models[i] = r.toModel(rec)
	}
	return upsertBatch(ctx, r.db.gorm, models, func(m *LTEHourlyKPI) (string, []any) {
		return "date = ? AND hour = ? AND freq_band = ?", []any{m.Date, m.Hour, m.FreqBand}
	})
}

func (r *LTEHourlyKPIRepository) Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.LTEHourlyKPI, error) {
	q := dateRange(r.db.gorm.WithContext(ctx).Model(&LTEHourlyKPI{}), "date", filter)
	if len(filter.Bands) > 0 {
		var codes []string
		for _, b := range filter.Bands {
			codes = append(codes, classify.BandCodes(b)...)
		}
		q = q.Where("freq_band IN ?", codes)
	}

	var models []LTEHourlyKPI
	if err := q.Order("date, hour, freq_band").Find(&models).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.LTEHourlyKPI, len(models))
	for i := range models {
		result[i] = r.toDomain(&models[i])
	}
	return result, nil
}

func (r *LTEHourlyKPIRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.gorm.WithContext(ctx).Model(&LTEHourlyKPI{}).Count(&count).Error
	return count, err
}

func (r *LTEHourlyKPIRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return deleteBefore(ctx, r.db.gorm, &LTEHourlyKPI{}, "date", before)
}

func (r *LTEHourlyKPIRepository) toModel(k *domain.LTEHourlyKPI) *LTEHourlyKPI {
	return &LTEHourlyKPI{
		Date:     dayTimestamp(k.Date),
		Hour:     k.Hour,
		FreqBand: k.FreqBand,
		Counters: k.Counters,
		KPIs:     k.KPIs,
	}
}

func (r *LTEHourlyKPIRepository) toDomain(m *LTEHourlyKPI) *domain.LTEHourlyKPI {
	return &domain.LTEHourlyKPI{
		ID:        m.ID,
		CreatedAt: fromTimestamp(m.CreatedAt),
		UpdatedAt: fromTimestamp(m.UpdatedAt),
		Date:      fromTimestamp(m.Date),
		Hour:      m.Hour,
		FreqBand:  m.FreqBand,
		Counters:  m.Counters,
		KPIs:      m.KPIs,
	}
}

// ==================== NR site weekly ====================

type SiteWeeklyKPIRepository struct {
	db *DB
}

func NewSiteWeeklyKPIRepository(db *DB) *SiteWeeklyKPIRepository {
	return &SiteWeeklyKPIRepository{db: db}
}

func (r *SiteWeeklyKPIRepository) UpsertBatch(ctx context.Context, records []*domain.SiteWeeklyKPI) (domain.UpsertResult, error) {
	models := make([]*SiteWeeklyKPI, len(records))
	for i, rec := range records {
		models[i] = r.toModel(rec)
	}
	return upsertBatch(ctx, r.db.gorm, models, func(m *SiteWeeklyKPI) (string, []any) {
		return "week_start = ? AND site = ? AND band = ?", []any{m.WeekStart, m.Site, m.Band}
	})
}

func (r *SiteWeeklyKPIRepository) Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.SiteWeeklyKPI, error) {
	q := dateRange(r.db.gorm.WithContext(ctx).Model(&SiteWeeklyKPI{}), "week_start", filter)
	if bands := canonicalBands(filter.Bands); len(bands) > 0 {
		q = q.Where("band IN ?", bands)
	}
	if filter.Site != nil {
		q = q.Where("LOWER(site) = LOWER(?)", *filter.Site)
	}

	var models []SiteWeeklyKPI
	if err := q.Order("week_start, site, band").Find(&models).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.SiteWeeklyKPI, len(models))
	for i := range models {
		result[i] = r.toDomain(&models[i])
	}
	return result, nil
}

func (r *SiteWeeklyKPIRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.gorm.WithContext(ctx).Model(&SiteWeeklyKPI{}).Count(&count).Error
	return count, err
}

func (r *SiteWeeklyKPIRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return deleteBefore(ctx, r.db.gorm, &SiteWeeklyKPI{}, "week_start", before)
}

func (r *SiteWeeklyKPIRepository) toModel(k *domain.SiteWeeklyKPI) *SiteWeeklyKPI {
	return &SiteWeeklyKPI{
		WeekStart:  dayTimestamp(k.WeekStart),
		WeekNumber: k.WeekNumber,
		Site:       k.Site,
		Band:       k.Band,
		Counters:   k.Counters,
		KPIs:       k.KPIs,
	}
}

func (r *SiteWeeklyKPIRepository) toDomain(m *SiteWeeklyKPI) *domain.SiteWeeklyKPI {
	return &domain.SiteWeeklyKPI{
		ID:         m.ID,
		CreatedAt:  fromTimestamp(m.CreatedAt),
		UpdatedAt:  fromTimestamp(m.UpdatedAt),
		WeekStart:  fromTimestamp(m.WeekStart),
		WeekNumber: m.WeekNumber,
		Site:       m.Site,
		Band:       m.Band,
		Counters:   m.Counters,
		KPIs:       m.KPIs,
	}
}

// ==================== 公共查询辅助 ====================

// dateRange 闭区间日期过滤
func dateRange(q *gorm.DB, column string, filter domain.KPIFilter) *gorm.DB {
	if filter.Start != nil {
		q = q.Where(column+" >= ?", dayTimestamp(*filter.Start))
	}
	if filter.End != nil {
		q = q.Where(column+" <= ?", dayTimestamp(*filter.End))
	}
	return q
}

func canonicalBands(bands []string) []string {
	result := make([]string, 0, len(bands))
	for _, b := range bands {
		result = append(result, classify.CanonicalBand(b))
	}
	return result
}

func deleteBefore(ctx context.Context, db *gorm.DB, model any, column string, before time.Time) (int64, error) {
	result := db.WithContext(ctx).Where(column+" < ?", dayTimestamp(before)).Delete(model)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
