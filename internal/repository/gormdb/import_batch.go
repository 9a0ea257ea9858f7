package gormdb

import (
	"context"

	"github.com/awsl-project/ranstat/internal/domain"
)

type ImportBatchRepository struct {
	db *DB
}

func NewImportBatchRepository(db *DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

func (r *ImportBatchRepository) Create(ctx context.Context, s *domain.ImportSummary) error {
	model := r.toModel(s)
	if err := r.db.gorm.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	s.CreatedAt = fromTimestamp(model.CreatedAt)
	return nil
}

// List 按创建时间倒序返回最近的导入批次
func (r *ImportBatchRepository) List(ctx context.Context, limit int) ([]*domain.ImportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []ImportBatch
	if err := r.db.gorm.WithContext(ctx).Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.ImportSummary, len(models))
	for i := range models {
		result[i] = r.toDomain(&models[i])
	}
	return result, nil
}

func (r *ImportBatchRepository) toModel(s *domain.ImportSummary) *ImportBatch {
	return &ImportBatch{
		BatchID:        s.BatchID,
		Feed:           string(s.Feed),
		FileName:       s.FileName,
		RawRecords:     s.RawRecords,
		SkippedRecords: s.SkippedRecords,
		DerivedRecords: s.DerivedRecords,
		Inserted:       s.Inserted,
		Updated:        s.Updated,
		Errors:         LongText(toJSON(s.Errors)),
		DurationMs:     s.DurationMs,
	}
}

func (r *ImportBatchRepository) toDomain(m *ImportBatch) *domain.ImportSummary {
	errs := fromJSON[[]string](string(m.Errors))
	if errs == nil {
		errs = []string{}
	}
	return &domain.ImportSummary{
		BatchID:        m.BatchID,
		Feed:           domain.Feed(m.Feed),
		FileName:       m.FileName,
		RawRecords:     m.RawRecords,
		SkippedRecords: m.SkippedRecords,
		DerivedRecords: m.DerivedRecords,
		Inserted:       m.Inserted,
		Updated:        m.Updated,
		Errors:         errs,
		DurationMs:     m.DurationMs,
		CreatedAt:      fromTimestamp(m.CreatedAt),
	}
}
