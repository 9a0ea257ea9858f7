package gormdb

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/awsl-project/ranstat/internal/domain"
)

// naturalKey returns the WHERE clause that identifies a row by its natural key.
type naturalKey[M any] func(m *M) (string, []any)

// upsertBatch 整批在一个事务内写入：先按自然键更新全部列，没有命中再插入
// 任一行出错整批回滚，返回零值结果
func upsertBatch[M any](ctx context.Context, db *gorm.DB, rows []*M, keyOf naturalKey[M]) (domain.UpsertResult, error) {
	var result domain.UpsertResult
	if len(rows) == 0 {
		return result, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, m := range rows {
			query, args := keyOf(m)

			// Select("*") 让 nil KPI 也写成 NULL，覆盖旧值
			res := tx.Model(new(M)).
				Where(query, args...).
				Select("*").
				Omit("id", "created_at").
				Updates(m)
			if res.Error != nil {
				return fmt.Errorf("update row %d: %w", i, res.Error)
			}
			if res.RowsAffected > 0 {
				result.Updated++
				continue
			}

			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return domain.UpsertResult{}, err
	}

	result.Total = result.Inserted + result.Updated
	return result, nil
}
