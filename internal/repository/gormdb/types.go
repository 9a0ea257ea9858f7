package gormdb

import (
	"database/sql/driver"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// LongText 跨数据库的长文本列，用于导入批次的错误列表
type LongText string

// GormDBDataType picks the widest text type per dialect.
func (LongText) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return "LONGTEXT"
	}
	return "TEXT"
}

func (lt LongText) Value() (driver.Value, error) {
	return string(lt), nil
}

func (lt *LongText) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*lt = ""
	case string:
		*lt = LongText(v)
	case []byte:
		*lt = LongText(v)
	default:
		return fmt.Errorf("unsupported LongText scan type %T", value)
	}
	return nil
}
