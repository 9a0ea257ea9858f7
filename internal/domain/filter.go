package domain

import "time"

// KPIFilter KPI 查询过滤条件
// 日期边界都是闭区间，按 UTC 日期比较
type KPIFilter struct {
	Start *time.Time // 开始日期，nil 表示不限
	End   *time.Time // 结束日期，nil 表示不限
	Bands []string   // 频段显示名称，空表示全部
	Site  *string    // 站点名称（仅周级）
}

// InRange reports whether day falls within [Start, End] at day granularity.
func (f KPIFilter) InRange(day time.Time) bool {
	d := dayOf(day)
	if f.Start != nil && d.Before(dayOf(*f.Start)) {
		return false
	}
	if f.End != nil && d.After(dayOf(*f.End)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
