package core

import (
	"context"
	"log"
	"time"

	"github.com/awsl-project/ranstat/internal/domain"
)

// Purger 删除过期 KPI 数据，由 service.RetentionService 实现
type Purger interface {
	Purge(ctx context.Context, now time.Time, hourlyDays, weeklyDays int) (map[domain.Feed]int64, error)
}

// BackgroundTaskDeps 后台任务依赖
type BackgroundTaskDeps struct {
	Retention  Purger
	HourlyDays int
	WeeklyDays int
	Interval   time.Duration
	// 首次执行前的延迟
	InitialDelay time.Duration
}

// StartBackgroundTasks 启动所有后台任务，ctx 结束时退出
func StartBackgroundTasks(ctx context.Context, deps BackgroundTaskDeps) {
	if deps.Retention == nil || (deps.HourlyDays <= 0 && deps.WeeklyDays <= 0) {
		log.Println("[Task] Retention disabled")
		return
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Hour
	}

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(deps.InitialDelay):
		}
		deps.runRetention(ctx)

		ticker := time.NewTicker(deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[Task] Background tasks stopped")
				return
			case <-ticker.C:
				deps.runRetention(ctx)
			}
		}
	}()

	log.Printf("[Task] Background tasks started (retention:%s, hourly=%dd weekly=%dd)",
		deps.Interval, deps.HourlyDays, deps.WeeklyDays)
}

// runRetention 清理任务：清理过期 KPI 数据
func (d *BackgroundTaskDeps) runRetention(ctx context.Context) {
	deleted, err := d.Retention.Purge(ctx, time.Now(), d.HourlyDays, d.WeeklyDays)
	if err != nil {
		log.Printf("[Task] Retention failed: %v", err)
		return
	}
	var total int64
	for _, n := range deleted {
		total += n
	}
	if total > 0 {
		log.Printf("[Task] Retention removed %d rows", total)
	}
}
