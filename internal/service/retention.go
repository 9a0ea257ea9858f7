package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/metrics"
	"github.com/awsl-project/ranstat/internal/repository"
)

// RetentionService deletes KPI rows older than the configured number of days.
type RetentionService struct {
	nrRepo     repository.NRHourlyKPIRepository
	lteRepo    repository.LTEHourlyKPIRepository
	weeklyRepo repository.SiteWeeklyKPIRepository
	metrics    *metrics.Metrics
}

func NewRetentionService(
	nrRepo repository.NRHourlyKPIRepository,
	lteRepo repository.LTEHourlyKPIRepository,
	weeklyRepo repository.SiteWeeklyKPIRepository,
	m *metrics.Metrics,
) *RetentionService {
	return &RetentionService{nrRepo: nrRepo, lteRepo: lteRepo, weeklyRepo: weeklyRepo, metrics: m}
}

// Purge 删除过期数据；天数 <= 0 表示该类数据不清理
// 返回每个 feed 删除的行数
func (s *RetentionService) Purge(ctx context.Context, now time.Time, hourlyDays, weeklyDays int) (map[domain.Feed]int64, error) {
	deleted := make(map[domain.Feed]int64)

	type job struct {
		feed domain.Feed
		days int
		del  func(context.Context, time.Time) (int64, error)
	}
	jobs := []job{
		{domain.FeedNRHourly, hourlyDays, s.nrRepo.DeleteOlderThan},
		{domain.FeedLTEHourly, hourlyDays, s.lteRepo.DeleteOlderThan},
		{domain.FeedNRSiteWeekly, weeklyDays, s.weeklyRepo.DeleteOlderThan},
	}

	for _, j := range jobs {
		if j.days <= 0 {
			continue
		}
		before := now.UTC().AddDate(0, 0, -j.days)
		n, err := j.del(ctx, before)
		if err != nil {
			return deleted, fmt.Errorf("purge %s: %w", j.feed, err)
		}
		deleted[j.feed] = n
		s.metrics.RetentionDeleted(j.feed, n)
		if n > 0 {
			log.Printf("[Retention] Deleted %d %s rows before %s", n, j.feed, before.Format("2006-01-02"))
		}
	}
	return deleted, nil
}
