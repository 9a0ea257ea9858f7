package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/awsl-project/ranstat/internal/bucket"
	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/events"
	"github.com/awsl-project/ranstat/internal/ingest"
	"github.com/awsl-project/ranstat/internal/kpi"
	"github.com/awsl-project/ranstat/internal/metrics"
	"github.com/awsl-project/ranstat/internal/repository"
	"github.com/awsl-project/ranstat/internal/stats"
)

// ImportTracker lets graceful shutdown wait for in-flight imports.
// Implemented by core.ImportTracker
type ImportTracker interface {
	Add() bool
	Done()
}

// ImportService 负责一次导入的完整流程：解码 -> 累加 -> 派生 -> 写入
// 每次调用使用独立的累加器，可以并发调用
type ImportService struct {
	nrRepo     repository.NRHourlyKPIRepository
	lteRepo    repository.LTEHourlyKPIRepository
	weeklyRepo repository.SiteWeeklyKPIRepository
	batchRepo  repository.ImportBatchRepository
	sink       events.Sink
	metrics    *metrics.Metrics
	tracker    ImportTracker

	now func() time.Time
}

// NewImportService creates a new import service.
// sink, m and tracker may be nil.
func NewImportService(
	nrRepo repository.NRHourlyKPIRepository,
	lteRepo repository.LTEHourlyKPIRepository,
	weeklyRepo repository.SiteWeeklyKPIRepository,
	batchRepo repository.ImportBatchRepository,
	sink events.Sink,
	m *metrics.Metrics,
	tracker ImportTracker,
) *ImportService {
	if sink == nil {
		sink = events.Nop{}
	}
	return &ImportService{
		nrRepo:     nrRepo,
		lteRepo:    lteRepo,
		weeklyRepo: weeklyRepo,
		batchRepo:  batchRepo,
		sink:       sink,
		metrics:    m,
		tracker:    tracker,
		now:        time.Now,
	}
}

// Import streams one uploaded file into the KPI table of feed.
// The returned summary is non-nil whenever the batch got an ID, including on error;
// a failed import never leaves partially written rows.
func (s *ImportService) Import(ctx context.Context, feed domain.Feed, fileName string, r io.Reader) (*domain.ImportSummary, error) {
	if s.tracker != nil {
		if !s.tracker.Add() {
			return nil, domain.ErrShuttingDown
		}
		defer s.tracker.Done()
	}

	start := s.now()
	summary := domain.NewImportSummary(uuid.NewString(), feed, fileName)
	s.publish(ctx, domain.ImportEvent{
		Type:      domain.ImportEventStarted,
		BatchID:   summary.BatchID,
		Feed:      feed,
		FileName:  fileName,
		Timestamp: start,
	})

	var err error
	switch feed {
	case domain.FeedNRHourly:
		err = runPipeline(ctx, fileName, r, feed, summary, stats.NRHourlyKey, nrRecord, s.nrRepo.UpsertBatch)
	case domain.FeedLTEHourly:
		err = runPipeline(ctx, fileName, r, feed, summary, stats.LTEHourlyKey, lteRecord, s.lteRepo.UpsertBatch)
	case domain.FeedNRSiteWeekly:
		err = runPipeline(ctx, fileName, r, feed, summary, stats.SiteWeeklyKey, weeklyRecord, s.weeklyRepo.UpsertBatch)
	default:
		err = domain.ErrUnknownFeed
	}
	summary.DurationMs = s.now().Sub(start).Milliseconds()

	if err != nil {
		// 整批回滚，对调用方而言什么都没写入
		summary.Inserted, summary.Updated = 0, 0
		log.Printf("[Import] batch %s (%s, %s) failed after %dms: %v", summary.BatchID, feed, fileName, summary.DurationMs, err)
		s.metrics.ImportFailed(feed)
		s.publish(ctx, domain.ImportEvent{
			Type:      domain.ImportEventFailed,
			BatchID:   summary.BatchID,
			Feed:      feed,
			FileName:  fileName,
			Error:     err.Error(),
			Timestamp: s.now(),
		})
		return summary, err
	}

	if s.batchRepo != nil {
		if err := s.batchRepo.Create(ctx, summary); err != nil {
			log.Printf("[Import] Failed to record batch %s: %v", summary.BatchID, err)
		}
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = s.now()
	}

	log.Printf("[Import] batch %s (%s, %s): raw=%d skipped=%d derived=%d inserted=%d updated=%d in %dms",
		summary.BatchID, feed, fileName, summary.RawRecords, summary.SkippedRecords,
		summary.DerivedRecords, summary.Inserted, summary.Updated, summary.DurationMs)
	s.metrics.ImportCompleted(summary)
	s.publish(ctx, domain.ImportEvent{
		Type:      domain.ImportEventCompleted,
		BatchID:   summary.BatchID,
		Feed:      feed,
		FileName:  fileName,
		Summary:   summary,
		Timestamp: s.now(),
	})
	return summary, nil
}

// publish 事件发送失败只记录日志，不影响导入结果
func (s *ImportService) publish(ctx context.Context, ev domain.ImportEvent) {
	if err := s.sink.Publish(ctx, ev); err != nil {
		log.Printf("[Import] Failed to publish %s for batch %s: %v", ev.Type, ev.BatchID, err)
		s.metrics.EventPublishFailed()
	}
}

// runPipeline folds every decoded row into a request-scoped aggregator, derives
// one record per bucket and upserts them as a single batch.
func runPipeline[K stats.Key[K], R any](
	ctx context.Context,
	fileName string,
	r io.Reader,
	feed domain.Feed,
	summary *domain.ImportSummary,
	keyOf stats.KeyFunc[K],
	build func(stats.Bucket[K]) R,
	upsert func(context.Context, []R) (domain.UpsertResult, error),
) error {
	agg := stats.NewAggregator[K](keyOf)

	err := ingest.Decode(ctx, fileName, r, feed, func(row int, rec domain.RawRecord) error {
		summary.RawRecords++
		if err := agg.Fold(row, rec); err != nil {
			var skip *stats.SkipError
			if errors.As(err, &skip) {
				summary.AddSkip(skip.Error())
				return nil
			}
			return err
		}
		return nil
	}, ingest.WithSkipFunc(func(row int, reason string) {
		summary.RawRecords++
		summary.AddSkip((&stats.SkipError{Row: row, Reason: reason}).Error())
	}))
	if err != nil {
		return err
	}

	buckets := agg.Buckets()
	records := make([]R, len(buckets))
	for i, b := range buckets {
		records[i] = build(b)
	}
	summary.DerivedRecords = len(records)

	res, err := upsert(ctx, records)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", feed, err)
	}
	summary.Inserted = res.Inserted
	summary.Updated = res.Updated
	return nil
}

func nrRecord(b stats.Bucket[bucket.HourlyKey]) *domain.NRHourlyKPI {
	return &domain.NRHourlyKPI{
		Date:     b.Key.Date,
		Hour:     b.Key.Hour,
		Band:     b.Key.Band,
		Counters: b.Counters,
		KPIs:     kpi.Derive(b.Counters),
	}
}

func lteRecord(b stats.Bucket[bucket.HourlyKey]) *domain.LTEHourlyKPI {
	return &domain.LTEHourlyKPI{
		Date:     b.Key.Date,
		Hour:     b.Key.Hour,
		FreqBand: b.Key.Band,
		Counters: b.Counters,
		KPIs:     kpi.Derive(b.Counters),
	}
}

func weeklyRecord(b stats.Bucket[bucket.WeeklyKey]) *domain.SiteWeeklyKPI {
	return &domain.SiteWeeklyKPI{
		WeekStart:  b.Key.WeekStart,
		WeekNumber: bucket.ISOWeek(b.Key.WeekStart),
		Site:       b.Key.Site,
		Band:       b.Key.Band,
		Counters:   b.Counters,
		KPIs:       kpi.Derive(b.Counters),
	}
}
