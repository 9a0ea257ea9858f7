package service

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/kpi"
	"github.com/awsl-project/ranstat/internal/repository"
	"github.com/awsl-project/ranstat/internal/reshape"
)

// QueryService serves the read side: stored KPI records reshaped into API rows.
type QueryService struct {
	nrRepo     repository.NRHourlyKPIRepository
	lteRepo    repository.LTEHourlyKPIRepository
	weeklyRepo repository.SiteWeeklyKPIRepository
	batchRepo  repository.ImportBatchRepository
}

// NewQueryService creates a new query service
func NewQueryService(
	nrRepo repository.NRHourlyKPIRepository,
	lteRepo repository.LTEHourlyKPIRepository,
	weeklyRepo repository.SiteWeeklyKPIRepository,
	batchRepo repository.ImportBatchRepository,
) *QueryService {
	return &QueryService{
		nrRepo:     nrRepo,
		lteRepo:    lteRepo,
		weeklyRepo: weeklyRepo,
		batchRepo:  batchRepo,
	}
}

func (s *QueryService) Hourly(ctx context.Context, filter domain.KPIFilter) ([]reshape.HourlyRow, error) {
	records, err := s.nrRepo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return reshape.HourlyRows(records, filter), nil
}

func (s *QueryService) LTE(ctx context.Context, filter domain.KPIFilter) ([]reshape.HourlyRow, error) {
	records, err := s.lteRepo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return reshape.LTERows(records, filter), nil
}

func (s *QueryService) Weekly(ctx context.Context, filter domain.KPIFilter) ([]reshape.WeeklyRow, error) {
	records, err := s.weeklyRepo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return reshape.WeeklyRows(records, filter), nil
}

// ListImports returns the most recent import batches, newest first.
func (s *QueryService) ListImports(ctx context.Context, limit int) ([]*domain.ImportSummary, error) {
	if s.batchRepo == nil {
		return []*domain.ImportSummary{}, nil
	}
	return s.batchRepo.List(ctx, limit)
}

// FeedOverview 一个 feed 在查询区间内的汇总
// KPI 由区间内所有 bucket 的计数器求和后重新派生，不是 KPI 的平均值
type FeedOverview struct {
	Feed    domain.Feed `json:"feed"`
	Buckets int         `json:"buckets"`
	Bands   []string    `json:"bands"`
	Sites   []string    `json:"sites,omitempty"`
	domain.KPIs
}

// Overview is the dashboard summary across all feeds.
type Overview struct {
	Feeds []FeedOverview `json:"feeds"`
}

// Overview queries the three feeds concurrently and rolls each one up.
func (s *QueryService) Overview(ctx context.Context, filter domain.KPIFilter) (*Overview, error) {
	var (
		nrRaw  []*domain.NRHourlyKPI
		lteRaw []*domain.LTEHourlyKPI
		wkRaw  []*domain.SiteWeeklyKPI
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nrRaw, err = s.nrRepo.Query(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		lteRaw, err = s.lteRepo.Query(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		wkRaw, err = s.weeklyRepo.Query(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 行数、频段和 KPI 都基于同一份过滤后的记录
	nrRaw = reshape.Select(nrRaw, filter, reshape.KeepHourly)
	lteRaw = reshape.Select(lteRaw, filter, reshape.KeepLTE)
	wkRaw = reshape.Select(wkRaw, filter, reshape.KeepWeekly)

	nrRows := reshape.HourlyRows(nrRaw, filter)
	lteRows := reshape.LTERows(lteRaw, filter)
	weekly := reshape.WeeklyRows(wkRaw, filter)

	return &Overview{Feeds: []FeedOverview{
		{
			Feed:    domain.FeedNRHourly,
			Buckets: len(nrRows),
			Bands:   sorted(reshape.Bands(nrRows)),
			KPIs:    kpi.Derive(sumCounters(nrRaw, func(r *domain.NRHourlyKPI) domain.Counters { return r.Counters })),
		},
		{
			Feed:    domain.FeedLTEHourly,
			Buckets: len(lteRows),
			Bands:   sorted(reshape.Bands(lteRows)),
			KPIs:    kpi.Derive(sumCounters(lteRaw, func(r *domain.LTEHourlyKPI) domain.Counters { return r.Counters })),
		},
		{
			Feed:    domain.FeedNRSiteWeekly,
			Buckets: len(weekly),
			Bands:   sorted(reshape.WeeklyBands(weekly)),
			Sites:   reshape.Sites(weekly),
			KPIs:    kpi.Derive(sumCounters(wkRaw, func(r *domain.SiteWeeklyKPI) domain.Counters { return r.Counters })),
		},
	}}, nil
}

func sumCounters[T any](records []T, counters func(T) domain.Counters) domain.Counters {
	var total domain.Counters
	for _, r := range records {
		total.Add(counters(r))
	}
	return total
}

func sorted(s []string) []string {
	sort.Strings(s)
	return s
}
