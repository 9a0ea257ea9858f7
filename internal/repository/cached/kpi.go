package cached

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/repository"
)

// DefaultMaxEntries 每张表最多缓存的过滤条件数
const DefaultMaxEntries = 256

// queryCache 按过滤条件缓存查询结果；任何写入都清空整张表的缓存
type queryCache[T any] struct {
	mu      sync.RWMutex
	entries map[string][]*T
	max     int
	// gen 每次 invalidate 加一；查库期间发生过写入的结果不回填
	gen uint64
}

func newQueryCache[T any](max int) *queryCache[T] {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &queryCache[T]{entries: make(map[string][]*T), max: max}
}

func (c *queryCache[T]) get(key string) ([]*T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rows, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	result := make([]*T, len(rows))
	copy(result, rows)
	return result, true
}

func (c *queryCache[T]) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// put stores rows loaded at generation gen. It is a no-op when a write
// invalidated the cache after the load started.
func (c *queryCache[T]) put(key string, rows []*T, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	// 满了直接清空，过滤条件组合通常很少
	if len(c.entries) >= c.max {
		c.entries = make(map[string][]*T)
	}
	stored := make([]*T, len(rows))
	copy(stored, rows)
	c.entries[key] = stored
}

func (c *queryCache[T]) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]*T)
	c.gen++
}

func (c *queryCache[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// readThrough 命中缓存直接返回，否则查库并写入缓存
func readThrough[T any](ctx context.Context, c *queryCache[T], filter domain.KPIFilter, load func(context.Context, domain.KPIFilter) ([]*T, error)) ([]*T, error) {
	key := filterKey(filter)
	if rows, ok := c.get(key); ok {
		return rows, nil
	}
	gen := c.generation()
	rows, err := load(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.put(key, rows, gen)
	return rows, nil
}

// filterKey 规范化过滤条件：频段大小写、顺序不影响命中
func filterKey(f domain.KPIFilter) string {
	var b strings.Builder
	writeDay := func(t *time.Time) {
		if t != nil {
			b.WriteString(t.UTC().Format("2006-01-02"))
		}
		b.WriteByte('|')
	}
	writeDay(f.Start)
	writeDay(f.End)

	bands := make([]string, len(f.Bands))
	for i, band := range f.Bands {
		bands[i] = strings.ToLower(strings.TrimSpace(band))
	}
	sort.Strings(bands)
	b.WriteString(strings.Join(bands, ","))
	b.WriteByte('|')
	if f.Site != nil {
		b.WriteString(strings.ToLower(*f.Site))
	}
	return b.String()
}

// ==================== NR hourly ====================

type NRHourlyKPIRepository struct {
	repo  repository.NRHourlyKPIRepository
	cache *queryCache[domain.NRHourlyKPI]
}

func NewNRHourlyKPIRepository(repo repository.NRHourlyKPIRepository, maxEntries int) *NRHourlyKPIRepository {
	return &NRHourlyKPIRepository{repo: repo, cache: newQueryCache[domain.NRHourlyKPI](maxEntries)}
}

func (r *NRHourlyKPIRepository) UpsertBatch(ctx context.Context, records []*domain.NRHourlyKPI) (domain.UpsertResult, error) {
	// 失败也清空
	defer r.cache.invalidate()
	return r.repo.UpsertBatch(ctx, records)
}

func (r *NRHourlyKPIRepository) Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.NRHourlyKPI, error) {
	return readThrough(ctx, r.cache, filter, r.repo.Query)
}

func (r *NRHourlyKPIRepository) Count(ctx context.Context) (int64, error) {
	return r.repo.Count(ctx)
}

func (r *NRHourlyKPIRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	defer r.cache.invalidate()
	return r.repo.DeleteOlderThan(ctx, before)
}

// ==================== LTE hourly ====================

type LTEHourlyKPIRepository struct {
	repo  repository.LTEHourlyKPIRepository
	cache *queryCache[domain.LTEHourlyKPI]
}

func NewLTEHourlyKPIRepository(repo repository.LTEHourlyKPIRepository, maxEntries int) *LTEHourlyKPIRepository {
	return &LTEHourlyKPIRepository{repo: repo, cache: newQueryCache[domain.LTEHourlyKPI](maxEntries)}
}

func (r *LTEHourlyKPIRepository) UpsertBatch(ctx context.Context, records []*domain.LTEHourlyKPI) (domain.UpsertResult, error) {
	defer r.cache.invalidate()
	return r.repo.UpsertBatch(ctx, records)
}

func (r *LTEHourlyKPIRepository) Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.LTEHourlyKPI, error) {
	return readThrough(ctx, r.cache, filter, r.repo.Query)
}

func (r *LTEHourlyKPIRepository) Count(ctx context.Context) (int64, error) {
	return r.repo.Count(ctx)
}

func (r *LTEHourlyKPIRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	defer r.cache.invalidate()
	return r.repo.DeleteOlderThan(ctx, before)
}

// ==================== NR site weekly ====================

type SiteWeeklyKPIRepository struct {
	repo  repository.SiteWeeklyKPIRepository
	cache *queryCache[domain.SiteWeeklyKPI]
}

func NewSiteWeeklyKPIRepository(repo repository.SiteWeeklyKPIRepository, maxEntries int) *SiteWeeklyKPIRepository {
	return &SiteWeeklyKPIRepository{repo: repo, cache: newQueryCache[domain.SiteWeeklyKPI](maxEntries)}
}

func (r *SiteWeeklyKPIRepository) UpsertBatch(ctx context.Context, records []*domain.SiteWeeklyKPI) (domain.UpsertResult, error) {
	defer r.cache.invalidate()
	return r.repo.UpsertBatch(ctx, records)
}

func (r *SiteWeeklyKPIRepository) Query(ctx context.Context, filter domain.KPIFilter) ([]*domain.SiteWeeklyKPI, error) {
	return readThrough(ctx, r.cache, filter, r.repo.Query)
}

func (r *SiteWeeklyKPIRepository) Count(ctx context.Context) (int64, error) {
	return r.repo.Count(ctx)
}

func (r *SiteWeeklyKPIRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	defer r.cache.invalidate()
	return r.repo.DeleteOlderThan(ctx, before)
}
