package stats

import (
	"github.com/awsl-project/ranstat/internal/bucket"
	"github.com/awsl-project/ranstat/internal/domain"
)

// Key is satisfied by the comparable bucket keys.
type Key[K any] interface {
	comparable
	Less(K) bool
}

// KeyFunc derives a bucket key from a record, or a non-empty skip reason.
type KeyFunc[K any] func(rec domain.RawRecord) (K, string)

// Aggregator 计数器累加器
// 每次导入独占一个实例，不可跨请求共享；非并发安全
type Aggregator[K Key[K]] struct {
	keyOf   KeyFunc[K]
	buckets map[K]*domain.Counters
	folded  int
}

// NewAggregator creates an aggregator keyed by keyOf.
func NewAggregator[K Key[K]](keyOf KeyFunc[K]) *Aggregator[K] {
	return &Aggregator[K]{
		keyOf:   keyOf,
		buckets: make(map[K]*domain.Counters),
	}
}

// NewNRHourly creates an NR (date, hour, band) aggregator.
func NewNRHourly() *Aggregator[bucket.HourlyKey] {
	return NewAggregator[bucket.HourlyKey](NRHourlyKey)
}

// NewLTEHourly creates an LTE (date, hour, freq band) aggregator.
func NewLTEHourly() *Aggregator[bucket.HourlyKey] {
	return NewAggregator[bucket.HourlyKey](LTEHourlyKey)
}

// NewSiteWeekly creates an NR (week start, site, band) aggregator.
func NewSiteWeekly() *Aggregator[bucket.WeeklyKey] {
	return NewAggregator[bucket.WeeklyKey](SiteWeeklyKey)
}

// Fold adds one record to its bucket, creating the bucket on first sight.
// row is only used for the returned *SkipError.
func (a *Aggregator[K]) Fold(row int, rec domain.RawRecord) error {
	key, reason := a.keyOf(rec)
	if reason != "" {
		return &SkipError{Row: row, Reason: reason}
	}

	c := CountersFrom(rec)
	if existing, ok := a.buckets[key]; ok {
		existing.Add(c)
	} else {
		a.buckets[key] = &c
	}
	a.folded++
	return nil
}

// Len returns the number of distinct buckets.
func (a *Aggregator[K]) Len() int {
	return len(a.buckets)
}

// Folded returns the number of records folded so far.
func (a *Aggregator[K]) Folded() int {
	return a.folded
}

// Merge adds every bucket of o into a. o is left untouched.
func (a *Aggregator[K]) Merge(o *Aggregator[K]) {
	for key, c := range o.buckets {
		if existing, ok := a.buckets[key]; ok {
			existing.Add(*c)
		} else {
			copied := *c
			a.buckets[key] = &copied
		}
	}
	a.folded += o.folded
}

// Buckets returns the accumulated buckets sorted by key.
func (a *Aggregator[K]) Buckets() []Bucket[K] {
	result := make([]Bucket[K], 0, len(a.buckets))
	for key, c := range a.buckets {
		result = append(result, Bucket[K]{Key: key, Counters: *c})
	}
	SortBuckets(result)
	return result
}

// FoldAll folds a slice of records and returns the finished buckets and the
// skipped rows. Row numbers are 1-based positions in records.
func FoldAll[K Key[K]](keyOf KeyFunc[K], records []domain.RawRecord) ([]Bucket[K], []*SkipError) {
	a := NewAggregator[K](keyOf)
	var skipped []*SkipError
	for i, rec := range records {
		if err := a.Fold(i+1, rec); err != nil {
			skipped = append(skipped, err.(*SkipError))
		}
	}
	return a.Buckets(), skipped
}
