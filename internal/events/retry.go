package events

import (
	"context"
	"log"
	"time"

	"github.com/awsl-project/ranstat/internal/domain"
)

// BackoffPolicy 根据已失败次数计算下一次重试前的等待时间
type BackoffPolicy interface {
	Delay(failures int) time.Duration
}

// FixedBackoff waits the same duration after every failure
type FixedBackoff struct {
	Duration time.Duration
}

func (p FixedBackoff) Delay(int) time.Duration {
	return p.Duration
}

// ExponentialBackoff doubles the wait after each failure: base, 2*base, 4*base ...
// Max caps the wait, 0 means no cap
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (p ExponentialBackoff) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	d := p.Base
	for i := 1; i < failures; i++ {
		d *= 2
		if p.Max > 0 && d > p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// DefaultBackoff 100ms, 200ms, 400ms ... 最多 2s
func DefaultBackoff() BackoffPolicy {
	return ExponentialBackoff{Base: 100 * time.Millisecond, Max: 2 * time.Second}
}

// Retrying wraps a broker sink and retries failed publishes.
// ctx cancellation stops the retries.
type Retrying struct {
	sink    Sink
	retries int
	policy  BackoffPolicy
	sleep   func(context.Context, time.Duration) error
}

// WithRetry returns sink unchanged when retries <= 0.
func WithRetry(sink Sink, retries int, policy BackoffPolicy) Sink {
	if retries <= 0 {
		return sink
	}
	if policy == nil {
		policy = DefaultBackoff()
	}
	return &Retrying{sink: sink, retries: retries, policy: policy, sleep: sleepCtx}
}

func (r *Retrying) Publish(ctx context.Context, ev domain.ImportEvent) error {
	err := r.sink.Publish(ctx, ev)
	for failures := 1; err != nil && failures <= r.retries; failures++ {
		delay := r.policy.Delay(failures)
		log.Printf("[Events] Publish %s for batch %s failed (attempt %d), retrying in %s: %v", ev.Type, ev.BatchID, failures, delay, err)
		if serr := r.sleep(ctx, delay); serr != nil {
			return err
		}
		err = r.sink.Publish(ctx, ev)
	}
	return err
}

func (r *Retrying) Close() error {
	return r.sink.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
