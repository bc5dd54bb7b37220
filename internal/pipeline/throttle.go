package pipeline

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tarungka/rxwire/stream"
)

// NewLimiter returns a limiter allowing perSecond items per second with the
// given burst, or nil when perSecond is not positive.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}

// Throttle forwards the items of source no faster than limiter allows. A nil
// limiter returns source unchanged. If ctx ends while an item waits, that and
// all later items are dropped and the stream fails with ctx's error on
// termination.
func Throttle[T any](ctx context.Context, source stream.Observable[T], limiter *rate.Limiter) stream.Observable[T] {
	if limiter == nil {
		return source
	}
	return stream.Create(func(observer stream.Observer[T]) stream.Subscription {
		return source.Subscribe(&throttled[T]{ctx: ctx, limiter: limiter, downstream: observer})
	})
}

type throttled[T any] struct {
	ctx        context.Context
	limiter    *rate.Limiter
	downstream stream.Observer[T]

	mu  sync.Mutex
	err error
}

func (t *throttled[T]) OnNext(item T) {
	if t.failure() != nil {
		return
	}
	if err := t.limiter.Wait(t.ctx); err != nil {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
		return
	}
	t.downstream.OnNext(item)
}

func (t *throttled[T]) OnError(err error) {
	t.downstream.OnError(err)
}

func (t *throttled[T]) OnCompleted() {
	if err := t.failure(); err != nil {
		t.downstream.OnError(err)
		return
	}
	t.downstream.OnCompleted()
}

func (t *throttled[T]) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
