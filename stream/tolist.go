package stream

import (
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ToList returns an Observable that collects every item of source and, once
// source completes, emits them as a single slice followed by completion.
//
// Items may arrive concurrently. Items delivered by non-overlapping OnNext
// calls keep their order in the slice; truly concurrent ones end up in an
// unspecified relative order.
//
// An error from source is forwarded unchanged and no slice is emitted. A panic
// raised while building the slice or inside the observer's OnNext/OnCompleted
// is recovered and delivered through OnError as a *CollectError. A panic raised
// by the observer's OnError is not recovered.
//
// The emitted slice is freshly allocated for every subscription and owned by
// the observer, which may modify it.
func ToList[T any](source Observable[T], opts ...Option) Observable[[]T] {
	return &toList[T]{source: source, cfg: newConfig(opts)}
}

// ToSortedList is ToList followed by an in-place sort of the emitted slice
// using cmp.
func ToSortedList[T any](source Observable[T], cmp func(a, b T) int, opts ...Option) Observable[[]T] {
	return Map(ToList(source, opts...), func(items []T) ([]T, error) {
		slices.SortFunc(items, cmp)
		return items, nil
	})
}

type toList[T any] struct {
	source Observable[T]
	cfg    config
}

func (o *toList[T]) Subscribe(observer Observer[[]T]) Subscription {
	c := &collector[T]{
		downstream: observer,
		acc:        newAccumulator[T](o.cfg.capacity),
		cfg:        o.cfg,
		logger:     o.cfg.logger.With().Str("operator", o.cfg.name).Logger(),
	}
	c.logger.Trace().Msg("subscribing to source")

	upstream := o.source.Subscribe(c)
	return NewSubscription(func() {
		c.cancel()
		upstream.Unsubscribe()
	})
}

const (
	stateActive uint32 = iota
	stateTerminated
	stateCancelled
)

// collector is the per-subscription relay between source and downstream.
type collector[T any] struct {
	downstream Observer[[]T]
	acc        *accumulator[T]
	cfg        config
	logger     zerolog.Logger
	state      atomic.Uint32
}

func (c *collector[T]) OnNext(item T) {
	if c.state.Load() != stateActive || !c.acc.add(item) {
		c.logger.Debug().Msg("dropping item after termination")
	}
}

func (c *collector[T]) OnError(err error) {
	if !c.state.CompareAndSwap(stateActive, stateTerminated) {
		c.logger.Debug().Err(err).Msg("dropping error after termination")
		return
	}
	c.acc.discard()
	c.downstream.OnError(err)
}

func (c *collector[T]) OnCompleted() {
	if !c.state.CompareAndSwap(stateActive, stateTerminated) {
		return
	}

	items, err := c.drain()
	if err != nil {
		c.fail(err)
		return
	}
	c.logger.Trace().Int("items", len(items)).Msg("source completed")

	if err := c.deliver(items); err != nil {
		c.fail(err)
	}
}

func (c *collector[T]) cancel() {
	if c.state.CompareAndSwap(stateActive, stateCancelled) {
		c.logger.Trace().Int("discarded", c.acc.size()).Msg("subscription cancelled")
		c.acc.discard()
	}
}

func (c *collector[T]) drain() (items []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.acc.discard()
			err = &CollectError{Name: c.cfg.name, Phase: PhaseDrain, Cause: panicError(r)}
		}
	}()
	if c.cfg.beforeDrain != nil {
		c.cfg.beforeDrain()
	}
	return c.acc.drain(), nil
}

func (c *collector[T]) deliver(items []T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CollectError{Name: c.cfg.name, Phase: PhaseDeliver, Cause: panicError(r)}
		}
	}()
	c.downstream.OnNext(items)
	c.downstream.OnCompleted()
	return nil
}

// fail reports a completion-path failure. A panic from the downstream
// OnError propagates to the caller.
func (c *collector[T]) fail(err error) {
	c.logger.Error().Err(err).Msg("collect failed")
	c.downstream.OnError(err)
}
