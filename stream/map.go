package stream

import "sync/atomic"

// MapFunc maps an item to another item. A non-nil error terminates the stream.
type MapFunc[S, D any] func(item S) (D, error)

// Map applies fn to every item of source.
//
// The first error returned by fn is delivered to the observer through OnError,
// the upstream subscription is cancelled and every later notification is dropped.
// Concurrent OnNext calls are passed through concurrently.
func Map[S, D any](source Observable[S], fn MapFunc[S, D]) Observable[D] {
	return OnSubscribeFunc[D](func(observer Observer[D]) Subscription {
		m := &mapObserver[S, D]{downstream: observer, fn: fn}
		upstream := source.Subscribe(m)
		m.upstream.Store(&upstream)
		if m.failed.Load() {
			upstream.Unsubscribe()
		}
		return upstream
	})
}

// MapOperator returns Map as an Operator.
func MapOperator[S, D any](fn MapFunc[S, D]) Operator[S, D] {
	return func(source Observable[S]) Observable[D] {
		return Map(source, fn)
	}
}

type mapObserver[S, D any] struct {
	downstream Observer[D]
	fn         MapFunc[S, D]
	stopped    atomic.Bool
	failed     atomic.Bool
	upstream   atomic.Pointer[Subscription]
}

func (m *mapObserver[S, D]) OnNext(item S) {
	if m.stopped.Load() {
		return
	}
	out, err := m.fn(item)
	if err != nil {
		if m.stopped.CompareAndSwap(false, true) {
			m.failed.Store(true)
			if sub := m.upstream.Load(); sub != nil {
				(*sub).Unsubscribe()
			}
			m.downstream.OnError(err)
		}
		return
	}
	m.downstream.OnNext(out)
}

func (m *mapObserver[S, D]) OnError(err error) {
	if m.stopped.CompareAndSwap(false, true) {
		m.downstream.OnError(err)
	}
}

func (m *mapObserver[S, D]) OnCompleted() {
	if m.stopped.CompareAndSwap(false, true) {
		m.downstream.OnCompleted()
	}
}
