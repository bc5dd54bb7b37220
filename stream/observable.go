package stream

import (
	"context"
)

// Observable is a source of notifications. Each Subscribe call starts an
// independent notification sequence for the given observer.
type Observable[T any] interface {
	Subscribe(observer Observer[T]) Subscription
}

// OnSubscribeFunc wraps a function that implements Subscribe.
type OnSubscribeFunc[T any] func(observer Observer[T]) Subscription

// Subscribe calls f. A nil Subscription returned by f is replaced with an
// empty one.
func (f OnSubscribeFunc[T]) Subscribe(observer Observer[T]) Subscription {
	if sub := f(observer); sub != nil {
		return sub
	}
	return EmptySubscription()
}

// Create builds an Observable from a subscribe function.
func Create[T any](fn func(observer Observer[T]) Subscription) Observable[T] {
	return OnSubscribeFunc[T](fn)
}

// FromSlice emits items synchronously, in order, then completes. Emission
// finishes inside Subscribe, so it cannot be cancelled part way.
func FromSlice[T any](items []T) Observable[T] {
	return OnSubscribeFunc[T](func(observer Observer[T]) Subscription {
		for _, item := range items {
			observer.OnNext(item)
		}
		observer.OnCompleted()
		return EmptySubscription()
	})
}

// Just emits the given items then completes.
func Just[T any](items ...T) Observable[T] {
	return FromSlice(items)
}

// Empty completes immediately without items.
func Empty[T any]() Observable[T] {
	return FromSlice[T](nil)
}

// Fail terminates immediately with err.
func Fail[T any](err error) Observable[T] {
	return OnSubscribeFunc[T](func(observer Observer[T]) Subscription {
		observer.OnError(err)
		return EmptySubscription()
	})
}

// FromChannel emits every value received on ch from a dedicated goroutine and
// completes when ch is closed. If ctx ends first the observer receives
// ctx's error. Unsubscribing stops the goroutine without further notifications.
func FromChannel[T any](ctx context.Context, ch <-chan T) Observable[T] {
	return OnSubscribeFunc[T](func(observer Observer[T]) Subscription {
		ctx, cancel := context.WithCancel(ctx)
		sub := NewSubscription(cancel)

		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					if !sub.IsUnsubscribed() {
						observer.OnError(context.Cause(ctx))
					}
					return
				case item, ok := <-ch:
					if !ok {
						if !sub.IsUnsubscribed() {
							observer.OnCompleted()
						}
						return
					}
					if sub.IsUnsubscribed() {
						return
					}
					observer.OnNext(item)
				}
			}
		}()

		return sub
	})
}
