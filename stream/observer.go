package stream

// Observer receives the notifications of a single subscription.
//
// OnNext may be called concurrently from several goroutines. OnError and
// OnCompleted are called at most once in total and only after every OnNext
// call of the same subscription has returned.
type Observer[T any] interface {
	// OnNext receives an item.
	OnNext(item T)
	// OnError receives the terminal error.
	OnError(err error)
	// OnCompleted signals that no more items will follow.
	OnCompleted()
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are no-ops.
type ObserverFuncs[T any] struct {
	Next      func(T)
	Error     func(error)
	Completed func()
}

var _ Observer[any] = ObserverFuncs[any]{}

func (f ObserverFuncs[T]) OnNext(item T) {
	if f.Next != nil {
		f.Next(item)
	}
}

func (f ObserverFuncs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f ObserverFuncs[T]) OnCompleted() {
	if f.Completed != nil {
		f.Completed()
	}
}
