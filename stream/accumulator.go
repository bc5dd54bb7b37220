package stream

import "sync"

// accumulator collects the items of one subscription. add is safe for
// concurrent use; drain and discard close it for good.
type accumulator[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
}

func newAccumulator[T any](capacity int) *accumulator[T] {
	return &accumulator[T]{items: make([]T, 0, capacity)}
}

// add appends item and reports whether it was accepted.
func (a *accumulator[T]) add(item T) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.items = append(a.items, item)
	return true
}

// drain closes the accumulator and returns a newly allocated copy of its
// items in insertion order. The result is never nil.
func (a *accumulator[T]) drain() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	out := make([]T, len(a.items))
	copy(out, a.items)
	a.items = nil
	return out
}

// discard closes the accumulator and drops its items.
func (a *accumulator[T]) discard() {
	a.mu.Lock()
	a.closed = true
	a.items = nil
	a.mu.Unlock()
}

func (a *accumulator[T]) size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}
