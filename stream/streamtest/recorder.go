// Package streamtest provides helpers for testing stream observers and
// operators.
package streamtest

import (
	"sync"
	"time"

	"github.com/tarungka/rxwire/stream"
)

// Recorder is an Observer that records every notification it receives.
//
// Recorder is safe under concurrent OnNext calls.
type Recorder[T any] struct {
	mu            sync.Mutex
	notifications []stream.Notification[T]
	done          chan struct{}
	doneOnce      sync.Once
}

var _ stream.Observer[any] = (*Recorder[any])(nil)

// NewRecorder constructs a Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{done: make(chan struct{})}
}

func (r *Recorder[T]) OnNext(item T) {
	r.record(stream.NewNext(item))
}

func (r *Recorder[T]) OnError(err error) {
	r.record(stream.NewError[T](err))
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Recorder[T]) OnCompleted() {
	r.record(stream.NewCompleted[T]())
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Recorder[T]) record(n stream.Notification[T]) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()
}

// Notifications returns a snapshot copy of everything recorded so far.
func (r *Recorder[T]) Notifications() []stream.Notification[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]stream.Notification[T], len(r.notifications))
	copy(cp, r.notifications)
	return cp
}

// Kinds returns the kinds of the recorded notifications in order.
func (r *Recorder[T]) Kinds() []stream.Kind {
	ns := r.Notifications()
	out := make([]stream.Kind, len(ns))
	for i, n := range ns {
		out[i] = n.Kind
	}
	return out
}

// Items returns the recorded item payloads in order.
func (r *Recorder[T]) Items() []T {
	var out []T
	for _, n := range r.Notifications() {
		if n.Kind == stream.KindNext {
			out = append(out, n.Value)
		}
	}
	return out
}

// Err returns the first recorded error, if any.
func (r *Recorder[T]) Err() error {
	for _, n := range r.Notifications() {
		if n.Kind == stream.KindError {
			return n.Err
		}
	}
	return nil
}

// Completed reports whether a completion was recorded.
func (r *Recorder[T]) Completed() bool {
	for _, n := range r.Notifications() {
		if n.Kind == stream.KindCompleted {
			return true
		}
	}
	return false
}

// Done is closed on the first terminal notification.
func (r *Recorder[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until a terminal notification was recorded or timeout elapses.
// It reports whether the recorder terminated.
func (r *Recorder[T]) Wait(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
