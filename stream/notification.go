package stream

import "fmt"

// Kind identifies which observer callback a Notification targets.
type Kind uint8

const (
	// KindNext carries an item.
	KindNext Kind = iota + 1
	// KindError carries a terminal error.
	KindError
	// KindCompleted signals successful termination.
	KindCompleted
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindCompleted:
		return "completed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Notification is one signal of the item/error/completed protocol.
//
// Only the field matching Kind is meaningful: Value for KindNext, Err for
// KindError, neither for KindCompleted.
type Notification[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// NewNext returns an item notification.
func NewNext[T any](v T) Notification[T] {
	return Notification[T]{Kind: KindNext, Value: v}
}

// NewError returns an error notification.
func NewError[T any](err error) Notification[T] {
	return Notification[T]{Kind: KindError, Err: err}
}

// NewCompleted returns a completion notification.
func NewCompleted[T any]() Notification[T] {
	return Notification[T]{Kind: KindCompleted}
}

// IsTerminal reports whether n ends the notification sequence.
func (n Notification[T]) IsTerminal() bool {
	return n.Kind == KindError || n.Kind == KindCompleted
}

// Accept delivers n to o.
func (n Notification[T]) Accept(o Observer[T]) {
	Dispatch(o, n)
}

func (n Notification[T]) String() string {
	switch n.Kind {
	case KindNext:
		return fmt.Sprintf("next(%v)", n.Value)
	case KindError:
		return fmt.Sprintf("error(%v)", n.Err)
	default:
		return n.Kind.String()
	}
}

// Dispatch calls the observer callback matching n.Kind. It panics on a Kind
// outside the three defined ones.
func Dispatch[T any](o Observer[T], n Notification[T]) {
	switch n.Kind {
	case KindNext:
		o.OnNext(n.Value)
	case KindError:
		o.OnError(n.Err)
	case KindCompleted:
		o.OnCompleted()
	default:
		panic(fmt.Errorf("stream: unknown notification kind %d", uint8(n.Kind)))
	}
}
