package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrAggregation marks a failure while building the result collection.
	ErrAggregation = errors.New("stream: aggregation failed")

	// ErrDelivery marks a failure raised by the downstream observer while it
	// received the result collection or the completion.
	ErrDelivery = errors.New("stream: delivery failed")
)

// Phase is the step of the completion path in which a CollectError occurred.
type Phase uint8

const (
	PhaseDrain Phase = iota + 1
	PhaseDeliver
)

func (p Phase) String() string {
	switch p {
	case PhaseDrain:
		return "drain"
	case PhaseDeliver:
		return "deliver"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// CollectError is delivered through OnError when the completion path of a
// collecting operator fails.
//
// It matches ErrAggregation (PhaseDrain) or ErrDelivery (PhaseDeliver) with
// errors.Is, and Cause when Cause is itself an error chain.
type CollectError struct {
	Name  string
	Phase Phase
	Cause error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Name, e.Phase, e.Cause)
}

func (e *CollectError) Unwrap() []error {
	switch e.Phase {
	case PhaseDrain:
		return []error{ErrAggregation, e.Cause}
	case PhaseDeliver:
		return []error{ErrDelivery, e.Cause}
	default:
		return []error{e.Cause}
	}
}

// panicError converts a recovered value into an error, keeping error values
// in the chain.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
