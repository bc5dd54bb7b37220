package stream

// Operator transforms one Observable into another.
type Operator[S, D any] func(source Observable[S]) Observable[D]

// Pipe applies ops to source in order.
func Pipe[T any](source Observable[T], ops ...Operator[T, T]) Observable[T] {
	out := source
	for _, op := range ops {
		if op == nil {
			continue
		}
		out = op(out)
	}
	return out
}
