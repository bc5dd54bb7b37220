package stream

import "github.com/rs/zerolog"

const defaultCollectorName = "tolist"

// Option configures a collecting operator.
type Option func(*config)

type config struct {
	logger   zerolog.Logger
	name     string
	capacity int

	// beforeDrain runs inside the recovered drain section. Tests use it to
	// simulate aggregation failures.
	beforeDrain func()
}

func newConfig(opts []Option) config {
	c := config{
		logger: zerolog.Nop(),
		name:   defaultCollectorName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.capacity < 0 {
		c.capacity = 0
	}
	return c
}

// WithLogger sets the logger used for lifecycle and failure events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithName labels log lines and errors produced by the operator.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithCapacityHint pre-sizes each subscription's accumulator.
func WithCapacityHint(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

func onDrain(fn func()) Option {
	return func(c *config) {
		c.beforeDrain = fn
	}
}
