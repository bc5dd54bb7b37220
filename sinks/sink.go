package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/tarungka/rxwire/checkpoint"
	"github.com/tarungka/rxwire/internal/models"
)

// ErrUnknownSink is returned by New for an unregistered sink type.
var ErrUnknownSink = errors.New("unknown sink type")

// Sink writes the result collection of a pipeline run.
type Sink interface {
	Connect(ctx context.Context) error
	Write(ctx context.Context, records []*models.Record) error
	Name() string
	Info() string
	Close() error
}

// Options carries process wide resources some sinks need.
type Options struct {
	// Checkpoints is used by the state sink instead of opening its own store.
	Checkpoints *checkpoint.Store
	// Stdout is where the stdout sink writes. Defaults to os.Stdout.
	Stdout io.Writer
}

type Option func(*Options)

func WithCheckpoints(store *checkpoint.Store) Option {
	return func(o *Options) { o.Checkpoints = store }
}

func WithStdout(w io.Writer) Option {
	return func(o *Options) { o.Stdout = w }
}

// Creator builds a Sink from its configuration.
type Creator func(cfg SinkConfig, opts Options) (Sink, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Creator{}
)

func init() {
	Register("file", NewFileSink)
	Register("stdout", NewStdoutSink)
	Register("kafka", NewKafkaSink)
	Register("elasticsearch", NewElasticSink)
	Register("state", NewStateSink)
}

// Register makes a sink type available to New.
func Register(connectionType string, creator Creator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[connectionType] = creator
}

// New builds the sink named by cfg.ConnectionType. The sink is not connected.
func New(cfg SinkConfig, opts ...Option) (Sink, error) {
	registryMu.RLock()
	creator, ok := registry[cfg.ConnectionType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, cfg.ConnectionType)
	}

	o := Options{Stdout: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return creator(cfg, o)
}

// Types lists the registered sink types in sorted order.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
