package sources

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
)

// ErrUnknownSource is returned by New for an unregistered source type.
var ErrUnknownSource = errors.New("unknown source type")

// Source produces the records of a pipeline.
//
// Open connects to the backing system and returns the record stream. Every
// subscription to the stream reads independently unless the implementation
// says otherwise. Close releases the connection.
type Source interface {
	Open(ctx context.Context) (stream.Observable[*models.Record], error)
	Name() string
	Info() string
	Close() error
}

// Creator builds a Source from its configuration.
type Creator func(cfg SourceConfig) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Creator{}
)

func init() {
	Register("kafka", NewKafkaSource)
	Register("mongo", NewMongoSource)
	Register("etcd", NewEtcdSource)
	Register("file", NewFileSource)
	Register("static", NewStaticSource)
}

// Register makes a source type available to New. Registering the same type
// twice replaces the previous creator.
func Register(connectionType string, creator Creator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[connectionType] = creator
}

// New builds the source named by cfg.ConnectionType.
func New(cfg SourceConfig) (Source, error) {
	registryMu.RLock()
	creator, ok := registry[cfg.ConnectionType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.ConnectionType)
	}
	return creator(cfg)
}

// Types lists the registered source types in sorted order.
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
