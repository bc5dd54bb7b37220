package state

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get for a missing bucket or key.
	ErrNotFound = errors.New("state: not found")
	// ErrClosed is returned by every operation on a closed backend.
	ErrClosed = errors.New("state: backend closed")
)

// Backend is a bucketed key-value store for pipeline state.
type Backend interface {
	// Put stores value under bucket/key, replacing any previous value.
	Put(bucket, key string, value []byte) error
	// Get returns a copy of the value stored under bucket/key.
	Get(bucket, key string) ([]byte, error)
	// Keys returns the keys of bucket in ascending order.
	Keys(bucket string) ([]string, error)
	// Close releases the backend.
	Close() error
}

// Config selects and configures a Backend.
type Config struct {
	Backend string `koanf:"backend" json:"backend"`
	Path    string `koanf:"path" json:"path"`
}

// Open creates the backend named by cfg.Backend: "memory" (the default),
// "badger" or "bolt".
func Open(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewInMemoryBackend(), nil
	case "badger":
		return OpenBadger(cfg.Path)
	case "bolt", "bbolt":
		return OpenBolt(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported state backend: %s", cfg.Backend)
	}
}
