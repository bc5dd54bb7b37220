package sinks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tarungka/rxwire/checkpoint"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/state"
)

// StateSink persists every result collection as a checkpoint. It uses the
// shared checkpoint store when one is given, otherwise it opens the backend
// named by the "backend" and "path" config values.
type StateSink struct {
	cfg   SinkConfig
	store *checkpoint.Store
	owned state.Backend

	mu   sync.Mutex
	last string
}

func NewStateSink(cfg SinkConfig, opts Options) (Sink, error) {
	return &StateSink{cfg: cfg, store: opts.Checkpoints}, nil
}

func (s *StateSink) Connect(context.Context) error {
	if s.store != nil {
		return nil
	}
	backend, err := state.Open(state.Config{
		Backend: s.cfg.String("backend", "memory"),
		Path:    s.cfg.Config["path"],
	})
	if err != nil {
		return fmt.Errorf("state sink %q: %w", s.cfg.Name, err)
	}
	store, err := checkpoint.NewStore(backend)
	if err != nil {
		backend.Close()
		return err
	}
	s.owned, s.store = backend, store
	return nil
}

func (s *StateSink) Write(_ context.Context, records []*models.Record) error {
	if s.store == nil {
		return fmt.Errorf("state sink %q: not connected", s.cfg.Name)
	}
	cp, err := s.store.Save(s.cfg.Name, records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.last = cp.ID
	s.mu.Unlock()
	return nil
}

// LastCheckpoint returns the ID of the latest checkpoint written.
func (s *StateSink) LastCheckpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *StateSink) Name() string { return s.cfg.Name }

func (s *StateSink) Info() string { return s.cfg.info() }

// Close releases the store and backend the sink opened itself.
func (s *StateSink) Close() error {
	if s.owned == nil {
		return nil
	}
	return errors.Join(s.store.Close(), s.owned.Close())
}
