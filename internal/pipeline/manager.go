package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/sinks"
	"github.com/tarungka/rxwire/sources"
)

// ErrPipelineNotFound is returned for an unknown pipeline name.
var ErrPipelineNotFound = errors.New("pipeline not found")

// Manager holds the configured pipelines by name.
type Manager struct {
	mu        sync.RWMutex
	pipelines map[string]*DataPipeline
	names     []string
	logger    zerolog.Logger
}

func NewManager() *Manager {
	return &Manager{
		pipelines: make(map[string]*DataPipeline),
		logger:    logger.GetLogger("pipeline-manager"),
	}
}

// Build creates a pipeline for every config. Sink options are passed to
// every sink.
func (m *Manager) Build(cfgs []PipelineConfig, opts ...sinks.Option) error {
	for _, cfg := range cfgs {
		cfg = cfg.withDefaults()

		src, err := sources.New(cfg.Source)
		if err != nil {
			m.logger.Err(err).Str("pipeline", cfg.Name).Msg("Error when creating the data source")
			return fmt.Errorf("pipeline %q: %w", cfg.Name, err)
		}
		snk, err := sinks.New(cfg.Sink, opts...)
		if err != nil {
			m.logger.Err(err).Str("pipeline", cfg.Name).Msg("Error when creating the data sink")
			return fmt.Errorf("pipeline %q: %w", cfg.Name, err)
		}
		dp, err := NewDataPipeline(cfg, src, snk)
		if err != nil {
			return err
		}
		if err := m.Add(dp); err != nil {
			return err
		}
	}
	return nil
}

// Add registers dp under its name.
func (m *Manager) Add(dp *DataPipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pipelines[dp.Name()]; exists {
		return fmt.Errorf("duplicate pipeline name %q", dp.Name())
	}
	m.pipelines[dp.Name()] = dp
	m.names = append(m.names, dp.Name())
	m.logger.Debug().Str("pipeline", dp.Name()).Str("flow", dp.Show()).Msg("pipeline added")
	return nil
}

func (m *Manager) Get(name string) (*DataPipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dp, ok := m.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPipelineNotFound, name)
	}
	return dp, nil
}

// Names returns the pipeline names in the order they were added.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.names...)
}

// Run runs the named pipeline once.
func (m *Manager) Run(ctx context.Context, name string) (Summary, error) {
	dp, err := m.Get(name)
	if err != nil {
		return Summary{}, err
	}
	return dp.Run(ctx)
}

// RunAll runs the named pipelines concurrently, or every pipeline when names
// is empty. Summaries are returned in the order of names. The first failure
// cancels the other runs.
func (m *Manager) RunAll(ctx context.Context, names ...string) ([]Summary, error) {
	if len(names) == 0 {
		names = m.Names()
	}
	dps := make([]*DataPipeline, len(names))
	for i, n := range names {
		dp, err := m.Get(n)
		if err != nil {
			return nil, err
		}
		dps[i] = dp
	}

	summaries := make([]Summary, len(dps))
	g, gctx := errgroup.WithContext(ctx)
	for i, dp := range dps {
		g.Go(func() error {
			s, err := dp.Run(gctx)
			summaries[i] = s
			if err != nil {
				return fmt.Errorf("pipeline %q: %w", dp.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	return summaries, err
}

// Stats returns the metrics of every pipeline.
func (m *Manager) Stats() []PipelineStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PipelineStats, 0, len(m.names))
	for _, n := range m.names {
		out = append(out, m.pipelines[n].Metrics())
	}
	return out
}

// Stop cancels every running pipeline.
func (m *Manager) Stop() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.names {
		m.pipelines[n].Stop()
	}
}
