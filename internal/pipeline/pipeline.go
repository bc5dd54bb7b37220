package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/sinks"
	"github.com/tarungka/rxwire/sources"
	"github.com/tarungka/rxwire/stream"
)

// ErrAlreadyRunning is returned by Run while a previous run is in progress.
var ErrAlreadyRunning = errors.New("pipeline is already running")

// Summary describes a finished run.
type Summary struct {
	Pipeline   string           `json:"pipeline"`
	Count      int              `json:"count"`
	Duration   time.Duration    `json:"duration"`
	Checkpoint string           `json:"checkpoint,omitempty"`
	Records    []*models.Record `json:"-"`
}

// checkpointer is implemented by sinks that persist each result.
type checkpointer interface {
	LastCheckpoint() string
}

// DataPipeline reads a source to completion, transforms every record on a
// worker pool, collects the results into one list and writes it to the sink.
type DataPipeline struct {
	// pipeline is running
	open atomic.Bool

	cfg    PipelineConfig
	Source sources.Source
	Sink   sinks.Sink

	pool    *WorkerPool
	limiter *rate.Limiter
	metrics *PipelineMetrics
	logger  zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewDataPipeline creates a pipeline from cfg over an unconnected source and
// sink.
func NewDataPipeline(cfg PipelineConfig, source sources.Source, sink sinks.Sink) (*DataPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	fn, err := Chain(cfg.Transforms...)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", cfg.Name, err)
	}

	l := logger.GetLogger("pipeline").With().Str("pipeline", cfg.Name).Logger()
	metrics := NewPipelineMetrics(cfg.Name)
	return &DataPipeline{
		cfg:     cfg,
		Source:  source,
		Sink:    sink,
		pool:    NewWorkerPool(cfg.Parallelism, cfg.BufferSize, fn, metrics, l).SkipFailed(cfg.SkipFailed),
		limiter: NewLimiter(cfg.RateLimit, cfg.Burst),
		metrics: metrics,
		logger:  l,
	}, nil
}

// Run connects the sink, opens the source and blocks until the result was
// delivered to the sink or ctx ended. Only one run may be active at a time.
func (dp *DataPipeline) Run(pctx context.Context) (summary Summary, err error) {
	if !dp.open.CompareAndSwap(false, true) {
		return Summary{}, fmt.Errorf("%s: %w", dp.cfg.Name, ErrAlreadyRunning)
	}
	defer dp.open.Store(false)

	ctx, cancel := context.WithCancel(pctx)
	dp.setCancel(cancel)
	defer func() {
		dp.setCancel(nil)
		cancel()
	}()

	start := time.Now()
	summary.Pipeline = dp.cfg.Name
	defer func() {
		summary.Duration = time.Since(start)
		dp.metrics.RecordRun(summary.Count, err)
		if err != nil {
			dp.logger.Err(err).Msg("pipeline run failed")
		} else {
			dp.logger.Info().Int("records", summary.Count).Dur("duration", summary.Duration).Msg("pipeline run done")
		}
	}()

	if err := dp.Sink.Connect(ctx); err != nil {
		return summary, fmt.Errorf("connect sink: %w", err)
	}
	defer func() {
		if cerr := dp.Sink.Close(); cerr != nil {
			dp.logger.Warn().Err(cerr).Msg("error closing sink")
		}
	}()

	records, err := dp.Source.Open(ctx)
	if err != nil {
		return summary, fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := dp.Source.Close(); cerr != nil {
			dp.logger.Warn().Err(cerr).Msg("error closing source")
		}
	}()

	observer := sinks.NewObserver(ctx, dp.Sink)
	sub := dp.collect(ctx, records).Subscribe(observer)

	select {
	case <-observer.Done():
		err = observer.Err()
	case <-ctx.Done():
		sub.Unsubscribe()
		err = context.Cause(ctx)
	}
	if err != nil {
		return summary, err
	}

	summary.Records = observer.Result()
	summary.Count = len(summary.Records)
	if c, ok := dp.Sink.(checkpointer); ok {
		summary.Checkpoint = c.LastCheckpoint()
	}
	return summary, nil
}

// collect chains throttle, worker pool and list collection over records.
func (dp *DataPipeline) collect(ctx context.Context, records stream.Observable[*models.Record]) stream.Observable[[]*models.Record] {
	processed := stream.Pipe(records,
		func(in stream.Observable[*models.Record]) stream.Observable[*models.Record] {
			return Throttle(ctx, in, dp.limiter)
		},
		dp.pool.Apply,
	)
	opts := []stream.Option{
		stream.WithName(dp.cfg.Name),
		stream.WithLogger(dp.logger),
		stream.WithCapacityHint(dp.cfg.BufferSize),
	}
	if dp.cfg.Sort {
		return stream.ToSortedList(processed, byPosition, opts...)
	}
	return stream.ToList(processed, opts...)
}

func byPosition(a, b *models.Record) int {
	return cmp.Or(
		cmp.Compare(a.Partition, b.Partition),
		cmp.Compare(a.Offset, b.Offset),
	)
}

func (dp *DataPipeline) setCancel(cancel context.CancelFunc) {
	dp.mu.Lock()
	dp.cancel = cancel
	dp.mu.Unlock()
}

// Stop cancels the active run, if any.
func (dp *DataPipeline) Stop() bool {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.cancel == nil {
		return false
	}
	dp.logger.Info().Msgf("Closing data pipeline: %s", dp.Show())
	dp.cancel()
	return true
}

// Running reports whether a run is in progress.
func (dp *DataPipeline) Running() bool {
	return dp.open.Load()
}

func (dp *DataPipeline) Name() string { return dp.cfg.Name }

func (dp *DataPipeline) Config() PipelineConfig { return dp.cfg }

func (dp *DataPipeline) Metrics() PipelineStats { return dp.metrics.GetStats() }

func (dp *DataPipeline) WorkerStats() WorkerPoolStats { return dp.pool.Stats() }

// Show returns "source name -> sink name".
func (dp *DataPipeline) Show() string {
	return dp.Source.Info() + " -> " + dp.Sink.Info()
}
