package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/internal/partitioner"
	"github.com/tarungka/rxwire/stream"
)

// WorkerPool applies a Transform to a record stream on a fixed number of
// lanes. Records with the same key always run on the same lane and keep their
// relative order. Lanes emit downstream concurrently.
type WorkerPool struct {
	fn          Transform
	partitioner *partitioner.Partitioner[*models.Record]
	skipFailed  bool
	metrics     *PipelineMetrics
	logger      zerolog.Logger

	activeWorkers atomic.Int32
	processed     atomic.Uint64
	failed        atomic.Uint64
}

// NewWorkerPool creates a pool with the given number of lanes. bufferSize is the queue
// length of each lane.
func NewWorkerPool(workers, bufferSize int, fn Transform, metrics *PipelineMetrics, logger zerolog.Logger) *WorkerPool {
	if fn == nil {
		fn = identity
	}
	if metrics == nil {
		metrics = NewPipelineMetrics("")
	}
	if bufferSize <= 0 {
		bufferSize = workers * 10
	}
	return &WorkerPool{
		fn:          fn,
		partitioner: partitioner.NewPartitioner(workers, recordHash, partitioner.WithBufferSize[*models.Record](bufferSize)),
		metrics:     metrics,
		logger:      logger,
	}
}

// SkipFailed makes the pool drop records whose transform failed instead of
// failing the stream.
func (wp *WorkerPool) SkipFailed(skip bool) *WorkerPool {
	wp.skipFailed = skip
	return wp
}

// recordHash keys a record by its key, or by its ID when it has none.
func recordHash(rec *models.Record) uint64 {
	if len(rec.Key) > 0 {
		return partitioner.HashBytes(rec.Key)
	}
	return partitioner.HashBytes(rec.ID[:])
}

// Apply returns the transformed stream of source. The stream completes once
// source completed and every lane drained its queue. The first transform
// error, or an error of source, terminates it.
func (wp *WorkerPool) Apply(source stream.Observable[*models.Record]) stream.Observable[*models.Record] {
	return stream.Create(func(observer stream.Observer[*models.Record]) stream.Subscription {
		return wp.subscribe(source, observer)
	})
}

func (wp *WorkerPool) subscribe(source stream.Observable[*models.Record], downstream stream.Observer[*models.Record]) stream.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	run := &poolRun{
		pool:   wp,
		ctx:    gctx,
		queues: make([]chan *models.Record, wp.partitioner.Partitions()),
	}
	for i := range run.queues {
		q := make(chan *models.Record, wp.partitioner.BufferSize())
		run.queues[i] = q
		g.Go(func() error { return wp.worker(gctx, i, q, downstream) })
	}

	go func() {
		err := g.Wait()
		cancel()
		if run.cancelled.Load() {
			return
		}
		if err != nil {
			run.failed.Store(true)
			if up := run.upstream.Load(); up != nil {
				(*up).Unsubscribe()
			}
		} else {
			err = run.upstreamErr()
		}

		if err != nil {
			downstream.OnError(err)
			return
		}
		downstream.OnCompleted()
	}()

	upstream := source.Subscribe(run)
	run.upstream.Store(&upstream)
	if run.failed.Load() {
		upstream.Unsubscribe()
	}

	return stream.NewSubscription(func() {
		run.cancelled.Store(true)
		cancel()
		upstream.Unsubscribe()
	})
}

func (wp *WorkerPool) worker(ctx context.Context, id int, queue <-chan *models.Record, downstream stream.Observer[*models.Record]) error {
	wp.activeWorkers.Add(1)
	defer wp.activeWorkers.Add(-1)

	logger := wp.logger.With().Int("worker_id", id).Logger()
	logger.Debug().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Worker stopping")
			return ctx.Err()

		case rec, ok := <-queue:
			if !ok {
				logger.Debug().Msg("Queue closed, worker stopping")
				return nil
			}

			startTime := time.Now()
			out, err := wp.fn(rec)
			wp.metrics.RecordProcessingTime(time.Since(startTime))

			if err != nil {
				wp.failed.Add(1)
				wp.metrics.IncrementFailedRecords()
				logger.Error().Err(err).Str("record_id", rec.ID.String()).Msg("Record processing failed")
				if wp.skipFailed {
					continue
				}
				return fmt.Errorf("worker %d: record %s: %w", id, rec.ID, err)
			}

			wp.processed.Add(1)
			wp.metrics.IncrementProcessedRecords()
			if out == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			downstream.OnNext(out)
		}
	}
}

// poolRun feeds one subscription's upstream items into the lane queues.
type poolRun struct {
	pool   *WorkerPool
	ctx    context.Context
	queues []chan *models.Record

	closeOnce sync.Once
	mu        sync.Mutex
	err       error

	upstream  atomic.Pointer[stream.Subscription]
	failed    atomic.Bool
	cancelled atomic.Bool
}

func (r *poolRun) OnNext(rec *models.Record) {
	r.pool.metrics.IncrementRecordsRead()
	select {
	case r.queues[r.pool.partitioner.Partition(rec)] <- rec:
	case <-r.ctx.Done():
	}
}

func (r *poolRun) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.close()
}

func (r *poolRun) OnCompleted() {
	r.close()
}

func (r *poolRun) close() {
	r.closeOnce.Do(func() {
		for _, q := range r.queues {
			close(q)
		}
	})
}

func (r *poolRun) upstreamErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// WorkerPoolStats holds statistics for the worker pool.
type WorkerPoolStats struct {
	Workers          int    `json:"workers"`
	ActiveWorkers    int32  `json:"active_workers"`
	ProcessedRecords uint64 `json:"processed_records"`
	FailedRecords    uint64 `json:"failed_records"`
}

// Stats returns the current statistics of the worker pool.
func (wp *WorkerPool) Stats() WorkerPoolStats {
	return WorkerPoolStats{
		Workers:          wp.partitioner.Partitions(),
		ActiveWorkers:    wp.activeWorkers.Load(),
		ProcessedRecords: wp.processed.Load(),
		FailedRecords:    wp.failed.Load(),
	}
}
