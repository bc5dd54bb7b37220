package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
)

// Observer hands the result collection of a collected record stream to a
// Sink and keeps the outcome.
type Observer struct {
	ctx    context.Context
	sink   Sink
	logger zerolog.Logger

	mu      sync.Mutex
	records []*models.Record
	err     error

	done chan struct{}
	once sync.Once
}

var _ stream.Observer[[]*models.Record] = (*Observer)(nil)

// NewObserver returns an Observer writing to sink with ctx.
func NewObserver(ctx context.Context, sink Sink) *Observer {
	return &Observer{
		ctx:    ctx,
		sink:   sink,
		logger: logger.GetLogger("sink").With().Str("sink", sink.Name()).Logger(),
		done:   make(chan struct{}),
	}
}

func (o *Observer) OnNext(records []*models.Record) {
	err := o.sink.Write(o.ctx, records)
	if err != nil {
		o.logger.Err(err).Int("records", len(records)).Msg("sink write failed")
		err = fmt.Errorf("sink %s: %w", o.sink.Name(), err)
	} else {
		o.logger.Debug().Int("records", len(records)).Msg("result written")
	}

	o.mu.Lock()
	o.records = records
	if o.err == nil {
		o.err = err
	}
	o.mu.Unlock()
}

func (o *Observer) OnError(err error) {
	o.mu.Lock()
	if o.err == nil {
		o.err = err
	}
	o.mu.Unlock()
	o.finish()
}

func (o *Observer) OnCompleted() {
	o.finish()
}

func (o *Observer) finish() {
	o.once.Do(func() { close(o.done) })
}

// Done is closed once the stream terminated.
func (o *Observer) Done() <-chan struct{} {
	return o.done
}

// Err returns the stream error or the sink write error, if any.
func (o *Observer) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Result returns the collection passed to the sink.
func (o *Observer) Result() []*models.Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.records
}
