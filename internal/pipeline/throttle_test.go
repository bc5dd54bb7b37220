package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/rxwire/stream"
	"github.com/tarungka/rxwire/stream/streamtest"
)

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 10))
	assert.Nil(t, NewLimiter(-1, 10))

	l := NewLimiter(5, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}

func TestThrottle_NilLimiterIsPassThrough(t *testing.T) {
	rec := streamtest.NewRecorder[int]()
	Throttle(context.Background(), stream.Just(1, 2, 3), nil).Subscribe(rec)
	assert.Equal(t, []int{1, 2, 3}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestThrottle_LimitsRate(t *testing.T) {
	rec := streamtest.NewRecorder[[]int]()
	start := time.Now()
	stream.ToList(Throttle(context.Background(), stream.Just(1, 2, 3, 4, 5), NewLimiter(100, 1))).Subscribe(rec)

	require.True(t, rec.Completed())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.Items()[0])
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestThrottle_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := streamtest.NewRecorder[[]int]()
	stream.ToList(Throttle(ctx, stream.Just(1, 2), NewLimiter(1, 1))).Subscribe(rec)

	assert.Equal(t, []stream.Kind{stream.KindError}, rec.Kinds())
	assert.ErrorIs(t, rec.Err(), context.Canceled)
}
