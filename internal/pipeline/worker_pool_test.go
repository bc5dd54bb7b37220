package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
	"github.com/tarungka/rxwire/stream/streamtest"
)

func makeRecords(t *testing.T, n, keys int) []*models.Record {
	t.Helper()
	out := make([]*models.Record, n)
	for i := range n {
		key := []byte("key-" + strconv.Itoa(i%keys))
		rec, err := models.NewRecord("test", key, []byte(fmt.Sprintf(`{"seq":%d,"name":"item-%d"}`, i, i)))
		require.NoError(t, err)
		rec.Offset = int64(i)
		out[i] = rec
	}
	return out
}

func collect(t *testing.T, obs stream.Observable[*models.Record]) *streamtest.Recorder[[]*models.Record] {
	t.Helper()
	rec := streamtest.NewRecorder[[]*models.Record]()
	stream.ToList(obs).Subscribe(rec)
	require.True(t, rec.Wait(5*time.Second), "stream did not terminate")
	return rec
}

func TestWorkerPool_TransformsAllRecords(t *testing.T) {
	records := makeRecords(t, 200, 10)
	pool := NewWorkerPool(4, 8, uppercase, nil, zerolog.Nop())

	rec := collect(t, pool.Apply(stream.FromSlice(records)))
	require.True(t, rec.Completed())

	got := rec.Items()[0]
	require.Len(t, got, 200)
	for _, r := range got {
		assert.Contains(t, string(r.Value), `"ITEM-`)
	}

	stats := pool.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, uint64(200), stats.ProcessedRecords)
	assert.Equal(t, int32(0), stats.ActiveWorkers)
}

func TestWorkerPool_PreservesPerKeyOrder(t *testing.T) {
	records := makeRecords(t, 300, 7)
	jitter := func(r *models.Record) (*models.Record, error) {
		if r.Offset%3 == 0 {
			time.Sleep(time.Millisecond)
		}
		return r, nil
	}
	pool := NewWorkerPool(4, 2, jitter, nil, zerolog.Nop())

	got := collect(t, pool.Apply(stream.FromSlice(records))).Items()[0]
	require.Len(t, got, 300)

	last := map[string]int64{}
	for _, r := range got {
		prev, ok := last[string(r.Key)]
		if ok {
			assert.Greater(t, r.Offset, prev, "key %s out of order", r.Key)
		}
		last[string(r.Key)] = r.Offset
	}
}

func TestWorkerPool_LanesRunConcurrently(t *testing.T) {
	var active, maxActive atomic.Int32
	slow := func(r *models.Record) (*models.Record, error) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return r, nil
	}
	pool := NewWorkerPool(4, 4, slow, nil, zerolog.Nop())

	got := collect(t, pool.Apply(stream.FromSlice(makeRecords(t, 64, 64)))).Items()[0]
	assert.Len(t, got, 64)
	assert.Greater(t, maxActive.Load(), int32(1))
}

func TestWorkerPool_TransformErrorFailsStream(t *testing.T) {
	errBad := errors.New("bad record")
	records := makeRecords(t, 50, 5)
	failing := func(r *models.Record) (*models.Record, error) {
		if r.Offset == 17 {
			return nil, errBad
		}
		return r, nil
	}
	metrics := NewPipelineMetrics("p")
	pool := NewWorkerPool(3, 4, failing, metrics, zerolog.Nop())

	rec := collect(t, pool.Apply(stream.FromSlice(records)))
	assert.Equal(t, []stream.Kind{stream.KindError}, rec.Kinds())
	assert.ErrorIs(t, rec.Err(), errBad)
	assert.Equal(t, uint64(1), metrics.GetStats().FailedRecords)
}

func TestWorkerPool_SkipFailed(t *testing.T) {
	errBad := errors.New("bad record")
	failing := func(r *models.Record) (*models.Record, error) {
		if r.Offset%10 == 0 {
			return nil, errBad
		}
		return r, nil
	}
	pool := NewWorkerPool(2, 4, failing, nil, zerolog.Nop()).SkipFailed(true)

	rec := collect(t, pool.Apply(stream.FromSlice(makeRecords(t, 50, 5))))
	require.True(t, rec.Completed())
	assert.Len(t, rec.Items()[0], 45)
	assert.Equal(t, uint64(5), pool.Stats().FailedRecords)
}

func TestWorkerPool_NilResultDropsRecord(t *testing.T) {
	evenOnly := func(r *models.Record) (*models.Record, error) {
		if r.Offset%2 == 1 {
			return nil, nil
		}
		return r, nil
	}
	pool := NewWorkerPool(2, 4, evenOnly, nil, zerolog.Nop())

	got := collect(t, pool.Apply(stream.FromSlice(makeRecords(t, 10, 3)))).Items()[0]
	assert.Len(t, got, 5)
}

func TestWorkerPool_UpstreamErrorAfterDrain(t *testing.T) {
	errUp := errors.New("source broke")
	records := makeRecords(t, 3, 3)
	src := stream.Create(func(o stream.Observer[*models.Record]) stream.Subscription {
		for _, r := range records {
			o.OnNext(r)
		}
		o.OnError(errUp)
		return nil
	})

	rec := streamtest.NewRecorder[*models.Record]()
	NewWorkerPool(2, 4, nil, nil, zerolog.Nop()).Apply(src).Subscribe(rec)
	require.True(t, rec.Wait(time.Second))

	assert.Len(t, rec.Items(), 3, "queued records are delivered before the error")
	assert.ErrorIs(t, rec.Err(), errUp)
	kinds := rec.Kinds()
	assert.Equal(t, stream.KindError, kinds[len(kinds)-1])
}

func TestWorkerPool_Unsubscribe(t *testing.T) {
	ch := make(chan *models.Record)
	pool := NewWorkerPool(2, 1, nil, nil, zerolog.Nop())

	rec := streamtest.NewRecorder[*models.Record]()
	sub := pool.Apply(stream.FromChannel(context.Background(), ch)).Subscribe(rec)

	ch <- makeRecords(t, 1, 1)[0]
	sub.Unsubscribe()
	assert.True(t, sub.IsUnsubscribed())

	assert.False(t, rec.Wait(50*time.Millisecond), "no terminal notification after unsubscribe")
	assert.LessOrEqual(t, len(rec.Items()), 1)
}

func TestWorkerPool_ParallelSubscriptions(t *testing.T) {
	pool := NewWorkerPool(3, 4, identity, nil, zerolog.Nop())
	obs := pool.Apply(stream.FromSlice(makeRecords(t, 30, 6)))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := streamtest.NewRecorder[[]*models.Record]()
			stream.ToList(obs).Subscribe(rec)
			if assert.True(t, rec.Wait(5*time.Second)) {
				assert.Len(t, rec.Items()[0], 30)
			}
		}()
	}
	wg.Wait()
}
