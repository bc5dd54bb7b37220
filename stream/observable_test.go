package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/rxwire/stream"
	"github.com/tarungka/rxwire/stream/streamtest"
)

func TestCreate_NilSubscriptionReplaced(t *testing.T) {
	src := stream.Create(func(o stream.Observer[int]) stream.Subscription {
		o.OnCompleted()
		return nil
	})

	sub := src.Subscribe(streamtest.NewRecorder[int]())
	require.NotNil(t, sub)
	sub.Unsubscribe()
}

func TestFromSlice_EmitsSynchronously(t *testing.T) {
	rec := streamtest.NewRecorder[string]()
	sub := stream.FromSlice([]string{"a", "b", "c"}).Subscribe(rec)

	assert.Equal(t, []string{"a", "b", "c"}, rec.Items(), "all items are delivered before Subscribe returns")
	assert.True(t, rec.Completed())

	require.NotNil(t, sub)
	sub.Unsubscribe()
	assert.True(t, sub.IsUnsubscribed())
	assert.Len(t, rec.Notifications(), 4)
}

func TestFromChannel_ContextCancelledEmitsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan int)
	rec := streamtest.NewRecorder[int]()
	stream.FromChannel(ctx, ch).Subscribe(rec)

	ch <- 1
	cancel()

	require.True(t, rec.Wait(time.Second))
	assert.Equal(t, []int{1}, rec.Items())
	assert.ErrorIs(t, rec.Err(), context.Canceled)
}

func TestFromChannel_UnsubscribeIsSilent(t *testing.T) {
	ch := make(chan int)
	rec := streamtest.NewRecorder[int]()
	sub := stream.FromChannel(context.Background(), ch).Subscribe(rec)

	ch <- 1
	sub.Unsubscribe()
	close(ch)

	assert.False(t, rec.Wait(50*time.Millisecond))
	assert.LessOrEqual(t, len(rec.Items()), 1)
}
