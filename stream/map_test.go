package stream_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/rxwire/stream"
	"github.com/tarungka/rxwire/stream/streamtest"
)

func TestMap(t *testing.T) {
	rec := streamtest.NewRecorder[string]()
	stream.Map(stream.Just(1, 2, 3), func(i int) (string, error) {
		return strconv.Itoa(i * 10), nil
	}).Subscribe(rec)

	assert.Equal(t, []string{"10", "20", "30"}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestMap_ErrorStopsStream(t *testing.T) {
	errOdd := errors.New("odd")
	src := &manualSource[int]{}
	rec := streamtest.NewRecorder[int]()
	stream.Map[int, int](src, func(i int) (int, error) {
		if i%2 == 1 {
			return 0, errOdd
		}
		return i, nil
	}).Subscribe(rec)

	src.observer.OnNext(2)
	src.observer.OnNext(3)
	src.observer.OnNext(4)
	src.observer.OnCompleted()

	assert.Equal(t, []stream.Kind{stream.KindNext, stream.KindError}, rec.Kinds())
	assert.ErrorIs(t, rec.Err(), errOdd)
	assert.True(t, src.sub.IsUnsubscribed(), "upstream must be cancelled after a map error")
}

func TestMap_ErrorFromSynchronousSourceCancelsUpstream(t *testing.T) {
	errStop := errors.New("stop")
	rec := streamtest.NewRecorder[int]()
	sub := stream.Map(stream.Just(1, 2, 3), func(i int) (int, error) {
		return 0, errStop
	}).Subscribe(rec)

	assert.True(t, sub.IsUnsubscribed())
	assert.Equal(t, []stream.Kind{stream.KindError}, rec.Kinds())
}

func TestPipe(t *testing.T) {
	upper := stream.MapOperator(func(s string) (string, error) { return strings.ToUpper(s), nil })
	exclaim := stream.MapOperator(func(s string) (string, error) { return s + "!", nil })

	rec := streamtest.NewRecorder[[]string]()
	stream.ToList(stream.Pipe(stream.Just("a", "b"), upper, nil, exclaim)).Subscribe(rec)

	require.Len(t, rec.Items(), 1)
	assert.Equal(t, []string{"A!", "B!"}, rec.Items()[0])
}
