package stream_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/rxwire/stream"
	"github.com/tarungka/rxwire/stream/streamtest"
)

func TestNotification_Dispatch(t *testing.T) {
	errBoom := errors.New("boom")
	tests := []struct {
		name     string
		n        stream.Notification[int]
		terminal bool
		str      string
	}{
		{name: "next", n: stream.NewNext(7), terminal: false, str: "next(7)"},
		{name: "error", n: stream.NewError[int](errBoom), terminal: true, str: "error(boom)"},
		{name: "completed", n: stream.NewCompleted[int](), terminal: true, str: "completed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := streamtest.NewRecorder[int]()
			tt.n.Accept(rec)

			got := rec.Notifications()
			require.Len(t, got, 1)
			assert.Equal(t, tt.n.Kind, got[0].Kind)
			assert.Equal(t, tt.terminal, tt.n.IsTerminal())
			assert.Equal(t, tt.str, tt.n.String())
		})
	}
}

func TestNotification_DispatchUnknownKindPanics(t *testing.T) {
	rec := streamtest.NewRecorder[int]()
	assert.Panics(t, func() {
		stream.Dispatch[int](rec, stream.Notification[int]{Kind: stream.Kind(42)})
	})
	assert.Empty(t, rec.Notifications())
	assert.Equal(t, "kind(42)", stream.Kind(42).String())
}
