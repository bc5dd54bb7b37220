package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/rxwire/internal/models"
)

func TestUppercase(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "object", value: `{"a":"x","n":1}`, want: `{"a":"X","n":1}`},
		{name: "nested", value: `{"a":{"b":["c",{"d":"e"}]}}`, want: `{"a":{"b":["C",{"d":"E"}]}}`},
		{name: "array", value: `["x","y"]`, want: `["X","Y"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := models.NewRecord("test", nil, []byte(tt.value))
			require.NoError(t, err)

			out, err := uppercase(in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out.Value))
			assert.JSONEq(t, tt.value, string(in.Value), "input record is left untouched")
		})
	}
}

func TestUppercase_PassesThroughNonJSON(t *testing.T) {
	for _, v := range []string{"", "plain text", `"scalar"`} {
		in, err := models.NewRecord("test", nil, []byte(v))
		require.NoError(t, err)
		out, err := uppercase(in)
		require.NoError(t, err)
		assert.Same(t, in, out)
	}
}

func TestChain(t *testing.T) {
	fn, err := Chain()
	require.NoError(t, err)
	in, _ := models.NewRecord("test", nil, []byte(`{"a":"b"}`))
	out, err := fn(in)
	require.NoError(t, err)
	assert.Same(t, in, out)

	fn, err = Chain("identity", "uppercase")
	require.NoError(t, err)
	out, err = fn(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"B"}`, string(out.Value))

	_, err = Chain("uppercase", "reverse")
	assert.ErrorIs(t, err, ErrUnknownTransform)
}

func TestChain_WrapsStepError(t *testing.T) {
	errStep := errors.New("nope")
	RegisterTransform("test-failing", func(*models.Record) (*models.Record, error) { return nil, errStep })

	fn, err := Chain("uppercase", "test-failing")
	require.NoError(t, err)
	in, _ := models.NewRecord("test", nil, []byte(`{}`))
	_, err = fn(in)
	assert.ErrorIs(t, err, errStep)
	assert.Contains(t, err.Error(), "test-failing")
	assert.Contains(t, TransformNames(), "test-failing")
}
