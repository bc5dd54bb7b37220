package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_EventTime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{name: "rfc3339", value: `{"eventTime":"2024-05-01T10:00:00Z"}`, want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{name: "missing", value: `{"a":1}`},
		{name: "unparseable", value: `{"eventTime":"yesterday"}`},
		{name: "not json", value: `plain text`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRecord("test", nil, []byte(tt.value))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(r.EventTime), "got %v", r.EventTime)
			assert.Equal(t, "test", r.Source)
			assert.NotEqual(t, [16]byte{}, [16]byte(r.ID))
		})
	}
}

func TestRecord_Data(t *testing.T) {
	r, err := NewRecord("test", nil, nil)
	require.NoError(t, err)
	_, err = r.Data()
	assert.ErrorIs(t, err, ErrNoData)

	require.NoError(t, r.SetData(map[string]any{"name": "ada"}))
	data, err := r.Data()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada"}, data)
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r, err := NewRecord("test", []byte("k"), []byte(`"v"`))
	require.NoError(t, err)
	r.Headers = map[string]string{"h": "1"}

	cp := r.Clone()
	cp.Value[1] = 'x'
	cp.Headers["h"] = "2"

	assert.Equal(t, `"v"`, string(r.Value))
	assert.Equal(t, "1", r.Headers["h"])
	assert.Equal(t, r.ID, cp.ID)
}

func TestRecord_Document(t *testing.T) {
	r, err := NewRecord("kafka", []byte("user-1"), []byte(`{"n":1}`))
	require.NoError(t, err)

	b, err := json.Marshal(r.Document())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "user-1", doc["key"])
	assert.Equal(t, map[string]any{"n": float64(1)}, doc["value"])

	r.Value = []byte("not json")
	assert.Equal(t, "not json", r.Document()["value"])
}
