package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/rxwire/checkpoint"
	"github.com/tarungka/rxwire/internal/pipeline"
	"github.com/tarungka/rxwire/sinks"
	"github.com/tarungka/rxwire/sources"
	"github.com/tarungka/rxwire/state"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := checkpoint.NewStore(state.NewInMemoryBackend())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := pipeline.NewManager()
	require.NoError(t, m.Build([]pipeline.PipelineConfig{{
		Name:        "orders",
		Parallelism: 2,
		Transforms:  []string{"uppercase"},
		Source: sources.SourceConfig{ConnectionType: "static", Config: map[string]string{
			"values":    `[{"id":"1","item":"apple"},{"id":"2","item":"pear"}]`,
			"key_field": "id",
		}},
		Sink: sinks.SinkConfig{ConnectionType: "state", Config: map[string]string{"api_key": "hunter2"}},
	}}, sinks.WithCheckpoints(store)))

	srv := httptest.NewServer(New(m, store).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestListPipelines(t *testing.T) {
	srv := newTestServer(t)
	status, env := do(t, http.MethodGet, srv.URL+"/pipelines")
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)

	var list []PipelineModel
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "orders", list[0].Name)
	assert.Equal(t, 2, list[0].Config.Parallelism)
	assert.Equal(t, "********", list[0].Config.Sink.Config["api_key"])
}

func TestRunPipelineAndFetchCheckpoint(t *testing.T) {
	srv := newTestServer(t)

	status, env := do(t, http.MethodPost, srv.URL+"/pipelines/orders/run")
	require.Equal(t, http.StatusOK, status, env.Error)

	var run RunModel
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, 2, run.Count)
	require.NotEmpty(t, run.Checkpoint)
	require.Len(t, run.Records, 2)
	for _, doc := range run.Records {
		value := doc["value"].(map[string]any)
		assert.Contains(t, []string{"APPLE", "PEAR"}, value["item"])
	}

	status, env = do(t, http.MethodGet, srv.URL+"/checkpoints/"+run.Checkpoint)
	require.Equal(t, http.StatusOK, status, env.Error)
	var cp CheckpointModel
	require.NoError(t, json.Unmarshal(env.Data, &cp))
	assert.Equal(t, run.Checkpoint, cp.ID)
	assert.Equal(t, "orders", cp.Pipeline)
	assert.Equal(t, 2, cp.Count)

	status, env = do(t, http.MethodGet, srv.URL+"/checkpoints")
	require.Equal(t, http.StatusOK, status)
	var ids []string
	require.NoError(t, json.Unmarshal(env.Data, &ids))
	assert.Equal(t, []string{run.Checkpoint}, ids)
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/pipelines/nope"},
		{http.MethodPost, "/pipelines/nope/run"},
		{http.MethodPost, "/pipelines/nope/stop"},
		{http.MethodGet, "/checkpoints/0191f3b2-0000-7000-8000-000000000000"},
		{http.MethodGet, "/connectors/widgets"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, env := do(t, tt.method, srv.URL+tt.path)
			assert.Equal(t, http.StatusNotFound, status)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestRunPipeline_BadTimeout(t *testing.T) {
	srv := newTestServer(t)
	status, env := do(t, http.MethodPost, srv.URL+"/pipelines/orders/run?timeout=soon")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestConnectors(t *testing.T) {
	srv := newTestServer(t)
	status, env := do(t, http.MethodGet, srv.URL+"/connectors")
	require.Equal(t, http.StatusOK, status)

	var all map[string][]string
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Contains(t, all["sources"], "kafka")
	assert.Contains(t, all["sinks"], "elasticsearch")
	assert.Contains(t, all["transforms"], "uppercase")

	status, env = do(t, http.MethodGet, srv.URL+"/connectors/sinks")
	require.Equal(t, http.StatusOK, status)
	var snk []string
	require.NoError(t, json.Unmarshal(env.Data, &snk))
	assert.Contains(t, snk, "state")
}

func TestStopIdlePipeline(t *testing.T) {
	srv := newTestServer(t)
	status, env := do(t, http.MethodPost, srv.URL+"/pipelines/orders/stop")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"stopped":false}`, string(env.Data))
}
