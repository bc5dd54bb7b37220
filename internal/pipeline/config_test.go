package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadYAML(t *testing.T, content string) *koanf.Koanf {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	ko := koanf.New(".")
	require.NoError(t, ko.Load(file.Provider(path), yaml.Parser()))
	return ko
}

func TestParseConfig(t *testing.T) {
	ko := loadYAML(t, `
pipelines:
  - name: orders
    parallelism: 4
    rate_limit: 250
    transforms: [uppercase]
    source:
      type: kafka
      config:
        bootstrap_servers: "localhost:9092"
        topic: orders
        max_records: 100
    sink:
      type: file
      config:
        file_path: /tmp/orders.jsonl
  - name: demo
    source:
      type: static
      config:
        values: "a,b"
    sink:
      type: stdout
`)

	cfgs, err := ParseConfig(ko)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	orders := cfgs[0]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, 4, orders.Parallelism)
	assert.Equal(t, 250.0, orders.RateLimit)
	assert.Equal(t, []string{"uppercase"}, orders.Transforms)
	assert.Equal(t, "kafka", orders.Source.ConnectionType)
	assert.Equal(t, "100", orders.Source.Config["max_records"])
	assert.Equal(t, "orders", orders.Source.Name, "source inherits the pipeline name")
	assert.Equal(t, "/tmp/orders.jsonl", orders.Sink.Config["file_path"])

	demo := cfgs[1]
	assert.Equal(t, 1, demo.Parallelism)
	assert.Equal(t, 100, demo.BufferSize)
	assert.Equal(t, "stdout", demo.Sink.ConnectionType)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing name", yaml: `
pipelines:
  - source: {type: static}
    sink: {type: stdout}
`},
		{name: "missing sink", yaml: `
pipelines:
  - name: a
    source: {type: static}
`},
		{name: "duplicate", yaml: `
pipelines:
  - {name: a, source: {type: static}, sink: {type: stdout}}
  - {name: a, source: {type: static}, sink: {type: stdout}}
`},
		{name: "negative rate", yaml: `
pipelines:
  - {name: a, rate_limit: -1, source: {type: static}, sink: {type: stdout}}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(loadYAML(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseConfig_NoPipelines(t *testing.T) {
	cfgs, err := ParseConfig(loadYAML(t, "port: \"8080\"\n"))
	require.NoError(t, err)
	assert.Empty(t, cfgs)
}
