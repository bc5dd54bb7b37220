package server

import (
	"maps"
	"strings"
	"time"

	"github.com/tarungka/rxwire/checkpoint"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/internal/pipeline"
)

type ResponseModel struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type PipelineModel struct {
	Name    string                   `json:"name"`
	Flow    string                   `json:"flow"`
	Running bool                     `json:"running"`
	Config  pipeline.PipelineConfig  `json:"config"`
	Stats   pipeline.PipelineStats   `json:"stats"`
	Workers pipeline.WorkerPoolStats `json:"workers"`
}

func pipelineModel(dp *pipeline.DataPipeline) PipelineModel {
	return PipelineModel{
		Name:    dp.Name(),
		Flow:    dp.Show(),
		Running: dp.Running(),
		Config:  redact(dp.Config()),
		Stats:   dp.Metrics(),
		Workers: dp.WorkerStats(),
	}
}

type RunModel struct {
	Pipeline   string           `json:"pipeline"`
	Count      int              `json:"count"`
	DurationMs int64            `json:"duration_ms"`
	Checkpoint string           `json:"checkpoint,omitempty"`
	Records    []map[string]any `json:"records"`
}

func runModel(s pipeline.Summary) RunModel {
	return RunModel{
		Pipeline:   s.Pipeline,
		Count:      s.Count,
		DurationMs: s.Duration.Milliseconds(),
		Checkpoint: s.Checkpoint,
		Records:    documents(s.Records),
	}
}

type CheckpointModel struct {
	ID        string           `json:"id"`
	Pipeline  string           `json:"pipeline"`
	CreatedAt time.Time        `json:"created_at"`
	Count     int              `json:"count"`
	Records   []map[string]any `json:"records"`
}

func checkpointModel(cp *checkpoint.Checkpoint) CheckpointModel {
	return CheckpointModel{
		ID:        cp.ID,
		Pipeline:  cp.Pipeline,
		CreatedAt: cp.CreatedAt,
		Count:     cp.Count(),
		Records:   documents(cp.Records),
	}
}

func documents(records []*models.Record) []map[string]any {
	docs := make([]map[string]any, len(records))
	for i, r := range records {
		docs[i] = r.Document()
	}
	return docs
}

var secretHints = []string{"key", "password", "secret", "token", "uri"}

// redact masks connection settings that may carry credentials.
func redact(cfg pipeline.PipelineConfig) pipeline.PipelineConfig {
	cfg.Source.Config = redactValues(cfg.Source.Config)
	cfg.Sink.Config = redactValues(cfg.Sink.Config)
	return cfg
}

func redactValues(values map[string]string) map[string]string {
	out := maps.Clone(values)
	for k := range out {
		lower := strings.ToLower(k)
		for _, hint := range secretHints {
			if strings.Contains(lower, hint) {
				out[k] = "********"
				break
			}
		}
	}
	return out
}
