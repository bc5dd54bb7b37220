package pipeline

import (
	"sync/atomic"
	"time"
)

// PipelineMetrics holds the counters of a pipeline across its runs.
type PipelineMetrics struct {
	name string

	runs             atomic.Uint64
	failedRuns       atomic.Uint64
	recordsRead      atomic.Uint64 // records received from the source
	processedRecords atomic.Uint64 // records that passed the transforms
	failedRecords    atomic.Uint64 // records whose transform failed
	recordsCollected atomic.Uint64 // records handed to the sink

	totalProcessingTime atomic.Int64 // nanoseconds
	processingTimeCount atomic.Uint64

	lastRun atomic.Int64 // unix nanoseconds
}

// NewPipelineMetrics creates a new PipelineMetrics collector.
func NewPipelineMetrics(name string) *PipelineMetrics {
	return &PipelineMetrics{name: name}
}

func (m *PipelineMetrics) IncrementRecordsRead() { m.recordsRead.Add(1) }

func (m *PipelineMetrics) IncrementProcessedRecords() { m.processedRecords.Add(1) }

func (m *PipelineMetrics) IncrementFailedRecords() { m.failedRecords.Add(1) }

// RecordRun records the end of a run that delivered collected records.
func (m *PipelineMetrics) RecordRun(collected int, err error) {
	m.runs.Add(1)
	if err != nil {
		m.failedRuns.Add(1)
	}
	m.recordsCollected.Add(uint64(collected))
	m.lastRun.Store(time.Now().UnixNano())
}

// RecordProcessingTime records the duration of a single transform call.
func (m *PipelineMetrics) RecordProcessingTime(d time.Duration) {
	m.totalProcessingTime.Add(int64(d))
	m.processingTimeCount.Add(1)
}

// PipelineStats represents a snapshot of the current pipeline metrics.
type PipelineStats struct {
	Name                string    `json:"name"`
	Runs                uint64    `json:"runs"`
	FailedRuns          uint64    `json:"failed_runs"`
	RecordsRead         uint64    `json:"records_read"`
	ProcessedRecords    uint64    `json:"processed_records"`
	FailedRecords       uint64    `json:"failed_records"`
	RecordsCollected    uint64    `json:"records_collected"`
	AvgProcessingTimeMs float64   `json:"avg_processing_time_ms"`
	LastRun             time.Time `json:"last_run"`
}

// GetStats returns a snapshot of the current pipeline statistics.
func (m *PipelineMetrics) GetStats() PipelineStats {
	var avg float64
	if n := m.processingTimeCount.Load(); n > 0 {
		avg = float64(m.totalProcessingTime.Load()) / float64(n) / float64(time.Millisecond)
	}
	var last time.Time
	if ns := m.lastRun.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}

	return PipelineStats{
		Name:                m.name,
		Runs:                m.runs.Load(),
		FailedRuns:          m.failedRuns.Load(),
		RecordsRead:         m.recordsRead.Load(),
		ProcessedRecords:    m.processedRecords.Load(),
		FailedRecords:       m.failedRecords.Load(),
		RecordsCollected:    m.recordsCollected.Load(),
		AvgProcessingTimeMs: avg,
		LastRun:             last,
	}
}
