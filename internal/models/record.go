package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	uuid "github.com/google/uuid"
	"github.com/tarungka/rxwire/internal/logger"
)

// ErrNoData is returned when a record carries no value.
var ErrNoData = errors.New("record has no data")

// Record is one item flowing from a source through the pipeline.
type Record struct {
	ID        uuid.UUID // UUID v7, sortable by creation time on one node
	Source    string
	Key       []byte
	Value     []byte // usually JSON
	Partition int32
	Offset    int64
	Headers   map[string]string

	// CreatedAt is node local; use ID for ordering across nodes.
	CreatedAt time.Time
	// EventTime is read from an "eventTime" RFC3339 field of a JSON value.
	EventTime time.Time
}

// NewRecord builds a record for value read from source.
func NewRecord(source string, key, value []byte) (*Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		logger.AdHocLogger.Err(err).Msg("error when creating a new record")
		return nil, err
	}
	return &Record{
		ID:        id,
		Source:    source,
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		EventTime: eventTime(value),
	}, nil
}

func eventTime(value []byte) time.Time {
	var doc map[string]any
	if json.Unmarshal(value, &doc) != nil {
		return time.Time{}
	}
	s, ok := doc["eventTime"].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		logger.AdHocLogger.Debug().Err(err).Str("eventTime", s).Msg("error when parsing eventTime")
		return time.Time{}
	}
	return t
}

// Data decodes the JSON value.
func (r *Record) Data() (any, error) {
	if len(r.Value) == 0 {
		return nil, ErrNoData
	}
	var data any
	if err := json.Unmarshal(r.Value, &data); err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return data, nil
}

// SetData replaces the value with the JSON encoding of data.
func (r *Record) SetData(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	r.Value = b
	return nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Key = append([]byte(nil), r.Key...)
	cp.Value = append([]byte(nil), r.Value...)
	cp.Headers = maps.Clone(r.Headers)
	return &cp
}

// Document returns a JSON friendly view of r. A value that is valid JSON is
// embedded as is, anything else as a string.
func (r *Record) Document() map[string]any {
	doc := map[string]any{
		"id":         r.ID.String(),
		"source":     r.Source,
		"partition":  r.Partition,
		"offset":     r.Offset,
		"created_at": r.CreatedAt.Format(time.RFC3339Nano),
	}
	if len(r.Key) > 0 {
		doc["key"] = string(r.Key)
	}
	if json.Valid(r.Value) {
		doc["value"] = json.RawMessage(r.Value)
	} else {
		doc["value"] = string(r.Value)
	}
	if !r.EventTime.IsZero() {
		doc["event_time"] = r.EventTime.Format(time.RFC3339)
	}
	if len(r.Headers) > 0 {
		doc["headers"] = r.Headers
	}
	return doc
}
