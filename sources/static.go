package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
)

// StaticSource emits values listed in its configuration, synchronously and in
// order, then completes.
//
// "values" is either a JSON array, whose elements become the record values as
// JSON, or a comma separated list of plain strings. An optional "key_field"
// names a top level JSON field copied into the record key.
type StaticSource struct {
	cfg      SourceConfig
	values   [][]byte
	keyField string
}

func NewStaticSource(cfg SourceConfig) (Source, error) {
	values, err := staticValues(cfg)
	if err != nil {
		return nil, err
	}
	return &StaticSource{cfg: cfg, values: values, keyField: cfg.String("key_field", "")}, nil
}

func staticValues(cfg SourceConfig) ([][]byte, error) {
	raw := strings.TrimSpace(cfg.Config["values"])
	if !strings.HasPrefix(raw, "[") {
		var out [][]byte
		for _, v := range cfg.List("values") {
			out = append(out, []byte(v))
		}
		return out, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, fmt.Errorf("static source %q: values: %w", cfg.Name, err)
	}
	out := make([][]byte, len(elems))
	for i, e := range elems {
		out[i] = []byte(e)
	}
	return out, nil
}

func (s *StaticSource) Open(context.Context) (stream.Observable[*models.Record], error) {
	return stream.Create(func(observer stream.Observer[*models.Record]) stream.Subscription {
		sub := stream.EmptySubscription()
		for i, v := range s.values {
			if sub.IsUnsubscribed() {
				return sub
			}
			rec, err := models.NewRecord("static:"+s.cfg.Name, s.key(v), append([]byte(nil), v...))
			if err != nil {
				observer.OnError(err)
				return sub
			}
			rec.Offset = int64(i)
			observer.OnNext(rec)
		}
		observer.OnCompleted()
		return sub
	}), nil
}

func (s *StaticSource) key(value []byte) []byte {
	if s.keyField == "" {
		return nil
	}
	var doc map[string]any
	if json.Unmarshal(value, &doc) != nil {
		return nil
	}
	if v, ok := doc[s.keyField]; ok {
		return []byte(fmt.Sprint(v))
	}
	return nil
}

func (s *StaticSource) Name() string { return s.cfg.Name }

func (s *StaticSource) Info() string { return s.cfg.info() }

func (s *StaticSource) Close() error { return nil }
