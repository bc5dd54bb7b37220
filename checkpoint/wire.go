package checkpoint

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tarungka/rxwire/internal/models"
)

type wireCheckpoint struct {
	ID        string       `codec:"id"`
	Pipeline  string       `codec:"pipeline"`
	CreatedAt int64        `codec:"created_at"`
	Records   []wireRecord `codec:"records"`
}

type wireRecord struct {
	ID        string            `codec:"id"`
	Source    string            `codec:"source"`
	Key       []byte            `codec:"key"`
	Value     []byte            `codec:"value"`
	Partition int32             `codec:"partition"`
	Offset    int64             `codec:"offset"`
	Headers   map[string]string `codec:"headers"`
	CreatedAt int64             `codec:"created_at"`
	EventTime int64             `codec:"event_time"`
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func toWire(cp *Checkpoint) wireCheckpoint {
	w := wireCheckpoint{
		ID:        cp.ID,
		Pipeline:  cp.Pipeline,
		CreatedAt: unixNano(cp.CreatedAt),
		Records:   make([]wireRecord, 0, len(cp.Records)),
	}
	for _, r := range cp.Records {
		if r == nil {
			continue
		}
		w.Records = append(w.Records, wireRecord{
			ID:        r.ID.String(),
			Source:    r.Source,
			Key:       r.Key,
			Value:     r.Value,
			Partition: r.Partition,
			Offset:    r.Offset,
			Headers:   r.Headers,
			CreatedAt: unixNano(r.CreatedAt),
			EventTime: unixNano(r.EventTime),
		})
	}
	return w
}

func fromWire(w wireCheckpoint) (*Checkpoint, error) {
	cp := &Checkpoint{
		ID:        w.ID,
		Pipeline:  w.Pipeline,
		CreatedAt: fromUnixNano(w.CreatedAt),
		Records:   make([]*models.Record, 0, len(w.Records)),
	}
	for _, wr := range w.Records {
		id, err := uuid.Parse(wr.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: record id %q: %v", ErrCorrupt, wr.ID, err)
		}
		cp.Records = append(cp.Records, &models.Record{
			ID:        id,
			Source:    wr.Source,
			Key:       wr.Key,
			Value:     wr.Value,
			Partition: wr.Partition,
			Offset:    wr.Offset,
			Headers:   wr.Headers,
			CreatedAt: fromUnixNano(wr.CreatedAt),
			EventTime: fromUnixNano(wr.EventTime),
		})
	}
	return cp, nil
}
