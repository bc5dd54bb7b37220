package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/state"
)

const bucket = "checkpoints"

// ErrCorrupt is returned when a stored checkpoint cannot be decoded.
var ErrCorrupt = errors.New("checkpoint: corrupt payload")

// Checkpoint is a persisted result collection of one pipeline run.
type Checkpoint struct {
	ID        string
	Pipeline  string
	CreatedAt time.Time
	Records   []*models.Record
}

// Count returns the number of records in the checkpoint.
func (c *Checkpoint) Count() int {
	return len(c.Records)
}

// Store writes checkpoints to a state backend as zstd-compressed msgpack.
type Store struct {
	backend state.Backend
	handle  *codec.MsgpackHandle
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  zerolog.Logger
}

// NewStore creates a Store on top of backend. The backend stays owned by the
// caller.
func NewStore(backend state.Backend) (*Store, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	return &Store{
		backend: backend,
		handle:  &codec.MsgpackHandle{},
		encoder: encoder,
		decoder: decoder,
		logger:  logger.GetLogger("checkpoint"),
	}, nil
}

// Save persists records as a new checkpoint of pipeline.
func (s *Store) Save(pipeline string, records []*models.Record) (*Checkpoint, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{
		ID:        id.String(),
		Pipeline:  pipeline,
		CreatedAt: time.Now(),
		Records:   records,
	}

	var raw []byte
	if err := codec.NewEncoderBytes(&raw, s.handle).Encode(toWire(cp)); err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	payload := s.encoder.EncodeAll(raw, nil)

	if err := s.backend.Put(bucket, cp.ID, payload); err != nil {
		return nil, fmt.Errorf("store checkpoint %s: %w", cp.ID, err)
	}
	s.logger.Debug().
		Str("checkpoint_id", cp.ID).
		Str("pipeline", pipeline).
		Int("records", len(records)).
		Int("bytes", len(payload)).
		Msg("checkpoint saved")
	return cp, nil
}

// Load reads the checkpoint with the given ID.
func (s *Store) Load(id string) (*Checkpoint, error) {
	payload, err := s.backend.Get(bucket, id)
	if err != nil {
		return nil, err
	}
	raw, err := s.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var w wireCheckpoint
	if err := codec.NewDecoderBytes(raw, s.handle).Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return fromWire(w)
}

// List returns all checkpoint IDs, oldest first.
func (s *Store) List() ([]string, error) {
	return s.backend.Keys(bucket)
}

// Close releases the codecs. It does not close the backend.
func (s *Store) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}
