package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
)

// jsonLines writes one JSON document per record.
type jsonLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (j *jsonLines) write(ctx context.Context, records []*models.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.enc.Encode(r.Document()); err != nil {
			return err
		}
	}
	return nil
}

// FileSink appends records as JSON lines to file_path.
type FileSink struct {
	cfg      SinkConfig
	filePath string
	file     *os.File
	out      *jsonLines
	logger   zerolog.Logger
}

func NewFileSink(cfg SinkConfig, _ Options) (Sink, error) {
	if err := cfg.Require("file_path"); err != nil {
		return nil, err
	}
	return &FileSink{
		cfg:      cfg,
		filePath: cfg.Config["file_path"],
		logger:   logger.GetLogger("file-sink").With().Str("pipeline", cfg.Name).Logger(),
	}, nil
}

func (f *FileSink) Connect(ctx context.Context) error {
	f.logger.Trace().Str("file_path", f.filePath).Msg("Preparing to open file for writing")

	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.logger.Err(err).Str("directory", dir).Msg("Failed to create parent directories")
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	if _, err := os.Stat(f.filePath); err == nil {
		f.logger.Warn().Str("file_path", f.filePath).Msg("File already exists; appending to it")
	}

	file, err := os.OpenFile(f.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		f.logger.Err(err).Str("file_path", f.filePath).Msg("Failed to open file")
		return fmt.Errorf("failed to open file: %w", err)
	}
	f.file = file
	f.out = &jsonLines{enc: json.NewEncoder(file)}
	return nil
}

func (f *FileSink) Write(ctx context.Context, records []*models.Record) error {
	if f.out == nil {
		return fmt.Errorf("file sink %q: not connected", f.cfg.Name)
	}
	if err := f.out.write(ctx, records); err != nil {
		return err
	}
	f.logger.Debug().Int("records", len(records)).Str("file_path", f.filePath).Msg("records written to file")
	return nil
}

func (f *FileSink) Name() string { return f.cfg.Name }

func (f *FileSink) Info() string { return f.cfg.info() }

func (f *FileSink) Close() error {
	if f.file == nil {
		return nil
	}
	f.logger.Info().Msg("Closing file sink")
	if err := f.file.Close(); err != nil {
		f.logger.Err(err).Msg("Failed to close file")
		return err
	}
	return nil
}

// StdoutSink writes records as JSON lines to standard output.
type StdoutSink struct {
	cfg SinkConfig
	out *jsonLines
}

func NewStdoutSink(cfg SinkConfig, opts Options) (Sink, error) {
	w := opts.Stdout
	if w == nil {
		w = io.Discard
	}
	return &StdoutSink{cfg: cfg, out: &jsonLines{enc: json.NewEncoder(w)}}, nil
}

func (s *StdoutSink) Connect(context.Context) error { return nil }

func (s *StdoutSink) Write(ctx context.Context, records []*models.Record) error {
	return s.out.write(ctx, records)
}

func (s *StdoutSink) Name() string { return s.cfg.Name }

func (s *StdoutSink) Info() string { return s.cfg.info() }

func (s *StdoutSink) Close() error { return nil }
