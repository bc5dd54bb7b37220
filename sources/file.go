package sources

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
)

const defaultMaxLineBytes = 1 << 20

// FileSource emits one record per non-empty line of a file. Offset is the
// 1-based line number.
type FileSource struct {
	cfg SourceConfig

	filePath     string
	maxLineBytes int

	logger zerolog.Logger
}

func NewFileSource(cfg SourceConfig) (Source, error) {
	if err := cfg.Require("file_path"); err != nil {
		return nil, err
	}
	maxLine, err := cfg.Int("max_line_bytes", defaultMaxLineBytes)
	if err != nil {
		return nil, err
	}
	return &FileSource{
		cfg:          cfg,
		filePath:     cfg.Config["file_path"],
		maxLineBytes: maxLine,
		logger:       logger.GetLogger("file-source").With().Str("pipeline", cfg.Name).Logger(),
	}, nil
}

func (f *FileSource) Open(ctx context.Context) (stream.Observable[*models.Record], error) {
	if _, err := os.Stat(f.filePath); err != nil {
		f.logger.Err(err).Str("file_path", f.filePath).Msg("Failed to open file")
		return nil, fmt.Errorf("file source %q: %w", f.cfg.Name, err)
	}

	return stream.Create(func(observer stream.Observer[*models.Record]) stream.Subscription {
		ctx, cancel := context.WithCancel(ctx)
		sub := stream.NewSubscription(cancel)
		go func() {
			defer cancel()
			f.read(ctx, sub, observer)
		}()
		return sub
	}), nil
}

func (f *FileSource) read(ctx context.Context, sub stream.Subscription, observer stream.Observer[*models.Record]) {
	file, err := os.Open(f.filePath)
	if err != nil {
		if !sub.IsUnsubscribed() {
			observer.OnError(err)
		}
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, min(64*1024, f.maxLineBytes)), f.maxLineBytes)

	var line int64
	for scanner.Scan() {
		line++
		if sub.IsUnsubscribed() {
			return
		}
		if err := ctx.Err(); err != nil {
			observer.OnError(err)
			return
		}
		value := bytes.TrimSpace(scanner.Bytes())
		if len(value) == 0 {
			continue
		}
		rec, err := models.NewRecord("file:"+f.filePath, nil, bytes.Clone(value))
		if err != nil {
			observer.OnError(err)
			return
		}
		rec.Offset = line
		observer.OnNext(rec)
	}
	if sub.IsUnsubscribed() {
		return
	}
	if err := scanner.Err(); err != nil {
		observer.OnError(fmt.Errorf("read %s: %w", f.filePath, err))
		return
	}
	f.logger.Debug().Int64("lines", line).Msg("file source done")
	observer.OnCompleted()
}

func (f *FileSource) Name() string { return f.cfg.Name }

func (f *FileSource) Info() string { return f.cfg.info() }

func (f *FileSource) Close() error { return nil }
