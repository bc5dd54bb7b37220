package state

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/tarungka/rxwire/internal/logger"
)

// BadgerBackend stores state in a badger database. Bucket and key are joined
// with a '/' separator.
type BadgerBackend struct {
	open   atomic.Bool
	logger zerolog.Logger
	db     *badger.DB
}

var _ Backend = (*BadgerBackend)(nil)

// OpenBadger opens a file-based badger database at path. An empty path opens
// an in-memory database.
func OpenBadger(path string) (*BadgerBackend, error) {
	l := logger.GetLogger("badger")

	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{l})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	l.Debug().Str("path", path).Bool("in_memory", path == "").Msg("opened badger state backend")

	b := &BadgerBackend{logger: l, db: db}
	b.open.Store(true)
	return b, nil
}

func badgerKey(bucket, key string) []byte {
	return []byte(bucket + "/" + key)
}

func (b *BadgerBackend) Put(bucket, key string, value []byte) error {
	if !b.open.Load() {
		return ErrClosed
	}
	b.logger.Trace().Str("bucket", bucket).Str("key", key).Int("bytes", len(value)).Msg("put")
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(bucket, key), value)
	})
}

func (b *BadgerBackend) Get(bucket, key string) ([]byte, error) {
	if !b.open.Load() {
		return nil, ErrClosed
	}

	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(bucket, key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (b *BadgerBackend) Keys(bucket string) ([]string, error) {
	if !b.open.Load() {
		return nil, ErrClosed
	}

	prefix := []byte(bucket + "/")
	keys := []string{}
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, string(k[len(prefix):]))
		}
		return nil
	})
	return keys, err
}

func (b *BadgerBackend) Close() error {
	if !b.open.CompareAndSwap(true, false) {
		return nil
	}
	return b.db.Close()
}

// badgerLogger routes badger's internal logging into zerolog.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error().Msgf(format, args...)
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn().Msgf(format, args...)
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug().Msgf(format, args...)
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Trace().Msgf(format, args...)
}
