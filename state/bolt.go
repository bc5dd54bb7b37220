package state

import (
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/tarungka/rxwire/internal/logger"
	bolt "go.etcd.io/bbolt"
)

// BoltBackend stores state in a bbolt file, one bolt bucket per bucket.
type BoltBackend struct {
	logger zerolog.Logger
	db     *bolt.DB
}

var _ Backend = (*BoltBackend)(nil)

// OpenBolt opens (or creates) the bolt database file at path.
func OpenBolt(path string) (*BoltBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt state backend needs a path")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt at %q: %w", path, err)
	}
	l := logger.GetLogger("bolt")
	l.Debug().Str("path", path).Msg("opened bolt state backend")
	return &BoltBackend{logger: l, db: db}, nil
}

func (b *BoltBackend) Put(bucket, key string, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return bkt.Put([]byte(key), value)
	})
	if err == bolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	return err
}

func (b *BoltBackend) Get(bucket, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return ErrNotFound
		}
		v := bkt.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the lifetime of the transaction
		val = slices.Clone(v)
		return nil
	})
	if err == bolt.ErrDatabaseNotOpen {
		return nil, ErrClosed
	}
	return val, err
}

func (b *BoltBackend) Keys(bucket string) ([]string, error) {
	keys := []string{}
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err == bolt.ErrDatabaseNotOpen {
		return nil, ErrClosed
	}
	return keys, err
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
