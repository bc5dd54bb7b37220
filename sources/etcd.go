package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
)

// EtcdSource emits every key under prefix, in key order, as of a single
// revision, then completes.
type EtcdSource struct {
	cfg SourceConfig

	endpoints   []string
	prefix      string
	dialTimeout time.Duration

	client *clientv3.Client
	logger zerolog.Logger
}

func NewEtcdSource(cfg SourceConfig) (Source, error) {
	if err := cfg.Require("endpoints", "prefix"); err != nil {
		return nil, err
	}
	dial, err := cfg.Duration("dial_timeout", 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &EtcdSource{
		cfg:         cfg,
		endpoints:   cfg.List("endpoints"),
		prefix:      cfg.Config["prefix"],
		dialTimeout: dial,
		logger:      logger.GetLogger("etcd-source").With().Str("pipeline", cfg.Name).Logger(),
	}, nil
}

func (e *EtcdSource) Open(ctx context.Context) (stream.Observable[*models.Record], error) {
	e.logger.Trace().Strs("endpoints", e.endpoints).Str("prefix", e.prefix).Msg("Connecting to etcd...")
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   e.endpoints,
		DialTimeout: e.dialTimeout,
		Context:     ctx,
	})
	if err != nil {
		e.logger.Err(err).Msg("Error when connecting to etcd!")
		return nil, fmt.Errorf("etcd source %q: %w", e.cfg.Name, err)
	}
	e.client = client

	return stream.Create(func(observer stream.Observer[*models.Record]) stream.Subscription {
		ctx, cancel := context.WithCancel(ctx)
		sub := stream.NewSubscription(cancel)
		go func() {
			defer cancel()
			e.read(ctx, sub, observer)
		}()
		return sub
	}), nil
}

func (e *EtcdSource) read(ctx context.Context, sub stream.Subscription, observer stream.Observer[*models.Record]) {
	resp, err := e.client.Get(ctx, e.prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend),
	)
	if err != nil {
		if !sub.IsUnsubscribed() {
			observer.OnError(fmt.Errorf("etcd get %q: %w", e.prefix, err))
		}
		return
	}
	e.logger.Debug().Int64("revision", resp.Header.GetRevision()).Int("keys", len(resp.Kvs)).Msg("etcd range read")

	for _, kv := range resp.Kvs {
		if sub.IsUnsubscribed() {
			return
		}
		rec, err := models.NewRecord("etcd:"+e.prefix, kv.Key, kv.Value)
		if err != nil {
			observer.OnError(err)
			return
		}
		rec.Offset = kv.ModRevision
		observer.OnNext(rec)
	}
	if !sub.IsUnsubscribed() {
		observer.OnCompleted()
	}
}

func (e *EtcdSource) Name() string { return e.cfg.Name }

func (e *EtcdSource) Info() string { return e.cfg.info() }

func (e *EtcdSource) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
