package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
)

// KafkaSource consumes a topic. A topic has no end, so the stream completes
// after max_records records or once no record arrived for idle_timeout.
// Records of different partitions are delivered concurrently.
//
// The underlying client is shared, so the stream supports one subscription
// at a time.
type KafkaSource struct {
	cfg SourceConfig

	bootstrapServers []string
	consumerGroup    string
	topic            string
	maxRecords       int64
	idleTimeout      time.Duration

	client *kgo.Client
	logger zerolog.Logger
}

func NewKafkaSource(cfg SourceConfig) (Source, error) {
	if err := cfg.Require("bootstrap_servers", "topic"); err != nil {
		return nil, err
	}
	maxRecords, err := cfg.Int("max_records", 0)
	if err != nil {
		return nil, err
	}
	idle, err := cfg.Duration("idle_timeout", 5*time.Second)
	if err != nil {
		return nil, err
	}
	if maxRecords <= 0 && idle <= 0 {
		return nil, fmt.Errorf("kafka source %q: one of max_records or idle_timeout must be set", cfg.Name)
	}

	return &KafkaSource{
		cfg:              cfg,
		bootstrapServers: cfg.List("bootstrap_servers"),
		consumerGroup:    cfg.String("group", ""),
		topic:            cfg.Config["topic"],
		maxRecords:       int64(maxRecords),
		idleTimeout:      idle,
		logger:           logger.GetLogger("kafka-source").With().Str("pipeline", cfg.Name).Logger(),
	}, nil
}

func (k *KafkaSource) Open(ctx context.Context) (stream.Observable[*models.Record], error) {
	k.logger.Trace().Strs("bootstrap_servers", k.bootstrapServers).Str("topic", k.topic).Msg("Connecting to kafka cluster as a source...")

	opts := []kgo.Opt{
		kgo.SeedBrokers(k.bootstrapServers...),
		kgo.ConsumeTopics(k.topic),
		kgo.WithLogger(NewKgoLogger(k.logger)),
	}
	if k.consumerGroup != "" {
		opts = append(opts, kgo.ConsumerGroup(k.consumerGroup))
	} else {
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		k.logger.Err(err).Msg("Error when creating a kafka consumer!")
		return nil, fmt.Errorf("kafka source %q: %w", k.cfg.Name, err)
	}
	k.client = client

	return stream.Create(func(observer stream.Observer[*models.Record]) stream.Subscription {
		ctx, cancel := context.WithCancel(ctx)
		sub := stream.NewSubscription(cancel)
		go func() {
			defer cancel()
			k.consume(ctx, sub, observer)
		}()
		return sub
	}), nil
}

func (k *KafkaSource) consume(ctx context.Context, sub stream.Subscription, observer stream.Observer[*models.Record]) {
	var seen atomic.Int64
	for {
		if err := ctx.Err(); err != nil {
			if !sub.IsUnsubscribed() {
				observer.OnError(err)
			}
			return
		}

		pollCtx, cancelPoll := ctx, context.CancelFunc(func() {})
		if k.idleTimeout > 0 {
			pollCtx, cancelPoll = context.WithTimeout(ctx, k.idleTimeout)
		}
		fetches := k.client.PollFetches(pollCtx)
		idle := pollCtx.Err() != nil && ctx.Err() == nil
		cancelPoll()

		if fetches.IsClientClosed() {
			if !sub.IsUnsubscribed() {
				observer.OnCompleted()
			}
			return
		}
		if err := fetchError(fetches); err != nil {
			k.logger.Err(err).Msg("kafka fetch failed")
			if !sub.IsUnsubscribed() {
				observer.OnError(err)
			}
			return
		}
		if fetches.NumRecords() == 0 {
			if idle {
				k.logger.Debug().Int64("seen", seen.Load()).Msg("kafka source idle, completing")
				if !sub.IsUnsubscribed() {
					observer.OnCompleted()
				}
				return
			}
			continue
		}

		if err := k.deliver(fetches, &seen, sub, observer); err != nil {
			if !sub.IsUnsubscribed() {
				observer.OnError(err)
			}
			return
		}
		if k.maxRecords > 0 && seen.Load() >= k.maxRecords {
			if !sub.IsUnsubscribed() {
				observer.OnCompleted()
			}
			return
		}
	}
}

// deliver emits the records of every fetched partition from its own
// goroutine and returns once all of them are done.
func (k *KafkaSource) deliver(fetches kgo.Fetches, seen *atomic.Int64, sub stream.Subscription, observer stream.Observer[*models.Record]) error {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.EachRecord(func(r *kgo.Record) {
				if sub.IsUnsubscribed() {
					return
				}
				if n := seen.Add(1); k.maxRecords > 0 && n > k.maxRecords {
					return
				}
				rec, err := recordFromKafka(r)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
				observer.OnNext(rec)
			})
		}()
	})
	wg.Wait()
	return firstErr
}

// fetchError returns the first fetch error that is not caused by the poll
// context ending.
func fetchError(fetches kgo.Fetches) error {
	var err error
	fetches.EachError(func(topic string, partition int32, e error) {
		if err != nil || errors.Is(e, context.Canceled) || errors.Is(e, context.DeadlineExceeded) {
			return
		}
		err = fmt.Errorf("fetch topic %s partition %d: %w", topic, partition, e)
	})
	return err
}

func recordFromKafka(r *kgo.Record) (*models.Record, error) {
	rec, err := models.NewRecord("kafka:"+r.Topic, r.Key, r.Value)
	if err != nil {
		return nil, err
	}
	rec.Partition = r.Partition
	rec.Offset = r.Offset
	if len(r.Headers) > 0 {
		rec.Headers = make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			rec.Headers[h.Key] = string(h.Value)
		}
	}
	if rec.EventTime.IsZero() {
		rec.EventTime = r.Timestamp
	}
	return rec, nil
}

func (k *KafkaSource) Name() string { return k.cfg.Name }

func (k *KafkaSource) Info() string { return k.cfg.info() }

func (k *KafkaSource) Close() error {
	k.logger.Trace().Msg("Disconnecting kafka source")
	if k.client != nil {
		k.client.Close()
	}
	return nil
}
