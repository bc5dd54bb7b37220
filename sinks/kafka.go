package sinks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/sources"
)

// KafkaSink produces every record of a result collection to topic and waits
// for all acknowledgements.
type KafkaSink struct {
	cfg SinkConfig

	bootstrapServers []string
	topic            string
	autoCreate       bool

	client *kgo.Client
	logger zerolog.Logger
}

func NewKafkaSink(cfg SinkConfig, _ Options) (Sink, error) {
	if err := cfg.Require("bootstrap_servers", "topic"); err != nil {
		return nil, err
	}
	autoCreate, err := cfg.Bool("auto_create_topic", false)
	if err != nil {
		return nil, err
	}
	l := logger.GetLogger("kafka-sink").With().Str("pipeline", cfg.Name).Logger()
	l.Debug().Str("bootstrap_servers", cfg.Config["bootstrap_servers"]).Str("topic", cfg.Config["topic"]).Send()

	return &KafkaSink{
		cfg:              cfg,
		bootstrapServers: cfg.List("bootstrap_servers"),
		topic:            cfg.Config["topic"],
		autoCreate:       autoCreate,
		logger:           l,
	}, nil
}

func (k *KafkaSink) Connect(ctx context.Context) error {
	k.logger.Trace().Msg("Connecting to kafka cluster as a sink...")
	opts := []kgo.Opt{
		kgo.SeedBrokers(k.bootstrapServers...),
		kgo.DefaultProduceTopic(k.topic),
		kgo.WithLogger(sources.NewKgoLogger(k.logger)),
	}
	if k.autoCreate {
		opts = append(opts, kgo.AllowAutoTopicCreation())
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		k.logger.Err(err).Msg("Error when creating a kafka producer!")
		return err
	}
	k.client = client
	return nil
}

func (k *KafkaSink) Write(ctx context.Context, records []*models.Record) error {
	if k.client == nil {
		return fmt.Errorf("kafka sink %q: not connected", k.cfg.Name)
	}
	if len(records) == 0 {
		return nil
	}
	out := make([]*kgo.Record, len(records))
	for i, r := range records {
		out[i] = toKafka(r)
	}
	if err := k.client.ProduceSync(ctx, out...).FirstErr(); err != nil {
		k.logger.Err(err).Msg("record had a produce error")
		return err
	}
	k.logger.Debug().Int("records", len(out)).Msg("Successfully produced messages")
	return nil
}

func toKafka(r *models.Record) *kgo.Record {
	rec := &kgo.Record{Key: r.Key, Value: r.Value}
	if !r.EventTime.IsZero() {
		rec.Timestamp = r.EventTime
	}
	for k, v := range r.Headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: "rxwire-id", Value: []byte(r.ID.String())})
	return rec
}

func (k *KafkaSink) Name() string { return k.cfg.Name }

func (k *KafkaSink) Info() string { return k.cfg.info() }

func (k *KafkaSink) Close() error {
	k.logger.Info().Msg("Disconnecting kafka sink")
	if k.client != nil {
		k.client.Close()
	}
	return nil
}
