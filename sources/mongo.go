package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
	"github.com/tarungka/rxwire/stream"
)

// MongoSource emits the documents of a collection matching filter and
// completes when the cursor is exhausted. Values are relaxed extended JSON.
type MongoSource struct {
	cfg SourceConfig

	uri        string
	database   string
	collection string
	filter     bson.D
	sort       bson.D
	batchSize  int32

	client *mongo.Client
	logger zerolog.Logger
}

func NewMongoSource(cfg SourceConfig) (Source, error) {
	if err := cfg.Require("mongo_uri", "database", "collection"); err != nil {
		return nil, err
	}
	filter, err := extJSON(cfg, "filter")
	if err != nil {
		return nil, err
	}
	sort, err := extJSON(cfg, "sort")
	if err != nil {
		return nil, err
	}
	batch, err := cfg.Int("batch_size", 0)
	if err != nil {
		return nil, err
	}

	return &MongoSource{
		cfg:        cfg,
		uri:        cfg.Config["mongo_uri"],
		database:   cfg.Config["database"],
		collection: cfg.Config["collection"],
		filter:     filter,
		sort:       sort,
		batchSize:  int32(batch),
		logger:     logger.GetLogger("mongo-source").With().Str("pipeline", cfg.Name).Logger(),
	}, nil
}

func extJSON(cfg SourceConfig, key string) (bson.D, error) {
	doc := bson.D{}
	v := cfg.Config[key]
	if v == "" {
		return doc, nil
	}
	if err := bson.UnmarshalExtJSON([]byte(v), false, &doc); err != nil {
		return nil, fmt.Errorf("mongo source %q: %s: %w", cfg.Name, key, err)
	}
	return doc, nil
}

func (m *MongoSource) Open(ctx context.Context) (stream.Observable[*models.Record], error) {
	m.logger.Trace().Str("database", m.database).Str("collection", m.collection).Msg("Connecting to mongodb...")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.uri))
	if err != nil {
		m.logger.Err(err).Msg("Error when connecting to mongodb database!")
		return nil, fmt.Errorf("mongo source %q: %w", m.cfg.Name, err)
	}
	m.client = client
	coll := client.Database(m.database).Collection(m.collection)

	return stream.Create(func(observer stream.Observer[*models.Record]) stream.Subscription {
		ctx, cancel := context.WithCancel(ctx)
		sub := stream.NewSubscription(cancel)
		go func() {
			defer cancel()
			m.read(ctx, coll, sub, observer)
		}()
		return sub
	}), nil
}

func (m *MongoSource) read(ctx context.Context, coll *mongo.Collection, sub stream.Subscription, observer stream.Observer[*models.Record]) {
	findOpts := options.Find()
	if len(m.sort) > 0 {
		findOpts.SetSort(m.sort)
	}
	if m.batchSize > 0 {
		findOpts.SetBatchSize(m.batchSize)
	}

	cursor, err := coll.Find(ctx, m.filter, findOpts)
	if err != nil {
		if !sub.IsUnsubscribed() {
			observer.OnError(fmt.Errorf("mongo find: %w", err))
		}
		return
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cursor.Close(closeCtx); err != nil {
			m.logger.Warn().Err(err).Msg("error closing mongo cursor")
		}
	}()

	var offset int64
	for cursor.Next(ctx) {
		if sub.IsUnsubscribed() {
			return
		}
		rec, err := recordFromMongo(m.collection, cursor.Current)
		if err != nil {
			observer.OnError(err)
			return
		}
		rec.Offset = offset
		offset++
		observer.OnNext(rec)
	}
	if sub.IsUnsubscribed() {
		return
	}
	if err := cursor.Err(); err != nil {
		observer.OnError(fmt.Errorf("mongo cursor: %w", err))
		return
	}
	observer.OnCompleted()
}

func recordFromMongo(collection string, raw bson.Raw) (*models.Record, error) {
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	value, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("mongo encode: %w", err)
	}

	var key string
	id := raw.Lookup("_id")
	if len(id.Value) == 0 {
		key = ""
	} else if oid, ok := id.ObjectIDOK(); ok {
		key = oid.Hex()
	} else if s, ok := id.StringValueOK(); ok {
		key = s
	} else {
		key = id.String()
	}
	return models.NewRecord("mongo:"+collection, []byte(key), value)
}

func (m *MongoSource) Name() string { return m.cfg.Name }

func (m *MongoSource) Info() string { return m.cfg.info() }

func (m *MongoSource) Close() error {
	m.logger.Info().Msg("Closing MongoDB connection")
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
