package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog"

	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/models"
)

// ElasticSink indexes every record as one document. The record key, or its
// ID when the key is empty, is the document ID.
type ElasticSink struct {
	cfg SinkConfig

	elasticCloudId string
	elasticUrls    []string
	elasticApiKey  string
	elasticIndex   string
	refresh        string

	client *elasticsearch.Client
	logger zerolog.Logger
}

func NewElasticSink(cfg SinkConfig, _ Options) (Sink, error) {
	if err := cfg.Require("index_name"); err != nil {
		return nil, err
	}
	if cfg.Config["cloud_id"] == "" && cfg.Config["url"] == "" {
		return nil, fmt.Errorf("elasticsearch sink %q: one of cloud_id or url is required", cfg.Name)
	}
	return &ElasticSink{
		cfg:            cfg,
		elasticCloudId: cfg.Config["cloud_id"],
		elasticUrls:    cfg.List("url"),
		elasticApiKey:  cfg.Config["api_key"],
		elasticIndex:   cfg.Config["index_name"],
		refresh:        cfg.String("refresh", "false"),
		logger:         logger.GetLogger("elasticsearch-sink").With().Str("pipeline", cfg.Name).Logger(),
	}, nil
}

func (e *ElasticSink) Connect(ctx context.Context) error {
	e.logger.Trace().Msg("Connecting to elasticsearch...")
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: e.elasticUrls,
		CloudID:   e.elasticCloudId,
		APIKey:    e.elasticApiKey,
	})
	if err != nil {
		e.logger.Err(err).Msg("Error creating the elasticsearch client")
		return err
	}
	e.client = client
	return nil
}

func (e *ElasticSink) Write(ctx context.Context, records []*models.Record) error {
	if e.client == nil {
		return fmt.Errorf("elasticsearch sink %q: not connected", e.cfg.Name)
	}
	for _, r := range records {
		if err := e.index(ctx, r); err != nil {
			return err
		}
	}
	e.logger.Debug().Int("records", len(records)).Str("index", e.elasticIndex).Msg("records indexed")
	return nil
}

func (e *ElasticSink) index(ctx context.Context, r *models.Record) error {
	body, err := json.Marshal(r.Document())
	if err != nil {
		return err
	}
	docID := string(r.Key)
	if docID == "" {
		docID = r.ID.String()
	}

	req := esapi.IndexRequest{
		Index:      e.elasticIndex,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
		Refresh:    e.refresh,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("index document %s: %w", docID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		e.logger.Error().Str("status", res.Status()).Str("id", docID).Msg("Error indexing document")
		return fmt.Errorf("index document %s: %s: %s", docID, res.Status(), bytes.TrimSpace(msg))
	}
	return nil
}

func (e *ElasticSink) Name() string { return e.cfg.Name }

func (e *ElasticSink) Info() string { return e.cfg.info() }

func (e *ElasticSink) Close() error {
	e.logger.Info().Msg("Closing Elasticsearch connection")
	return nil
}
