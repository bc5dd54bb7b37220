package pipeline

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"github.com/tarungka/rxwire/sinks"
	"github.com/tarungka/rxwire/sources"
)

// PipelineConfig describes one source -> transforms -> collect -> sink chain.
type PipelineConfig struct {
	Name        string               `koanf:"name" json:"name"`
	Parallelism int                  `koanf:"parallelism" json:"parallelism"`
	BufferSize  int                  `koanf:"buffer_size" json:"buffer_size"`
	RateLimit   float64              `koanf:"rate_limit" json:"rate_limit"` // records per second, 0 is unlimited
	Burst       int                  `koanf:"burst" json:"burst"`
	Transforms  []string             `koanf:"transforms" json:"transforms"`
	SkipFailed  bool                 `koanf:"skip_failed" json:"skip_failed"`
	Sort        bool                 `koanf:"sort" json:"sort"` // sort the result by source offset
	Source      sources.SourceConfig `koanf:"source" json:"source"`
	Sink        sinks.SinkConfig     `koanf:"sink" json:"sink"`
}

// withDefaults fills unset values. The source and sink inherit the pipeline
// name when they have none.
func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 100
	}
	if c.Source.Name == "" {
		c.Source.Name = c.Name
	}
	if c.Sink.Name == "" {
		c.Sink.Name = c.Name
	}
	if c.Source.Key == "" {
		c.Source.Key = c.Name
	}
	if c.Sink.Key == "" {
		c.Sink.Key = c.Name
	}
	return c
}

// Validate checks the values that cannot be defaulted.
func (c PipelineConfig) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("pipeline name is required"))
	}
	if c.Source.ConnectionType == "" {
		errs = append(errs, fmt.Errorf("pipeline %q: source type is required", c.Name))
	}
	if c.Sink.ConnectionType == "" {
		errs = append(errs, fmt.Errorf("pipeline %q: sink type is required", c.Name))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("pipeline %q: rate_limit must not be negative", c.Name))
	}
	return errors.Join(errs...)
}

// ParseConfig reads the "pipelines" section of ko.
func ParseConfig(ko *koanf.Koanf) ([]PipelineConfig, error) {
	var cfgs []PipelineConfig
	if err := ko.Unmarshal("pipelines", &cfgs); err != nil {
		log.Err(err).Msg("Error when un-marshaling pipeline configs")
		return nil, err
	}

	seen := make(map[string]bool, len(cfgs))
	for i, c := range cfgs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate pipeline name %q", c.Name)
		}
		seen[c.Name] = true
		cfgs[i] = c.withDefaults()
	}
	return cfgs, nil
}
