package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func newFlagSet() *flag.FlagSet {
	f := flag.NewFlagSet("rxwire", flag.ContinueOnError)
	f.StringSlice("config", nil, "path to one or more config files (merged in order)")
	f.String("port", "8080", "port to host the web server on")
	f.Bool("version", false, "show current version of the build")
	f.Bool("serve", false, "serve the HTTP API until interrupted")
	f.StringSlice("run", nil, `pipelines to run once at startup, "all" for every pipeline`)
	f.Bool("development", false, "human readable log output")
	f.String("log_level", "info", "log level (trace, debug, info, warn, error)")
	f.String("log_file", "", "also write logs to this file")
	f.Bool("override", false, "let the config files override the command line arguments")
	return f
}

// loadConfig parses args into ko. Config files are loaded before the flags
// unless --override is set, then after them.
func loadConfig(ko *koanf.Koanf, args []string) error {
	f := newFlagSet()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("error loading flags: %w", err)
	}

	configs, _ := f.GetStringSlice("config")
	override, _ := f.GetBool("override")

	if !override {
		if err := loadFiles(ko, configs); err != nil {
			return err
		}
	}
	if err := ko.Load(posflag.Provider(f, ".", ko), nil); err != nil {
		return fmt.Errorf("error reading flag config: %w", err)
	}
	if override {
		if err := loadFiles(ko, configs); err != nil {
			return err
		}
	}
	return nil
}

func loadFiles(ko *koanf.Koanf, paths []string) error {
	for _, path := range paths {
		parser, err := parserFor(path)
		if err != nil {
			return err
		}
		log.Debug().Msgf("Reading config from %s", path)
		if err := ko.Load(file.Provider(path), parser); err != nil {
			return fmt.Errorf("error reading config %s: %w", path, err)
		}
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", path)
	}
}
