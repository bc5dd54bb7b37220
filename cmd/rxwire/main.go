package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"github.com/tarungka/rxwire/checkpoint"
	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/pipeline"
	"github.com/tarungka/rxwire/server"
	"github.com/tarungka/rxwire/sinks"
	"github.com/tarungka/rxwire/state"
)

var buildString = "unknown"

func main() {
	ko := koanf.New(".")
	if err := loadConfig(ko, os.Args[1:]); err != nil {
		logger.AdHocLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	if ko.Bool("version") {
		fmt.Println(buildString)
		os.Exit(0)
	}

	if err := setupLogging(ko); err != nil {
		logger.AdHocLogger.Fatal().Err(err).Msg("error setting up logging")
	}
	log.Info().Str("build", buildString).Msg("Starting the application")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, ko); err != nil && !errors.Is(err, context.Canceled) {
		log.Err(err).Msg("exiting with error")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("Shut down")
}

func setupLogging(ko *koanf.Koanf) error {
	logger.SetDevelopment(ko.Bool("development"))
	if err := logger.SetLevel(ko.String("log_level")); err != nil {
		return err
	}
	if path := ko.String("log_file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		logger.SetLogFile(f)
	}
	logger.Install()
	return nil
}

func run(ctx context.Context, ko *koanf.Koanf) error {
	var stateCfg state.Config
	if err := ko.Unmarshal("state", &stateCfg); err != nil {
		return fmt.Errorf("state config: %w", err)
	}
	backend, err := state.Open(stateCfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	store, err := checkpoint.NewStore(backend)
	if err != nil {
		return err
	}
	defer store.Close()

	cfgs, err := pipeline.ParseConfig(ko)
	if err != nil {
		return err
	}
	manager := pipeline.NewManager()
	if err := manager.Build(cfgs, sinks.WithCheckpoints(store)); err != nil {
		return err
	}
	defer manager.Stop()
	log.Info().Strs("pipelines", manager.Names()).Str("state", stateCfg.Backend).Msg("pipelines configured")

	if names := ko.Strings("run"); len(names) > 0 {
		if slices.Contains(names, "all") {
			names = nil
		}
		summaries, err := manager.RunAll(ctx, names...)
		for _, s := range summaries {
			if s.Pipeline == "" {
				continue
			}
			log.Info().Str("pipeline", s.Pipeline).Int("records", s.Count).
				Dur("duration", s.Duration).Str("checkpoint", s.Checkpoint).Msg("pipeline finished")
		}
		if err != nil {
			return err
		}
	}

	if ko.Bool("serve") {
		return server.New(manager, store).Run(ctx, ":"+ko.String("port"))
	}
	return nil
}
