package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/prismintel/propertyflow/internal/ai"
	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/normalize"
	"github.com/prismintel/propertyflow/internal/pipeline"
	"github.com/prismintel/propertyflow/internal/storage"
	badgerstore "github.com/prismintel/propertyflow/internal/storage/badger"
	"github.com/prismintel/propertyflow/internal/tasks"
)

const version = "0.2.0"

var (
	configFile  = flag.String("config", "", "Configuration file path (default: propertyflow.toml if present)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("propertyflow version %s\n", version)
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	path := *configFile
	if path == "" {
		if _, err := os.Stat("propertyflow.toml"); err == nil {
			path = "propertyflow.toml"
		}
	}

	config, err := common.LoadConfig(path)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Str("storage_backend", config.Storage.Backend).
		Msg("Starting propertyflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("Pipeline terminated with error")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}

func run(ctx context.Context, config *common.Config, logger arbor.ILogger) error {
	runs, taskStore, cleanup, err := openRecordStores(ctx, config, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := storage.NewLocalDocumentStore(&config.Watch, logger)
	if err != nil {
		return fmt.Errorf("initializing document store: %w", err)
	}

	caller, err := ai.NewVertexCaller(ctx, &config.AI)
	if err != nil {
		return fmt.Errorf("initializing analysis backend: %w", err)
	}
	defer caller.Close()

	analyzer := ai.NewAnalyzer(caller, &config.AI, logger)
	normalizer := normalize.New(&config.AI, logger)
	engine := tasks.NewEngine(&config.Tasks)

	coordinator := pipeline.NewCoordinator(
		&config.Pipeline, docs, runs, taskStore, normalizer, analyzer, engine, logger,
	)
	watcher := pipeline.NewWatcher(&config.Watch, coordinator, docs, logger)
	return watcher.Run(ctx)
}

// openRecordStores selects the run/task persistence backend from config:
// embedded Badger for single-host deployments, Firestore for cloud mode.
func openRecordStores(ctx context.Context, config *common.Config, logger arbor.ILogger) (storage.RunStore, storage.TaskStore, func(), error) {
	switch config.Storage.Backend {
	case "firestore":
		store, err := storage.NewFirestoreStore(ctx, &config.Storage.Firestore, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing firestore: %w", err)
		}
		return store, store, func() { _ = store.Close() }, nil

	default:
		db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing badger: %w", err)
		}
		runs := badgerstore.NewRunStorage(db, logger)
		taskStore := badgerstore.NewTaskStorage(db, logger)
		return runs, taskStore, func() { _ = db.Close() }, nil
	}
}
