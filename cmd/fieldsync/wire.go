package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/safeworkpro/fieldsync/internal/adapters/driven/config/file"
	"github.com/safeworkpro/fieldsync/internal/adapters/driven/connectivity"
	"github.com/safeworkpro/fieldsync/internal/adapters/driven/objectstore"
	"github.com/safeworkpro/fieldsync/internal/adapters/driven/remote/httpapi"
	"github.com/safeworkpro/fieldsync/internal/adapters/driven/storage/memory"
	"github.com/safeworkpro/fieldsync/internal/adapters/driven/storage/sqlite"
	"github.com/safeworkpro/fieldsync/internal/adapters/driving/cli"
	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/core/services"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// queueBackend is the storage the engine needs from a single store.
type queueBackend interface {
	driven.QueueStore
	driven.MetadataStore
	driven.HistoryStore
}

// bootstrap builds the service graph from the global flags.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	configDir := filepath.Dir(configStore.Path())

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	store, err := newQueueBackend(opts, configDir)
	if err != nil {
		return nil, nil, err
	}

	remote, err := newRemoteClient(settings)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	conn, err := connectivity.New(*settings, configDir)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	engine := services.NewSyncEngine(settings.Sync, store, store, store, remote, conn)
	if err := engine.Recover(ctx); err != nil {
		// The store stays usable for a later Initialize; commands report
		// ErrStorageUnavailable until then.
		logger.Warn("storage: %v", err)
	}

	monitor := services.NewConnectivityMonitor(settings.Sync.Interval, conn, engine)

	release := func() {
		engine.Wait()
		if err := store.Close(); err != nil {
			logger.Warn("close store: %v", err)
		}
	}

	return &cli.Services{
		Sync:      engine,
		Settings:  settingsService,
		Monitor:   monitor,
		Listeners: engine,
	}, release, nil
}

func newQueueBackend(opts cli.Options, configDir string) (queueBackend, error) {
	if opts.Ephemeral {
		logger.Debug("storage: using in-memory queue")
		return memory.NewStore(), nil
	}

	dataDir := opts.DataDir
	if dataDir == "" && opts.ConfigDir != "" {
		dataDir = filepath.Join(configDir, "data")
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	logger.Debug("storage: %s", store.Path())
	return store, nil
}

func newRemoteClient(settings *domain.AppSettings) (*httpapi.Client, error) {
	cfg := httpapi.Config{
		BaseURL:   settings.API.BaseURL,
		Token:     settings.API.Token,
		RateLimit: settings.API.RateLimit,
		RateBurst: settings.API.RateBurst,
	}

	if settings.ObjectStore.IsConfigured() {
		uploader, err := objectstore.NewUploader(settings.ObjectStore)
		if err != nil {
			return nil, err
		}
		logger.Debug("attachments: uploading to bucket %s", uploader.Bucket())
		cfg.Uploader = uploader
	}

	client, err := httpapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	return client, nil
}
