// Package app wires the stores, the metadata fetcher and the network
// monitor together and owns their lifetime.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"readinglist/internal/config"
	"readinglist/internal/database"
	"readinglist/internal/domain"
	"readinglist/internal/logger"
	"readinglist/internal/metadata"
	"readinglist/internal/network"
	"readinglist/internal/notes"
	"readinglist/internal/notify"
	"readinglist/internal/repository"
	"readinglist/internal/service"
)

// JobEnrich is the queued job kind that fetches metadata for an item
const JobEnrich = "enrich-metadata"

// App holds every service of a running process
type App struct {
	Config *config.Config
	Logger *logger.Logger

	Items       *service.ItemService
	Tags        *service.TagService
	Collections *service.CollectionService
	Settings    *service.SettingsService
	Backup      *service.BackupService
	Enricher    *service.Enricher
	Notes       *notes.Renderer
	Network     *network.Monitor

	db    *sql.DB
	queue *network.Queue

	// background enrichment started by EnrichLater
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes New
type Option func(*options)

type options struct {
	fetcher service.MetadataFetcher
}

// WithFetcher replaces the HTTP metadata fetcher
func WithFetcher(f service.MetadataFetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// New opens the database, runs migrations, builds every service, seeds the
// system collections and repairs tag usage counts
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log.Info("Initializing database: %s", cfg.DatabasePath)
	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	log.Info("Running database migrations")
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	queue, err := network.OpenQueue(cfg.QueueDir, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: log,
		db:     db,
		queue:  queue,
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	log.Info("Initializing repositories")
	itemRepo := repository.NewItemRepository(db, log)
	tagRepo := repository.NewTagRepository(db, log)
	collectionRepo := repository.NewCollectionRepository(db, log)
	settingsRepo := repository.NewSettingsRepository(db, log)
	openRepo := repository.NewOpenRepository(db, log)

	log.Info("Initializing services")
	itemBus, tagBus := &notify.Bus{}, &notify.Bus{}
	usage := service.NewUsageCounter(itemRepo, tagRepo, tagBus, log)
	a.Items = service.NewItemService(itemRepo, tagRepo, openRepo, usage, itemBus, log)
	a.Tags = service.NewTagService(tagRepo, usage, tagBus, itemBus, log)
	a.Collections = service.NewCollectionService(collectionRepo, a.Items, &notify.Bus{}, log)
	a.Settings = service.NewSettingsService(settingsRepo, &notify.Bus{}, log)
	a.Backup = service.NewBackupService(a.Items, a.Tags, a.Collections, a.Settings, log)
	a.Notes = notes.NewRenderer()

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = metadata.NewFetcher(cfg.MetadataTimeout, cfg.UserAgent, log)
	}
	a.Enricher = service.NewEnricher(a.Items, a.Settings, fetcher, log)

	a.Network = network.NewMonitor(network.MonitorConfig{
		ProbeURL: cfg.ConnectivityURL,
		Interval: cfg.ConnectivityInterval,
	}, queue, log)
	a.Network.Handle(JobEnrich, a.runEnrichJob)

	if err := a.Collections.EnsureSystemCollections(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Tags.RecountAll(ctx); err != nil {
		a.Close()
		return nil, err
	}

	log.Info("Application initialized")
	return a, nil
}

func (a *App) runEnrichJob(ctx context.Context, job network.Job) error {
	_, err := a.Enricher.Enrich(ctx, job.ItemID)
	if errors.Is(err, domain.ErrNotFound) {
		// the item was deleted while the job waited
		return nil
	}
	return err
}

// Start begins connectivity probing
func (a *App) Start(ctx context.Context) {
	a.Network.Start(ctx)
}

// EnrichLater fetches metadata for the item in the background when the
// settings allow it. Offline, the job waits in the queue.
func (a *App) EnrichLater(itemID string) {
	settings, err := a.Settings.Get(a.ctx)
	if err != nil || !settings.AutoFetchMetadata {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		job := network.Job{Kind: JobEnrich, ItemID: itemID}
		if err := a.Network.Submit(a.ctx, job); err != nil {
			a.Logger.Error("Failed to submit enrichment of item %s: %v", itemID, err)
		}
	}()
}

// Close stops background work and releases the queue and the database
func (a *App) Close() error {
	a.Network.Stop()
	a.cancel()
	a.wg.Wait()

	var errs []error
	if err := a.queue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close job queue: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
