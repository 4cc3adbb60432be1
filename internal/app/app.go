// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/clock/system"
	"github.com/JakeFAU/nj-housing-tracker/internal/config"
	"github.com/JakeFAU/nj-housing-tracker/internal/document"
	"github.com/JakeFAU/nj-housing-tracker/internal/extract"
	collyfetcher "github.com/JakeFAU/nj-housing-tracker/internal/fetcher/colly"
	"github.com/JakeFAU/nj-housing-tracker/internal/fetcher/headless"
	"github.com/JakeFAU/nj-housing-tracker/internal/hash/sha256"
	"github.com/JakeFAU/nj-housing-tracker/internal/headless/detector"
	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/id/uuid"
	"github.com/JakeFAU/nj-housing-tracker/internal/obligations"
	"github.com/JakeFAU/nj-housing-tracker/internal/pdftext"
	"github.com/JakeFAU/nj-housing-tracker/internal/pipeline"
	"github.com/JakeFAU/nj-housing-tracker/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/nj-housing-tracker/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/nj-housing-tracker/internal/publisher/pubsub"
	"github.com/JakeFAU/nj-housing-tracker/internal/resolver"
	"github.com/JakeFAU/nj-housing-tracker/internal/source"
	"github.com/JakeFAU/nj-housing-tracker/internal/storage/gcs"
	"github.com/JakeFAU/nj-housing-tracker/internal/storage/local"
	"github.com/JakeFAU/nj-housing-tracker/internal/storage/memory"
	"github.com/JakeFAU/nj-housing-tracker/internal/storage/postgres"
	"github.com/JakeFAU/nj-housing-tracker/internal/storage/sqlite"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

// Publisher is a notification sink that owns a connection.
type Publisher interface {
	pipeline.Publisher
	Close() error
}

// App holds the shared, long-lived services for one command invocation.
// It is built once from configuration and passed to the commands that need it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	clock     housing.Clock
	store     store.Store
	http      *collyfetcher.Fetcher
	renderer  *headless.Fetcher
	archive   pipeline.Archive
	publisher Publisher
	gcs       *gcsclient.Client
}

// New builds every service named in cfg. It fails fast when a backend cannot be reached;
// anything already opened is closed before returning the error.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New()}
	if err := a.init(ctx); err != nil {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("close after failed init", zap.Error(cerr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger
	var err error

	logger.Info("initializing services",
		zap.String("store", cfg.Store.Driver),
		zap.String("archive", cfg.Archive.Provider),
		zap.String("publisher", cfg.Publisher.Provider),
	)

	if a.store, err = openStore(ctx, cfg.Store, a.clock); err != nil {
		return err
	}

	a.http = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Fetcher.UserAgent,
		RespectRobots: cfg.Fetcher.RespectRobots,
		Timeout:       cfg.Fetcher.Timeout,
		MaxBodyBytes:  cfg.Fetcher.MaxBodyBytes,
	})

	if cfg.Headless.Enabled {
		renderer, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Fetcher.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout,
		})
		if err != nil {
			return fmt.Errorf("init headless renderer: %w", err)
		}
		a.renderer = renderer
	}

	switch cfg.Archive.Provider {
	case "memory":
		a.archive = memory.NewBlobStore()
	case "local":
		archive, err := local.New(local.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return fmt.Errorf("init local archive: %w", err)
		}
		a.archive = archive
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		a.gcs = client
		archive, err := gcs.New(client, gcs.Config{Bucket: cfg.Archive.Bucket})
		if err != nil {
			return fmt.Errorf("init gcs archive: %w", err)
		}
		a.archive = archive
	}

	switch cfg.Publisher.Provider {
	case "memory":
		a.publisher = memorypublisher.New()
	case "pubsub":
		publisher, err := pubsubpublisher.Dial(ctx, cfg.Publisher.ProjectID, cfg.Publisher.Topic)
		if err != nil {
			return fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.publisher = publisher
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, clock housing.Clock) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		st, err = sqlite.New(cfg.DSN, clock)
	case "postgres":
		st, err = postgres.New(ctx, cfg.DSN, clock)
	default:
		return nil, &housing.ConfigurationError{Field: "store.driver", Reason: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate %s store: %w", cfg.Driver, err)
	}
	return st, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Store exposes the persistence store.
func (a *App) Store() store.Store { return a.store }

// Publisher returns the configured notification sink, or nil when publishing is off.
func (a *App) Publisher() Publisher { return a.publisher }

// Resolver builds the municipality resolver over the configured candidate sources.
func (a *App) Resolver() (*resolver.Resolver, error) {
	rc := a.cfg.Resolver
	var sources []resolver.CandidateSource
	for _, kind := range rc.Priority() {
		switch kind {
		case housing.SourceDirectory:
			sources = append(sources, source.NewDirectoryAdapter(a.http, rc.DirectoryURL, a.logger))
		case housing.SourceSearch:
			searcher := source.NewWebSearcher(a.http, rc.SearchEndpoint)
			sources = append(sources, source.NewSearchAdapter(searcher, source.NewBlocklist(rc.ExcludedDomains), rc.SearchResults, a.logger))
		}
	}
	return resolver.New(resolver.Config{
		SearchDelay: rc.SearchDelay,
		Priority:    rc.Priority(),
	}, sources, a.store, a.clock, resolver.TimerPauser{}, a.logger)
}

// Pipeline builds the extraction pipeline. force overrides extract.force when set.
func (a *App) Pipeline(force bool) (*pipeline.Pipeline, error) {
	opts := document.Options{
		Limiter: ratelimit.New(ratelimit.Config{MinInterval: a.cfg.Fetcher.Delay}),
		PDF:     pdftext.New(a.cfg.PDF.PdftotextPath),
		Logger:  a.logger,
	}
	if a.renderer != nil {
		opts.Renderer = a.renderer
		opts.Promoter = detector.NewHeuristic(a.cfg.Headless.MinBodyBytes)
	}
	documents, err := document.NewFetcher(a.http, opts)
	if err != nil {
		return nil, fmt.Errorf("init document fetcher: %w", err)
	}

	extractor, err := extract.New(extract.Config{
		MinFields:       a.cfg.Extract.MinFields,
		WindowSentences: a.cfg.Extract.WindowSentences,
	})
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	popts := pipeline.Options{
		Archive: a.archive,
		IDs:     uuid.New(),
		Logger:  a.logger,
	}
	if a.publisher != nil {
		popts.Publisher = a.publisher
	}
	return pipeline.New(pipeline.Config{
		MaxPages:      a.cfg.Extract.MaxPagesPerMunicipality,
		Force:         force || a.cfg.Extract.Force,
		ArchivePrefix: a.cfg.Archive.Prefix,
	}, documents, extractor, a.store, sha256.New(), a.clock, popts)
}

// ObligationsLoader builds the workbook loader over the store.
func (a *App) ObligationsLoader(createMissing bool) (*obligations.Loader, error) {
	return obligations.NewLoader(a.store, createMissing, a.logger)
}

// Close releases every service that was opened. It is safe to call on a partially
// built App.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gcs client: %w", err))
		}
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
