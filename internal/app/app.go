// Package app builds the service container shared by the server, the seed
// command and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"aireporter/internal/capabilities"
	"aireporter/internal/config"
	"aireporter/internal/domain/repositories"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/events"
	"aireporter/internal/filestore"
	"aireporter/internal/handler"
	"aireporter/internal/repository/kv"
	"aireporter/internal/repository/memory"
	"aireporter/internal/repository/postgres"
	"aireporter/internal/repository/sqlite"
	"aireporter/internal/service/converter"
	"aireporter/internal/service/export"
	"aireporter/internal/service/generation"
	"aireporter/internal/service/images"
	serviceLLM "aireporter/internal/service/llm"
	storeService "aireporter/internal/service/reports"
	"aireporter/internal/service/settings"
)

// App holds every long-lived service
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        repositories.KeyValueStore
	Files        *filestore.Local
	Images       images.Service
	Reports      reportsSvc.StoreService
	Settings     reportsSvc.SettingsService
	Providers    *serviceLLM.ProviderRegistry
	Capabilities *capabilities.Registry
	Orchestrator *generation.Orchestrator
	Export       *export.Service
	Events       *events.Hub
}

// New wires the application on the OS filesystem
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	return NewWithFs(ctx, cfg, logger, afero.NewOsFs())
}

// NewWithFs wires the application with image files and exports on fsys
func NewWithFs(ctx context.Context, cfg *config.Config, logger *slog.Logger, fsys afero.Fs) (*App, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	files, err := filestore.NewLocal(fsys, cfg.ImagesDir(), logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	providers, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load model capabilities: %w", err)
	}

	prompts, err := generation.LoadPromptCatalog()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	imageService := images.NewService(kv.NewImageRepository(store), files, logger)
	reportService := storeService.NewStoreService(
		kv.NewProjectRepository(store, logger),
		store,
		imageService,
		converter.NewRegistry(),
		logger,
	)
	settingsService := settings.NewService(kv.NewSettingsRepository(store), logger)
	hub := events.NewHub(logger)

	orchestrator := generation.NewOrchestrator(generation.Options{
		Store:     reportService,
		Images:    imageService,
		Settings:  settingsService,
		Providers: providers,
		Prompts:   prompts,
		Events:    hub,
		Timeout:   cfg.GenerationTimeout,
		Logger:    logger,
	})

	exportService := export.NewService(export.Options{
		Reports:  reportService,
		Images:   imageService,
		Settings: settingsService,
		Fs:       fsys,
		Logger:   logger,
	})

	logger.Info("services initialized", "backend", cfg.StorageBackend, "images", files.Root())

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Files:        files,
		Images:       imageService,
		Reports:      reportService,
		Settings:     settingsService,
		Providers:    providers,
		Capabilities: capabilityRegistry,
		Orchestrator: orchestrator,
		Export:       exportService,
		Events:       hub,
	}, nil
}

// OpenStore opens the key-value backend named by cfg.StorageBackend
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.KeyValueStore, error) {
	switch cfg.StorageBackend {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on exit")
		return memory.NewStore(), nil

	case "sqlite", "":
		store, err := sqlite.Open(cfg.SQLitePath(), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("database connected", "backend", "sqlite", "path", cfg.SQLitePath())
		return store, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := postgres.NewStore(ctx, &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected", "backend", "postgres", "table_prefix", cfg.TablePrefix)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Handlers builds the HTTP handlers over the app's services
func (a *App) Handlers(originPatterns []string) *handler.Handlers {
	workspace := a.Orchestrator.Workspace()
	return &handler.Handlers{
		Projects:   handler.NewProjectHandler(a.Reports, workspace, a.Logger),
		Items:      handler.NewItemHandler(a.Reports, workspace, a.Logger),
		Images:     handler.NewImageHandler(a.Images, a.Logger),
		Media:      handler.NewMediaHandler(a.Files, a.Logger),
		Generation: handler.NewGenerationHandler(a.Orchestrator, a.Logger),
		Workspace:  handler.NewWorkspaceHandler(workspace, a.Reports, a.Logger),
		Export:     handler.NewExportHandler(a.Export, a.Logger),
		HackerOne:  handler.NewHackerOneHandler(a.Reports, workspace, a.Logger),
		Settings:   handler.NewSettingsHandler(a.Settings, a.Logger),
		Models:     handler.NewModelsHandler(a.Capabilities, a.Providers, a.Settings, a.Logger),
		Events:     handler.NewEventsHandler(a.Events, originPatterns, a.Logger),
	}
}

// Close waits for background generations (bounded by ctx), ends event
// streams and closes the store.
func (a *App) Close(ctx context.Context) error {
	if err := a.Orchestrator.Wait(ctx); err != nil {
		a.Logger.Warn("generations still running at shutdown", "active", a.Orchestrator.Active())
	}
	a.Events.Close()
	return a.Store.Close()
}
