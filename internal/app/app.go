package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"breeze-gateway/internal/breeze"
	"breeze-gateway/internal/catalog"
	"breeze-gateway/internal/config"
	"breeze-gateway/internal/model"
	"breeze-gateway/internal/publish"
	"breeze-gateway/internal/repository"
	"breeze-gateway/internal/service"
)

// App holds the components shared by the HTTP server and the CLI
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB // nil when the snapshot store is disabled
	Catalog  *catalog.Catalog
	Cache    *service.DocumentCache
	Stats    *service.MetricsCollector
	Targets  publish.Multi
	Metadata service.MetadataService
}

// Options adjust New for callers that do not need every component
type Options struct {
	// SkipDatabase disables the snapshot store regardless of configuration
	SkipDatabase bool
}

// New wires the catalog, builder, cache, snapshot store and publishers from cfg
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	cat := catalog.New()
	if err := catalog.Load(cat, Bindings(cfg.Breeze), model.ModelSets()); err != nil {
		return nil, fmt.Errorf("failed to register services: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		Catalog: cat,
		Cache:   service.NewDocumentCache(cfg.Breeze.CacheTTL),
		Stats:   service.NewMetricsCollector(),
	}

	svcOpts := []service.ServiceOption{service.WithStats(a.Stats)}

	if cfg.Database.Enabled && !opts.SkipDatabase {
		db, err := config.InitDatabase(cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(&model.MetadataSnapshot{}); err != nil {
				log.Warn("database migration failed, continuing with existing schema", zap.Error(err))
			}
		}
		a.DB = db
		svcOpts = append(svcOpts, service.WithSnapshots(repository.NewSnapshotRepository(db)))
	}

	targets, err := publish.NewPublishers(ctx, cfg.Publish)
	if err != nil {
		return nil, fmt.Errorf("failed to create publishers: %w", err)
	}
	a.Targets = targets
	if len(targets) > 0 {
		log.Info("metadata publishing enabled",
			zap.String("targets", targets.Name()),
			zap.Bool("on_change", cfg.Publish.OnChange))
		svcOpts = append(svcOpts, service.WithPublisher(targets, cfg.Publish.Prefix, cfg.Publish.OnChange))
	}

	a.Metadata = service.NewMetadataService(cat, NewBuilder(cfg.Breeze), a.Cache, log, svcOpts...)
	return a, nil
}

// NewBuilder creates a metadata builder from the breeze configuration
func NewBuilder(cfg config.BreezeConfig) *breeze.Builder {
	opts := []breeze.Option{
		breeze.WithPluralizer(breeze.PluralizerByName(cfg.Pluralizer)),
		breeze.WithLocalQueryComparisonOptions(cfg.LocalQueryComparisonOptions),
	}
	if cfg.Namespace != "" {
		opts = append(opts, breeze.WithNamespace(cfg.Namespace))
	}
	return breeze.NewBuilder(opts...)
}

// Bindings converts configured services into catalog bindings
func Bindings(cfg config.BreezeConfig) []catalog.Binding {
	bindings := make([]catalog.Binding, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		bindings = append(bindings, catalog.Binding{Name: s.Name, ModelSet: s.Models})
	}
	return bindings
}

// Close releases the publish targets and the database connection
func (a *App) Close() error {
	a.Cache.Stop()
	errs := []error{a.Targets.Close()}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
