package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/terra-clan/carprice-engine/internal/artifacts"
	"github.com/terra-clan/carprice-engine/internal/config"
	"github.com/terra-clan/carprice-engine/internal/logging"
	"github.com/terra-clan/carprice-engine/internal/pricing"
	"github.com/terra-clan/carprice-engine/internal/sources"
	"github.com/terra-clan/carprice-engine/internal/storage"
)

// setup loads the configuration and installs the global logger
func setup(logOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, logOut)
	return cfg, nil
}

// artifactPaths maps artifact names to the configured files
func artifactPaths(cfg config.ArtifactsConfig) map[string]string {
	return map[string]string{
		artifacts.NameColumns:   cfg.ColumnsPath,
		artifacts.NameScaler:    cfg.ScalerPath,
		artifacts.NameModel:     cfg.ModelPath,
		artifacts.NameReference: cfg.ReferencePath,
	}
}

// providerSet is the set of artifact providers opened for one command
type providerSet struct {
	registry *sources.Registry
	closers  []func() error
}

func (p *providerSet) Close() {
	for _, closeFn := range p.closers {
		if err := closeFn(); err != nil {
			slog.Warn("failed to close artifact provider", "error", err)
		}
	}
}

// openProviders registers the directory provider and, if source names one,
// connects the network store. Only the selected store is dialed.
func openProviders(ctx context.Context, cfg *config.Config, source string) (*providerSet, error) {
	set := &providerSet{registry: sources.NewRegistry()}
	set.registry.Register(config.SourceDir, sources.NewDirProvider(artifactPaths(cfg.Artifacts)))

	switch source {
	case config.SourceDir:
	case config.SourcePostgres:
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
			MaxLifetime:  cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create database repository: %w", err)
		}
		set.closers = append(set.closers, repo.Close)

		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.RunMigrations(ctx, repo.Pool(), storage.MigrationsFS(cfg.Database.MigrationsDir)); err != nil {
			set.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		set.registry.Register(config.SourcePostgres, sources.NewPostgresProvider(repo))
	case config.SourceRedis:
		rp, err := sources.NewRedisProvider(ctx, sources.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis provider: %w", err)
		}
		set.closers = append(set.closers, rp.Close)
		set.registry.Register(config.SourceRedis, rp)
	default:
		return nil, fmt.Errorf("unknown artifact source: %q", source)
	}

	return set, nil
}

// loadService reads the artifacts from the configured source and builds the
// pricing service. Network stores are closed again once the artifacts are in memory.
func loadService(cfg *config.Config) (pricing.Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Artifacts.LoadTimeout)
	defer cancel()

	set, err := openProviders(ctx, cfg, cfg.Artifacts.Source)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	provider, err := set.registry.Resolve(cfg.Artifacts.Source)
	if err != nil {
		return nil, err
	}

	registry, err := artifacts.Load(ctx, provider)
	if err != nil {
		return nil, err
	}

	return pricing.NewService(registry, cfg.Artifacts.ModelID)
}
