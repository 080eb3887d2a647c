package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/conduit-lang/halstore/internal/cli/config"
	"github.com/conduit-lang/halstore/internal/cli/ui"
	"github.com/conduit-lang/halstore/internal/logging"
	"github.com/conduit-lang/halstore/pkg/datastore"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/storage"
	"github.com/conduit-lang/halstore/pkg/storage/backend"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// configError marks failures caused by the configuration file
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// unknownModelError reports a model type that is not declared
type unknownModelError struct {
	modelType   string
	suggestions []string
}

func (e *unknownModelError) Error() string {
	return fmt.Sprintf("model type %q is not declared", e.modelType)
}

// session is one configured datastore for the duration of a command
type session struct {
	config   *config.Config
	logger   *zap.Logger
	registry *schema.Registry
	store    *datastore.Datastore
}

// loadConfig reads the configuration and applies the global flag overrides
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, &configError{err: err}
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.strategy != "" {
		cfg.Strategy = opts.strategy
	}
	return cfg, nil
}

func openSession(ctx context.Context, opts *globalOptions) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, &configError{err: err}
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, &configError{err: err}
	}

	dsConfig := datastore.Config{
		BaseURL:             cfg.BaseURL,
		Endpoint:            cfg.Endpoint,
		Strategy:            cfg.Strategy,
		SnapshotTTL:         cfg.Backend.TTL,
		Defaults:            cfg.RequestDefaults(),
		MaxIncludeDepth:     cfg.MaxIncludeDepth,
		KeepCachedFragments: cfg.KeepCachedFragments,
	}

	if kind, _ := storage.ParseKind(cfg.Strategy); kind == storage.KindPersistent {
		b, err := openBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dsConfig.Backend = b
	}

	client := &http.Client{Timeout: cfg.Timeout}
	store, err := datastore.New(dsConfig, registry,
		transport.NewHTTP(client, transport.WithLogger(logger)),
		datastore.WithLogger(logger))
	if err != nil {
		if dsConfig.Backend != nil {
			_ = dsConfig.Backend.Close()
		}
		return nil, err
	}

	logger.Debug("session ready",
		zap.String("base_url", cfg.BaseURL),
		zap.String("strategy", cfg.Strategy),
		zap.Strings("models", registry.Types()))

	return &session{
		config:   cfg,
		logger:   logger,
		registry: registry,
		store:    store,
	}, nil
}

// Close releases the backend and flushes the logger
func (s *session) Close() error {
	_ = s.logger.Sync()
	return s.store.Close()
}

// schemaFor resolves a model type, suggesting close matches when it is unknown
func (s *session) schemaFor(modelType string) (*schema.ModelSchema, error) {
	ms, err := s.registry.Get(modelType)
	if err != nil {
		return nil, &unknownModelError{
			modelType:   modelType,
			suggestions: ui.Suggest(modelType, s.registry.Types(), 2),
		}
	}
	return ms, nil
}

// openBackend connects the snapshot backend selected by the configuration
func openBackend(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	settings := cfg.BackendSettings()

	switch cfg.Backend.Kind {
	case config.BackendRedis:
		b, err := backend.NewRedisWithConfig(backend.RedisConfig{
			Addr:     cfg.Backend.Redis.Addr,
			Password: cfg.Backend.Redis.Password,
			DB:       cfg.Backend.Redis.DB,
			Config:   settings,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Backend.Redis.Addr, err)
		}
		return b, nil

	case config.BackendPostgres, config.BackendSQLite:
		driver := "postgres"
		if cfg.Backend.Kind == config.BackendSQLite {
			driver = "sqlite3"
		}
		db, err := sql.Open(driver, cfg.Backend.SQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend.Kind, err)
		}
		b := backend.NewSQL(db, cfg.Backend.SQL.Table, settings)
		if err := b.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to prepare %s backend: %w", cfg.Backend.Kind, err)
		}
		return b, nil

	default:
		return backend.NewMemoryWithConfig(settings), nil
	}
}
