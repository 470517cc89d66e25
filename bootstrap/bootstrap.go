// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file with CRUDGATE_* environment
// overrides; on reload the resource routes are rebuilt and swapped in
// without dropping in-flight requests.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	apihttp "github.com/artpar/crudgate/adapters/http"
	"github.com/artpar/crudgate/adapters/memory"
	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/adapters/mongo"
	"github.com/artpar/crudgate/adapters/sqlite"
	"github.com/artpar/crudgate/config"
	"github.com/artpar/crudgate/crud"
	"github.com/artpar/crudgate/openapi"
	"github.com/artpar/crudgate/ports"
)

// DefaultConfigPath is used when Options.ConfigPath is empty.
const DefaultConfigPath = "crudgate.yaml"

// Options controls application startup.
type Options struct {
	// ConfigPath is the YAML configuration file (default crudgate.yaml).
	ConfigPath string

	// HotReload enables config file watching and SIGHUP reload.
	HotReload bool
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	// Storage handles; at most one is non-nil, per the configured driver.
	sqliteDB *sqlite.DB
	mongoDB  *mongo.DB

	// memoryModels keeps records alive across router rebuilds when the
	// memory driver is active. Guarded by modelMu.
	modelMu      sync.Mutex
	memoryModels map[string]*memory.Model

	swapper *routerSwapper
	storage config.StorageConfig
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigPath
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Str("config", opts.ConfigPath).Msg("initializing crudgate")

	holder, err := config.NewHolder(opts.ConfigPath, logger)
	if err != nil {
		return nil, fmt.Errorf("config holder: %w", err)
	}

	a := &App{
		Logger:       logger,
		Config:       holder,
		memoryModels: make(map[string]*memory.Model),
		swapper:      &routerSwapper{},
		storage:      cfg.Storage,
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initStorage(cfg); err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	router, err := a.buildRouter(cfg)
	if err != nil {
		a.closeStorage(context.Background())
		return nil, fmt.Errorf("build router: %w", err)
	}
	a.swapper.Swap(router)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.swapper,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Info().Str("addr", cfg.Server.Addr()).Msg("http server configured")

	if opts.HotReload {
		a.watchConfig()
	}

	return a, nil
}

func (a *App) initStorage(cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		a.sqliteDB = db
		a.Logger.Info().Str("dsn", cfg.Storage.DSN).Msg("sqlite storage opened")

	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := mongo.Open(ctx, cfg.Storage.DSN, cfg.Storage.Database)
		if err != nil {
			return err
		}
		a.mongoDB = db
		a.Logger.Info().Str("database", cfg.Storage.Database).Msg("mongo storage opened")

	case "memory":
		a.Logger.Info().Msg("using in-memory storage, records are not persisted")

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return nil
}

// buildModel returns the ports.Model backing one declared resource,
// creating the table or indexes it needs.
func (a *App) buildModel(ctx context.Context, res config.ResourceConfig) (ports.Model, error) {
	switch {
	case a.sqliteDB != nil:
		fields := make([]sqlite.Field, 0, len(res.Fields))
		for _, f := range res.Fields {
			fields = append(fields, sqlite.Field{
				Name:     f.Name,
				Type:     f.Type,
				Required: f.Required,
				Unique:   f.Unique,
			})
		}
		model, err := sqlite.NewModel(a.sqliteDB, sqlite.Table{
			Name:       res.Table,
			PrimaryKey: res.PrimaryKey,
			Fields:     fields,
		})
		if err != nil {
			return nil, err
		}
		if err := model.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure table %s: %w", res.Table, err)
		}
		return model, nil

	case a.mongoDB != nil:
		model, err := mongo.NewModel(a.mongoDB, res.Table, res.PrimaryKey)
		if err != nil {
			return nil, err
		}
		var unique []string
		for _, f := range res.Fields {
			if f.Unique {
				unique = append(unique, f.Name)
			}
		}
		idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := model.EnsureIndexes(idxCtx, unique); err != nil {
			return nil, fmt.Errorf("ensure indexes %s: %w", res.Table, err)
		}
		return model, nil

	default:
		// Reloads reuse the existing model so records survive.
		a.modelMu.Lock()
		defer a.modelMu.Unlock()
		if m, ok := a.memoryModels[res.Name]; ok {
			return m, nil
		}
		m := memory.NewModel(res.PrimaryKey)
		a.memoryModels[res.Name] = m
		return m, nil
	}
}

// buildRouter assembles the full HTTP router from a config snapshot.
func (a *App) buildRouter(cfg *config.Config) (http.Handler, error) {
	ctx := context.Background()

	handlers := make([]*crud.Handler, 0, len(cfg.Resources))
	for _, res := range cfg.Resources {
		model, err := a.buildModel(ctx, res)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", res.Name, err)
		}

		actions, err := crud.ParseActions(res.Actions)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", res.Name, err)
		}

		crudCfg := crud.Config{Actions: actions}
		if a.Metrics != nil {
			resource := res.Name
			crudCfg.Observe = func(action crud.Action, outcome string) {
				a.Metrics.CRUDOperations.WithLabelValues(resource, action.String(), outcome).Inc()
			}
		}

		h, err := crud.New(res.Name, model, a.Logger, crudCfg)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", res.Name, err)
		}
		handlers = append(handlers, h)

		a.Logger.Info().
			Str("resource", res.Name).
			Str("table", res.Table).
			Int("actions", len(h.Actions())).
			Msg("resource registered")
	}

	routerCfg := apihttp.RouterConfig{
		Metrics:  a.Metrics,
		BasePath: cfg.API.BasePath,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if cfg.CORS.Enabled {
		routerCfg.CORSOrigins = cfg.CORS.AllowedOrigins
	}
	if cfg.OpenAPI.Enabled {
		spec := openapi.NewGenerator(cfg.API.BasePath, cfg.Resources).Generate()
		data, err := json.Marshal(spec)
		if err != nil {
			return nil, fmt.Errorf("marshal openapi spec: %w", err)
		}
		routerCfg.OpenAPISpec = data
	}

	return apihttp.NewRouterWithConfig(handlers, a.healthHandler(), a.Logger, routerCfg), nil
}

func (a *App) healthHandler() *apihttp.HealthHandler {
	switch {
	case a.sqliteDB != nil:
		return apihttp.NewHealthHandler(a.sqliteDB)
	case a.mongoDB != nil:
		return apihttp.NewHealthHandler(a.mongoDB)
	default:
		return apihttp.NewHealthHandler(nil)
	}
}

// watchConfig starts file watching and SIGHUP handling, rebuilding the
// router whenever a reload succeeds.
func (a *App) watchConfig() {
	a.Config.OnChange(func(cfg *config.Config) {
		a.applyConfig(cfg)
	})
	a.Config.OnError(func(err error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})

	if err := a.Config.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watching unavailable")
	}
	a.Config.WatchSignals()
}

// applyConfig rebuilds the resource router from a reloaded config and
// swaps it in. Storage settings are not reloadable; a change there is
// logged and ignored until restart.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg.Storage != a.storage {
		a.Logger.Warn().
			Str("driver", cfg.Storage.Driver).
			Msg("storage settings changed, restart required to apply")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	router, err := a.buildRouter(cfg)
	if err != nil {
		a.Logger.Error().Err(err).Msg("router rebuild failed, keeping previous routes")
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
		return
	}

	a.swapper.Swap(router)
	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}
	a.Logger.Info().Int("resources", len(cfg.Resources)).Msg("routes rebuilt from new config")
}

// Handler returns the live HTTP handler. Reloads are reflected in the
// returned handler without the caller re-fetching it.
func (a *App) Handler() http.Handler {
	return a.swapper
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Config.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.closeStorage(ctx)

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) closeStorage(ctx context.Context) {
	if a.sqliteDB != nil {
		if err := a.sqliteDB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("sqlite close error")
		}
	}
	if a.mongoDB != nil {
		if err := a.mongoDB.Close(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("mongo close error")
		}
	}
}

// routerSwapper replaces the live handler when config reloads. In-flight
// requests finish on the router they started with.
type routerSwapper struct {
	mu      sync.RWMutex
	handler http.Handler
}

func (s *routerSwapper) Swap(h http.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *routerSwapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	h.ServeHTTP(w, r)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
