// Package server provides the core application server and dependency injection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/ltd-dasher/internal/api"
	"github.com/JakeFAU/ltd-dasher/internal/builder"
	"github.com/JakeFAU/ltd-dasher/internal/clock/system"
	"github.com/JakeFAU/ltd-dasher/internal/config"
	"github.com/JakeFAU/ltd-dasher/internal/dashboard"
	"github.com/JakeFAU/ltd-dasher/internal/fastly"
	"github.com/JakeFAU/ltd-dasher/internal/history"
	pghistory "github.com/JakeFAU/ltd-dasher/internal/history/postgres"
	"github.com/JakeFAU/ltd-dasher/internal/id/uuid"
	"github.com/JakeFAU/ltd-dasher/internal/keeper"
	"github.com/JakeFAU/ltd-dasher/internal/notify"
	memorynotify "github.com/JakeFAU/ltd-dasher/internal/notify/memory"
	pubsubnotify "github.com/JakeFAU/ltd-dasher/internal/notify/pubsub"
	"github.com/JakeFAU/ltd-dasher/internal/publisher"
	"github.com/JakeFAU/ltd-dasher/internal/storage"
	gcsstorage "github.com/JakeFAU/ltd-dasher/internal/storage/gcs"
	localstorage "github.com/JakeFAU/ltd-dasher/internal/storage/local"
	memorystorage "github.com/JakeFAU/ltd-dasher/internal/storage/memory"
	s3storage "github.com/JakeFAU/ltd-dasher/internal/storage/s3"
	"github.com/JakeFAU/ltd-dasher/internal/telemetry"
	"github.com/JakeFAU/ltd-dasher/internal/version"
)

// App contains the application's dependencies.
type App struct {
	cfg            config.Config
	logger         *zap.Logger
	apiServer      *api.Server
	builder        *builder.Builder
	gcsClient      *gcs.Client
	pubsub         *pubsubnotify.Publisher
	recorder       history.Recorder
	tracerShutdown func(context.Context) error
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Only non-sensitive fields are logged.
	logger.Info("Creating application",
		zap.String("profile", cfg.Profile),
		zap.Int("server_port", cfg.Server.Port),
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.Bool("skip_upload", cfg.Publish.SkipUpload),
	)
	return &App{cfg: cfg, logger: logger}
}

// Handler exposes the HTTP routes.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Builder returns the dashboard builder shared by the HTTP handlers.
func (a *App) Builder() *builder.Builder {
	return a.builder
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started", zap.String("version", version.Current()))
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

// Close gracefully shuts down the application.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure()
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure() {
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		} else {
			a.logger.Debug("pubsub publisher closed")
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		} else {
			a.logger.Debug("gcs client closed")
		}
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
}

func (a *App) closeObservability(ctx context.Context) {
	// Sync on a console logger can fail with EINVAL; nothing useful to do.
	_ = a.logger.Sync()
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
}

// Build creates the application's dependencies. Clients opened before a
// failing step are closed before the error is returned.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	app := NewApp(cfg, logger)
	if err := wire(ctx, app); err != nil {
		app.logger.Warn("dependency setup failed, releasing clients", zap.Error(err))
		app.closeInfrastructure()
		app.closeObservability(ctx)
		return nil, err
	}
	return app, nil
}

func wire(ctx context.Context, app *App) error {
	cfg := app.cfg
	if cfg.Telemetry.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     version.Current(),
			Exporter:    cfg.Telemetry.Exporter,
		})
		if err != nil {
			return fmt.Errorf("tracer init failed: %w", err)
		}
		app.tracerShutdown = tp.Shutdown
	}

	app.logger.Info("building application dependencies")

	store, err := setupStorage(ctx, app)
	if err != nil {
		return err
	}
	pub := publisher.New(publisher.Config{
		SkipUpload:         cfg.Publish.SkipUpload,
		AssetsPrefix:       cfg.Publish.AssetsPrefix,
		StorageKeyID:       cfg.AWS.AccessKeyID,
		StorageSecret:      cfg.AWS.SecretAccessKey,
		FastlyKey:          cfg.Fastly.APIKey,
		FastlyServiceID:    cfg.Fastly.ServiceID,
		AmbientStorageAuth: cfg.Storage.Provider != "s3",
	}, store, setupPurger(app), dashboard.Assets(), app.logger.Named("publisher"))

	notifier, err := setupNotifier(ctx, app)
	if err != nil {
		return err
	}
	if err := setupHistory(ctx, app); err != nil {
		return err
	}

	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return fmt.Errorf("renderer init failed: %w", err)
	}
	catalog := keeper.New(cfg.KeeperClientConfig(), app.logger.Named("keeper"))

	ids := uuid.New()
	app.builder = builder.New(
		catalog,
		renderer,
		pub,
		notifier,
		app.recorder,
		system.New(),
		ids,
		builder.Config{Topic: cfg.Notify.Topic},
		app.logger.Named("builder"),
	)
	app.apiServer = api.NewServer(
		app.builder,
		ids,
		api.Config{RequestTimeout: cfg.RequestTimeout()},
		app.logger.Named("api"),
	)
	return nil
}

// setupStorage returns nil when uploads are skipped or the S3 credentials are
// absent; the publisher reports the misconfiguration per build.
func setupStorage(ctx context.Context, app *App) (storage.Provider, error) {
	if app.cfg.Publish.SkipUpload {
		app.logger.Info("uploads disabled, skipping storage backend")
		return nil, nil
	}
	switch app.cfg.Storage.Provider {
	case "gcs":
		app.logger.Info("using GCS storage backend")
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.gcsClient = client
		store, err := gcsstorage.New(client)
		if err != nil {
			return nil, fmt.Errorf("gcs store init failed: %w", err)
		}
		return store, nil
	case "local":
		app.logger.Info("using local storage backend", zap.String("path", app.cfg.Storage.LocalDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local store init failed: %w", err)
		}
		return store, nil
	case "memory":
		app.logger.Info("using in-memory storage backend")
		return memorystorage.New(), nil
	default:
		if app.cfg.AWS.AccessKeyID == "" || app.cfg.AWS.SecretAccessKey == "" {
			app.logger.Warn("S3 credentials not set, builds will fail to publish")
			return nil, nil
		}
		app.logger.Info("using S3 storage backend",
			zap.String("region", app.cfg.Storage.Region),
			zap.String("endpoint", app.cfg.Storage.Endpoint))
		store, err := s3storage.New(ctx, s3storage.Config{
			Region:          app.cfg.Storage.Region,
			Endpoint:        app.cfg.Storage.Endpoint,
			AccessKeyID:     app.cfg.AWS.AccessKeyID,
			SecretAccessKey: app.cfg.AWS.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 store init failed: %w", err)
		}
		return store, nil
	}
}

func setupPurger(app *App) publisher.Purger {
	if app.cfg.Publish.SkipUpload {
		return nil
	}
	client, err := fastly.New(fastly.Config{
		APIKey:    app.cfg.Fastly.APIKey,
		ServiceID: app.cfg.Fastly.ServiceID,
		Endpoint:  app.cfg.Fastly.Endpoint,
	}, nil)
	if err != nil {
		app.logger.Warn("Fastly credentials not set, builds will fail to publish", zap.Error(err))
		return nil
	}
	return client
}

func setupNotifier(ctx context.Context, app *App) (notify.Notifier, error) {
	switch app.cfg.Notify.Provider {
	case "pubsub":
		pub, err := pubsubnotify.Dial(ctx, app.cfg.Notify.ProjectID, app.cfg.Notify.Topic)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		app.pubsub = pub
		app.logger.Info("Pub/Sub publisher initialized",
			zap.String("project", app.cfg.Notify.ProjectID),
			zap.String("topic", app.cfg.Notify.Topic))
		return pub, nil
	case "memory":
		app.logger.Info("using in-memory build notifications")
		return memorynotify.New(), nil
	default:
		return notify.Noop{}, nil
	}
}

func setupHistory(ctx context.Context, app *App) error {
	if app.cfg.History.Provider != "postgres" {
		app.recorder = history.NoopRecorder{}
		return nil
	}
	recorder, err := pghistory.New(ctx, pghistory.Config{
		DSN:   app.cfg.History.DSN,
		Table: app.cfg.History.Table,
	})
	if err != nil {
		return fmt.Errorf("history recorder init failed: %w", err)
	}
	app.recorder = recorder
	app.logger.Info("build history recorder initialized", zap.String("table", app.cfg.History.Table))
	return nil
}
