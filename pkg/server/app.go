package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/internal/usecase"
	pkgch "WhaleTrail/pkg/clickhouse"
	"WhaleTrail/pkg/config"
	xhttp "WhaleTrail/pkg/http"
	applogger "WhaleTrail/pkg/logger"
	"WhaleTrail/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	pipeline   *usecase.Pipeline
	execJob    *usecase.ExecuteSignalJob
	queue      *queue.Queue
	notifier   repository.Notifier
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	pipeline *usecase.Pipeline,
	execJob *usecase.ExecuteSignalJob,
	q *queue.Queue,
	httpHandler xhttp.Handler,
	notifier repository.Notifier,
	chClient *pkgch.Client,
) *App {
	app := &App{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline,
		execJob:  execJob,
		queue:    q,
		notifier: notifier,
		chClient: chClient,
	}
	app.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.httpServer.Echo().GET(path, echo.WrapHandler(promhttp.Handler()))
	}
	return app
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.queue.Register(a.execJob)
	a.queue.Start(ctx)

	go func() {
		if err := a.pipeline.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("pipeline error", applogger.Error(err))
		}
	}()
	a.log.Info("pipeline started",
		applogger.Int("queue_workers", a.cfg.Executor.Workers),
		applogger.Strings("tracked_whales", a.cfg.Whale.TrackedAddresses))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.queue.Stop()

	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.log.Warn("notifier close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
