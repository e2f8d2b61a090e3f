package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	domrepo "CargoCast/internal/domain/repository"
	"CargoCast/internal/repository"
	pkgch "CargoCast/pkg/clickhouse"
	"CargoCast/pkg/config"
	xhttp "CargoCast/pkg/http"
	applogger "CargoCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	handlers []xhttp.Handler

	csvStore *repository.CSVSeriesStore
	runStore domrepo.RunStore
	events   domrepo.RunEventPublisher
	chClient *pkgch.Client

	httpServer *xhttp.Server
}

// New creates an App instance. csvStore and chClient may be nil depending on
// the configured data backend; events may be a no-op publisher.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handlers []xhttp.Handler,
	csvStore *repository.CSVSeriesStore,
	runStore domrepo.RunStore,
	events domrepo.RunEventPublisher,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		handlers: handlers,
		csvStore: csvStore,
		runStore: runStore,
		events:   events,
		chClient: chClient,
	}
}

// multiHandler registers several route groups on one server.
type multiHandler []xhttp.Handler

func (m multiHandler) RegisterRoutes(e *echo.Echo) {
	for _, h := range m {
		h.RegisterRoutes(e)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.csvStore != nil {
		report, err := a.csvStore.Reload(ctx)
		if err != nil {
			return err
		}
		a.l.Info("datasets reloaded",
			applogger.Int("loaded", len(report.Loaded)),
			applogger.Int("missing", len(report.SkippedMissingFile)),
			applogger.Int("failed", len(report.Failed)),
		)
	}

	a.httpServer = xhttp.NewServer(multiHandler(a.handlers),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.httpServer.Echo().GET("/healthz", a.health)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("env", a.cfg.Environment),
		applogger.String("data_backend", a.cfg.Data.Backend),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if a.chClient != nil {
		if err := a.chClient.Health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["clickhouse"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return c.JSON(http.StatusOK, status)
}

// shutdown gracefully stops the server and closes infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.l.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.runStore != nil {
		if err := a.runStore.Close(); err != nil {
			a.l.Warn("run store close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
