package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "omniscient/internal/domain/repository"
	"omniscient/internal/usecase"
	pkgch "omniscient/pkg/clickhouse"
	"omniscient/pkg/config"
	xhttp "omniscient/pkg/http"
	applogger "omniscient/pkg/logger"
	"omniscient/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	scheduler  *usecase.ScanScheduler
	scanQueue  *queue.RedisQueue
	chClient   *pkgch.Client
	store      domrepo.StatStore
	publisher  domrepo.SignalPublisher
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	scheduler *usecase.ScanScheduler,
	scanQueue *queue.RedisQueue,
	chClient *pkgch.Client,
	store domrepo.StatStore,
	publisher domrepo.SignalPublisher,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		handler:   handler,
		scheduler: scheduler,
		scanQueue: scanQueue,
		chClient:  chClient,
		store:     store,
		publisher: publisher,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.scanQueue != nil {
		if err := a.scanQueue.Start(); err != nil {
			a.log.Error("scan queue start error", applogger.Error(err))
			return err
		}
		a.scanQueue.StartRetryProcessor()
		a.log.Info("scan queue started")
	}

	a.scheduler.Start(ctx)
	a.log.Info("scan scheduler started",
		applogger.Duration("interval", a.cfg.Scan.Interval),
		applogger.Int("watchlist", len(a.cfg.Scan.Watchlist)),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.scanQueue != nil {
		if err := a.scanQueue.Stop(shutdownCtx); err != nil {
			a.log.Warn("scan queue stop error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("signal publisher close error", applogger.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("stat store close error", applogger.Error(err))
		}
	} else if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.RemoveCollector()
	a.log.Info("shutdown complete")
	return nil
}
