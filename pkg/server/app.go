package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DemandCast/internal/usecase"
	"DemandCast/pkg/config"
	xhttp "DemandCast/pkg/http"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg          *config.Config
	logger       *applogger.Logger
	httpServer   *xhttp.Server
	svc          *usecase.ForecastService
	recorder     *usecase.PredictionRecorder
	queue        *queue.RedisQueue
	jobs         []queue.Job
	consumer     *pkgkafka.Consumer
	auditHandler pkgkafka.MessageHandler
}

// New creates a new App instance with all dependencies. queue, consumer and
// auditHandler are optional.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	svc *usecase.ForecastService,
	recorder *usecase.PredictionRecorder,
	q *queue.RedisQueue,
	jobs []queue.Job,
	consumer *pkgkafka.Consumer,
	auditHandler pkgkafka.MessageHandler,
) *App {
	return &App{
		cfg:          cfg,
		logger:       l,
		httpServer:   httpServer,
		svc:          svc,
		recorder:     recorder,
		queue:        q,
		jobs:         jobs,
		consumer:     consumer,
		auditHandler: auditHandler,
	}
}

// Start loads the persisted model and brings every component up.
func (a *App) Start(ctx context.Context) error {
	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := a.svc.Bootstrap(bootCtx); err != nil {
		return err
	}
	if !a.svc.IsLoaded() {
		a.logger.Warn("serving without a model; POST /api/v1/train to create one")
	}

	if a.recorder != nil {
		a.recorder.Start()
		a.logger.Info("prediction audit enabled", applogger.String("backend", a.recorder.Backend()))
	}

	if a.queue != nil {
		a.queue.RegisterJobs(a.jobs)
		if err := a.queue.Start(); err != nil {
			return err
		}
	}

	if a.consumer != nil && a.auditHandler != nil {
		a.consumer.RegisterHandler(a.auditHandler)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.logger.Info("audit consumer started", applogger.String("topic", a.auditHandler.Topic()))
	}

	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		a.logger.Error("startup failed", applogger.Error(err))
		a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	a.Shutdown(context.Background())
	return nil
}

// Shutdown stops intake first, then drains the background workers.
func (a *App) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.logger.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Close()
	}

	a.logger.Info("shutdown complete")
}
