package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketPulse/internal/alert"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/queue"
)

// App encapsulates the application lifecycle: backfill, ingestion, the
// evaluation loop, the dispatch queue and the diagnostic HTTP server.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	backfiller *usecase.Backfiller
	collector  *usecase.CandleCollector
	queue      queue.Queue
	jobs       []queue.Job
	throttler  *alert.Throttler
	evaluator  *usecase.Evaluator
	summary    *usecase.SummaryReporter
	sweeper    *usecase.RetentionSweeper
	handler    xhttp.Handler
	publisher  repository.AlertPublisher
	chClient   *pkgch.Client
	timeframes []repository.Timeframe

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	backfiller *usecase.Backfiller,
	collector *usecase.CandleCollector,
	q queue.Queue,
	jobs []queue.Job,
	throttler *alert.Throttler,
	evaluator *usecase.Evaluator,
	summary *usecase.SummaryReporter,
	sweeper *usecase.RetentionSweeper,
	handler xhttp.Handler,
	publisher repository.AlertPublisher,
	chClient *pkgch.Client,
	timeframes []repository.Timeframe,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		backfiller: backfiller,
		collector:  collector,
		queue:      q,
		jobs:       jobs,
		throttler:  throttler,
		evaluator:  evaluator,
		summary:    summary,
		sweeper:    sweeper,
		handler:    handler,
		publisher:  publisher,
		chClient:   chClient,
		timeframes: timeframes,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// history first: the evaluator must never run on partial lookback
	if err := a.backfiller.Run(ctx, a.cfg.Binance.Symbols, a.timeframes); err != nil {
		return err
	}

	a.queue.RegisterJobs(a.jobs)
	if err := a.queue.Start(); err != nil {
		return err
	}

	if err := a.collector.Start(ctx); err != nil {
		return err
	}
	a.log.Info("kline stream started",
		applogger.Strings("symbols", a.cfg.Binance.Symbols))

	go a.throttler.Run(ctx)
	go a.evaluator.Run(ctx)
	go a.sweeper.Run(ctx)
	if a.summary != nil {
		go a.summary.Run(ctx)
		a.log.Info("daily summary scheduled", applogger.String("at_utc", a.cfg.Summary.AtUTC))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.log, time.Second),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	a.log.Info("marketpulse started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("interval", a.cfg.Evaluation.Interval.String()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops the loops, flushes pending work and closes clients.
func (a *App) shutdown() error {
	// the evaluation loop is already cancelled; push any buffered
	// consolidation out before the queue drains
	a.throttler.Flush()

	if err := a.collector.Shutdown(context.Background()); err != nil {
		a.log.Warn("collector stop error", applogger.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.queue.Stop(stopCtx); err != nil {
		a.log.Warn("dispatch queue stop error", applogger.Error(err))
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(stopCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("alert publisher close error", applogger.Error(err))
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
