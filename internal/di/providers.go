package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"MarketPulse/internal/alert"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	mid "MarketPulse/internal/middleware"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/service/binance"
	"MarketPulse/internal/service/feargreed"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/service/telegram"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/queue"
	"MarketPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTimeframes normalizes the configured timeframe strings.
func ProvideTimeframes(cfg *config.Config) []repository.Timeframe {
	tfs := make([]repository.Timeframe, 0, len(cfg.Binance.Timeframes))
	for _, s := range cfg.Binance.Timeframes {
		tfs = append(tfs, repository.NormalizeTimeframe(s))
	}
	return tfs
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// database exists. Table schemas are owned by the stores that use them.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleStore creates the candle store and its table.
func ProvideCandleStore(chClient *pkgch.Client, cfg *config.Config) (repository.CandleStore, error) {
	store := internalrepo.NewClickHouseCandleStore(chClient, cfg.ClickHouse.Database+".candles")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("candle store init: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the mirror is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher creates the Kafka alert mirror. Nil disables it.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCache creates the snapshot cache: Redis-backed layered cache when
// Redis is configured, in-process otherwise.
func ProvideCache(cfg *config.Config) cache.Service {
	if cfg.Redis.Enabled {
		host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
		if err == nil {
			port, _ := strconv.Atoi(portStr)
			rc, rErr := cache.NewRedisCache(
				cache.WithRedisHost(host),
				cache.WithRedisPort(port),
				cache.WithRedisPassword(cfg.Redis.Password),
				cache.WithRedisDB(cfg.Redis.DB),
			)
			if rErr == nil {
				return cache.NewLayeredCache(rc)
			}
		}
	}
	return cache.NewMemoryCache()
}

// ProvideDispatchQueue creates the alert dispatch queue: Redis-backed when
// Redis is configured, in-memory otherwise.
func ProvideDispatchQueue(cfg *config.Config, lgr *logger.Logger) queue.Queue {
	qcfg := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.BufferSize,
		RetryLimit: cfg.Queue.RetryMax,
		RetryDelay: time.Second,
	}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return queue.NewRedisQueue(lgr, qcfg, client, queue.ModeProducerConsumer)
	}
	return queue.NewMemoryQueue(lgr, qcfg)
}

// ProvideHTTPClient creates the outbound HTTP client shared by the Binance
// REST client and the Telegram sink.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Telegram.SendTimeout))
}

// ProvideNotifier creates the Telegram sink.
func ProvideNotifier(cfg *config.Config, client *xhttp.Client, lgr *logger.Logger) repository.Notifier {
	return telegram.New(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		cfg.Telegram.DryRun,
		cfg.Telegram.RatePerSecond,
		client,
		ratelimit.New(),
		lgr,
	)
}

// ProvideCandleStream creates the Binance combined kline stream.
func ProvideCandleStream(cfg *config.Config, tfs []repository.Timeframe, lgr *logger.Logger) repository.CandleStream {
	return binance.NewStream(
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbols,
		tfs,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
		lgr,
	)
}

// ProvideCandleBackfiller creates the Binance REST kline client.
func ProvideCandleBackfiller(cfg *config.Config, client *xhttp.Client) repository.CandleBackfiller {
	return binance.NewRestClient(cfg.Binance.RestURL, client)
}

// ProvideBackfiller creates the startup history loader.
func ProvideBackfiller(client repository.CandleBackfiller, proc *usecase.CandleProcessor, store repository.CandleStore, cfg *config.Config, lgr *logger.Logger) *usecase.Backfiller {
	return usecase.NewBackfiller(client, proc, store, cfg.Binance.BackfillLimit, lgr)
}

// ProvideCandleProcessor creates the candle processor.
func ProvideCandleProcessor(store repository.CandleStore, m repository.Metrics) *usecase.CandleProcessor {
	return usecase.NewCandleProcessor(store, m)
}

// ProvideCandleCollector creates the collector with its validation pipeline
// between the WebSocket and the store.
func ProvideCandleCollector(stream repository.CandleStream, proc *usecase.CandleProcessor, m repository.Metrics) *usecase.CandleCollector {
	pipe := mid.NewCandlePipeline(proc, m, mid.WithBufferSize(2000))
	return usecase.NewCandleCollector(stream, proc, m, pipe)
}

// ProvideStateStore creates the per-pair condition state store.
func ProvideStateStore() *alert.StateStore {
	return alert.NewStateStore()
}

// ProvideDispatcher creates the queue-backed alert emitter.
func ProvideDispatcher(q queue.Queue, m repository.Metrics, lgr *logger.Logger) *usecase.Dispatcher {
	return usecase.NewDispatcher(q, m, lgr)
}

// ProvideThrottler creates the alert throttler.
func ProvideThrottler(cfg *config.Config, dispatcher *usecase.Dispatcher, m repository.Metrics, lgr *logger.Logger) *alert.Throttler {
	return alert.NewThrottler(alert.ThrottleConfig{
		HourlyCap:           cfg.Throttle.HourlyCap,
		MinuteThreshold:     cfg.Throttle.MinuteThreshold,
		ConsolidationWindow: cfg.Throttle.ConsolidationWindow,
	}, dispatcher, m, lgr)
}

// ProvideJobs creates the dispatch jobs the queue executes.
func ProvideJobs(notifier repository.Notifier, publisher repository.AlertPublisher, lgr *logger.Logger) []queue.Job {
	return []queue.Job{
		usecase.NewSendAlertJob(notifier, publisher, lgr),
		usecase.NewSendConsolidatedJob(notifier, publisher, lgr),
	}
}

// ProvideEvaluator creates the evaluation loop.
func ProvideEvaluator(
	cfg *config.Config,
	tfs []repository.Timeframe,
	store repository.CandleStore,
	proc *usecase.CandleProcessor,
	states *alert.StateStore,
	throttler *alert.Throttler,
	snapshots cache.Service,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.Evaluator {
	osc := cfg.Evaluation.Oscillator
	return usecase.NewEvaluator(usecase.EvaluatorConfig{
		Interval:           cfg.Evaluation.Interval,
		OscPeriod:          osc.Period,
		MildLow:            osc.MildLow,
		ExtremeLow:         osc.ExtremeLow,
		MildHigh:           osc.MildHigh,
		ExtremeHigh:        osc.ExtremeHigh,
		RecoveryLow:        osc.RecoveryLow,
		RecoveryHigh:       osc.RecoveryHigh,
		BreakoutMarginPct:  cfg.Evaluation.Breakout.MarginPct,
		DivergenceLookback: cfg.Evaluation.Divergence.Lookback,
		BullishMax:         cfg.Evaluation.Divergence.BullishMax,
		BearishMin:         cfg.Evaluation.Divergence.BearishMin,
	}, cfg.Binance.Symbols, tfs, store, proc, states, throttler, snapshots, m, lgr)
}

// ProvideSentimentSource creates the fear & greed fetcher, or nil when no
// endpoint is configured.
func ProvideSentimentSource(cfg *config.Config, client *xhttp.Client, lgr *logger.Logger) repository.SentimentSource {
	if cfg.Summary.FearGreedURL == "" {
		return nil
	}
	return feargreed.New(cfg.Summary.FearGreedURL, cfg.Summary.FearGreedAPIKey, client, lgr)
}

// ProvideSummaryReporter creates the daily digest, or nil when disabled.
func ProvideSummaryReporter(cfg *config.Config, tfs []repository.Timeframe, snapshots cache.Service, sentiment repository.SentimentSource, notifier repository.Notifier, lgr *logger.Logger) (*usecase.SummaryReporter, error) {
	if !cfg.Summary.Enabled {
		return nil, nil
	}
	offset, err := config.ParseDailyTime(cfg.Summary.AtUTC)
	if err != nil {
		return nil, fmt.Errorf("summary time: %w", err)
	}
	return usecase.NewSummaryReporter(cfg.Binance.Symbols, tfs, offset, snapshots, sentiment, notifier, lgr), nil
}

// ProvideRetentionSweeper creates the candle retention sweeper.
func ProvideRetentionSweeper(cfg *config.Config, tfs []repository.Timeframe, store repository.CandleStore, m repository.Metrics, lgr *logger.Logger) *usecase.RetentionSweeper {
	maxAge := time.Duration(cfg.Retention.MaxAgeDays) * 24 * time.Hour
	return usecase.NewRetentionSweeper(
		cfg.Binance.Symbols, tfs, store,
		maxAge, cfg.Retention.MinKeep, cfg.Retention.SweepInterval,
		m, lgr,
	)
}

// ProvideStatusHandler creates the diagnostic HTTP handler.
func ProvideStatusHandler(
	lgr *logger.Logger,
	store repository.CandleStore,
	collector *usecase.CandleCollector,
	throttler *alert.Throttler,
	snapshots cache.Service,
	cfg *config.Config,
	tfs []repository.Timeframe,
) *api.StatusEchoHandler {
	return api.NewStatusEchoHandler(lgr, store, collector, throttler, snapshots, cfg.Binance.Symbols, tfs)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	backfiller *usecase.Backfiller,
	collector *usecase.CandleCollector,
	q queue.Queue,
	jobs []queue.Job,
	throttler *alert.Throttler,
	evaluator *usecase.Evaluator,
	summary *usecase.SummaryReporter,
	sweeper *usecase.RetentionSweeper,
	handler *api.StatusEchoHandler,
	publisher repository.AlertPublisher,
	chClient *pkgch.Client,
	tfs []repository.Timeframe,
) *server.App {
	return server.New(cfg, lgr, backfiller, collector, q, jobs, throttler, evaluator, summary, sweeper, handler, publisher, chClient, tfs)
}
