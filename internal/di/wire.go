//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideTimeframes,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,
		ProvideDispatchQueue,
		ProvideHTTPClient,

		// Repositories
		ProvideCandleStore,
		ProvideAlertPublisher,
		ProvideCandleStream,
		ProvideCandleBackfiller,
		ProvideSentimentSource,
		ProvideNotifier,

		// Alerting
		ProvideStateStore,
		ProvideDispatcher,
		ProvideThrottler,
		ProvideJobs,

		// Use cases
		ProvideCandleProcessor,
		ProvideCandleCollector,
		ProvideBackfiller,
		ProvideEvaluator,
		ProvideSummaryReporter,
		ProvideRetentionSweeper,

		// HTTP
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
