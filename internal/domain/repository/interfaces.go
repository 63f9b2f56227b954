package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
)

// CandleStream is a live kline feed (one WebSocket connection covering all
// configured symbol/timeframe pairs).
type CandleStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// CandleBackfiller fetches historical closed candles over REST.
type CandleBackfiller interface {
	GetKlines(ctx context.Context, symbol string, tf Timeframe, limit int) ([]*models.Candle, error)
}

// CandleStore persists closed candles, deduplicated by
// (symbol, timeframe, open_time).
type CandleStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, c *models.Candle) error
	StoreBatch(ctx context.Context, candles []*models.Candle) error
	// GetRecentCandles returns up to count most recent closed candles,
	// ordered oldest first.
	GetRecentCandles(ctx context.Context, symbol string, tf Timeframe, count int) ([]models.Candle, error)
	// DeleteOlderThan removes candles with open_time < cutoff (ms) while
	// keeping at least minKeep most recent rows. Returns rows deleted.
	DeleteOlderThan(ctx context.Context, symbol string, tf Timeframe, cutoff int64, minKeep int) (int64, error)
	Count(ctx context.Context, symbol string, tf Timeframe) (int64, error)
	Health(ctx context.Context) error
	Close() error
}

// LivePriceSource exposes the currently-open candle per pair, owned by the
// ingestion side and read by the evaluation loop.
type LivePriceSource interface {
	LiveCandle(symbol string, tf Timeframe) (models.Candle, bool)
}

// Notifier delivers alert messages to the chat sink. Delivery retry is the
// sink's responsibility; callers treat failures as non-fatal.
type Notifier interface {
	SendAlert(ctx context.Context, a models.AlertCandidate) error
	SendConsolidated(ctx context.Context, alerts []models.AlertCandidate) error
	SendText(ctx context.Context, text string) error
}

// AlertPublisher mirrors emitted alerts onto an event bus for downstream
// consumers. Optional; a nil publisher disables mirroring.
type AlertPublisher interface {
	Publish(ctx context.Context, a models.AlertCandidate) error
	Close() error
}

// SentimentSource provides the market-wide fear & greed reading shown in the
// daily digest. Optional; a nil source omits the sentiment line.
type SentimentSource interface {
	Latest(ctx context.Context) (models.SentimentReading, error)
}

// Metrics is the instrumentation surface used across the service.
type Metrics interface {
	RecordAlertSent(family, symbol string)
	RecordAlertThrottled(reason string)
	RecordAlertConsolidated(n int)
	RecordIndicator(symbol, tf string, value float64)
	RecordLastPrice(symbol string, price float64)
	RecordError(kind string)
	RecordCycleDuration(seconds float64)
	RecordStreamConnected(connected bool)
}
