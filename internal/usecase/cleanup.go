package usecase

import (
	"context"
	"time"

	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// RetentionSweeper trims candle history past the retention horizon while
// always keeping enough rows to satisfy the evaluation lookback.
type RetentionSweeper struct {
	symbols    []string
	timeframes []drepo.Timeframe
	store      drepo.CandleStore
	maxAge     time.Duration
	minKeep    int
	interval   time.Duration
	metrics    drepo.Metrics
	log        *logger.Logger
}

// NewRetentionSweeper creates the sweeper.
func NewRetentionSweeper(symbols []string, timeframes []drepo.Timeframe, store drepo.CandleStore, maxAge time.Duration, minKeep int, interval time.Duration, metrics drepo.Metrics, log *logger.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		symbols:    symbols,
		timeframes: timeframes,
		store:      store,
		maxAge:     maxAge,
		minKeep:    minKeep,
		interval:   interval,
		metrics:    metrics,
		log:        log,
	}
}

// Run sweeps once immediately, then on the configured interval.
func (s *RetentionSweeper) Run(ctx context.Context) {
	s.Sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes expired candles for every pair.
func (s *RetentionSweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.maxAge).UnixMilli()
	var total int64
	for _, symbol := range s.symbols {
		for _, tf := range s.timeframes {
			n, err := s.store.DeleteOlderThan(ctx, symbol, tf, cutoff, s.minKeep)
			if err != nil {
				s.metrics.RecordError("retention")
				s.log.Error("retention sweep failed",
					logger.String("symbol", symbol),
					logger.String("timeframe", string(tf)),
					logger.Error(err))
				continue
			}
			total += n
		}
	}
	if total > 0 {
		s.log.Info("retention sweep", logger.Int64("deleted", total))
	}
}
