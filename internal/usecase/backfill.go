package usecase

import (
	"context"
	"fmt"

	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// Backfiller loads recent history over REST on startup so indicators are
// defined before the stream has produced a full lookback of candles.
type Backfiller struct {
	client drepo.CandleBackfiller
	proc   *CandleProcessor
	store  drepo.CandleStore
	limit  int
	log    *logger.Logger
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(client drepo.CandleBackfiller, proc *CandleProcessor, store drepo.CandleStore, limit int, log *logger.Logger) *Backfiller {
	return &Backfiller{client: client, proc: proc, store: store, limit: limit, log: log}
}

// Run backfills every configured pair. A failed pair aborts startup: an
// evaluator running on partial history would fire on wrong values.
func (b *Backfiller) Run(ctx context.Context, symbols []string, timeframes []drepo.Timeframe) error {
	for _, symbol := range symbols {
		for _, tf := range timeframes {
			if err := b.backfillPair(ctx, symbol, tf); err != nil {
				return fmt.Errorf("backfill %s %s: %w", symbol, tf, err)
			}
		}
	}
	return nil
}

func (b *Backfiller) backfillPair(ctx context.Context, symbol string, tf drepo.Timeframe) error {
	candles, err := b.client.GetKlines(ctx, symbol, tf, b.limit)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		b.log.Warn("backfill returned no candles",
			logger.String("symbol", symbol),
			logger.String("timeframe", string(tf)))
		return nil
	}

	closed := candles[:0:0]
	for _, c := range candles {
		if c.Closed {
			closed = append(closed, c)
		}
	}
	if err := b.store.StoreBatch(ctx, closed); err != nil {
		return err
	}
	// the trailing open candle seeds the live view
	if last := candles[len(candles)-1]; !last.Closed {
		b.proc.SeedLive(*last)
	}

	b.log.Info("backfill complete",
		logger.String("symbol", symbol),
		logger.String("timeframe", string(tf)),
		logger.Int("closed", len(closed)))
	return nil
}
