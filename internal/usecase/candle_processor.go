package usecase

import (
	"context"
	"fmt"
	"sync"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
)

// CandleProcessor routes validated candles: closed candles go to the store,
// open-candle revisions update the in-memory live view. It is the
// LivePriceSource the evaluation loop reads.
type CandleProcessor struct {
	store   drepo.CandleStore
	metrics drepo.Metrics

	mu   sync.RWMutex
	live map[string]models.Candle // symbol:timeframe -> open candle
}

// NewCandleProcessor creates a new CandleProcessor instance.
func NewCandleProcessor(store drepo.CandleStore, metrics drepo.Metrics) *CandleProcessor {
	return &CandleProcessor{
		store:   store,
		metrics: metrics,
		live:    make(map[string]models.Candle),
	}
}

// Process handles one candle update.
func (p *CandleProcessor) Process(ctx context.Context, c *models.Candle) error {
	if c == nil {
		return fmt.Errorf("candle is nil")
	}

	key := c.Symbol + ":" + c.Timeframe
	if !c.Closed {
		p.mu.Lock()
		p.live[key] = *c
		p.mu.Unlock()
		p.metrics.RecordLastPrice(c.Symbol, c.Close)
		return nil
	}

	if err := p.store.Store(ctx, c); err != nil {
		p.metrics.RecordError("store_candle")
		return fmt.Errorf("store candle %s: %w", c.Key(), err)
	}
	// the closing frame is also the freshest price until the next open frame
	p.mu.Lock()
	p.live[key] = *c
	p.mu.Unlock()
	p.metrics.RecordLastPrice(c.Symbol, c.Close)
	return nil
}

// SeedLive primes the live view, used after backfill so the first evaluation
// cycle has a price before the stream delivers its first frame.
func (p *CandleProcessor) SeedLive(c models.Candle) {
	p.mu.Lock()
	p.live[c.Symbol+":"+c.Timeframe] = c
	p.mu.Unlock()
}

// LiveCandle returns the current open candle for the pair, if known.
func (p *CandleProcessor) LiveCandle(symbol string, tf drepo.Timeframe) (models.Candle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.live[symbol+":"+string(tf)]
	return c, ok
}
