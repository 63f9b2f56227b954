package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, c *models.Candle) error
}

// CandlePipeline sits between the WebSocket stream and the collector. It
// validates frames, rejects out-of-order closed candles, and buffers when
// downstream is unavailable so a slow store never stalls the read loop.
type CandlePipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.Candle
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// last accepted closed open_time per symbol:timeframe
	lastClosed map[string]int64
}

type PipelineOption func(*CandlePipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *CandlePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewCandlePipeline creates a new pipeline.
func NewCandlePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *CandlePipeline {
	p := &CandlePipeline{
		proc:       proc,
		metrics:    metrics,
		bufSize:    1000,
		bufCh:      make(chan *models.Candle, 1000),
		stopCh:     make(chan struct{}),
		lastClosed: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Candle, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered candles.
func (p *CandlePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case c := <-p.bufCh:
				if c == nil {
					continue
				}
				if err := p.proc.Process(ctx, c); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- c:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *CandlePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards a candle downstream, buffering on errors.
// Open-candle updates for the current open_time always pass; closed candles
// must arrive in open_time order per pair.
func (p *CandlePipeline) Process(ctx context.Context, c *models.Candle) error {
	if err := validateCandle(c); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.accept(c) {
		// stale duplicate of an already-processed closed candle
		p.metrics.RecordError("pipeline_out_of_order")
		return nil
	}

	if err := p.proc.Process(ctx, c); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- c:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	return nil
}

func validateCandle(c *models.Candle) error {
	if c == nil {
		return fmt.Errorf("candle nil")
	}
	if c.Symbol == "" || c.Timeframe == "" {
		return fmt.Errorf("symbol/timeframe empty")
	}
	if c.OpenTime <= 0 || c.CloseTime <= c.OpenTime {
		return fmt.Errorf("invalid candle times")
	}
	return c.Validate()
}

func (p *CandlePipeline) accept(c *models.Candle) bool {
	key := c.Symbol + ":" + c.Timeframe
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastClosed[key]
	// anything at or before the last processed closed candle is stale
	if last != 0 && c.OpenTime <= last {
		return false
	}
	if c.Closed {
		p.lastClosed[key] = c.OpenTime
	}
	return true
}
