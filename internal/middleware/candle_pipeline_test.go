package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"MarketPulse/internal/domain/models"
)

type recordingProc struct {
	mu     sync.Mutex
	got    []*models.Candle
	failOn int // fail the nth call (1-based), 0 = never
	calls  int
}

func (p *recordingProc) Process(ctx context.Context, c *models.Candle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failOn != 0 && p.calls == p.failOn {
		return errors.New("downstream unavailable")
	}
	p.got = append(p.got, c)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordAlertSent(family, symbol string)            {}
func (nopMetrics) RecordAlertThrottled(reason string)               {}
func (nopMetrics) RecordAlertConsolidated(n int)                    {}
func (nopMetrics) RecordIndicator(symbol, tf string, value float64) {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)     {}
func (nopMetrics) RecordError(kind string)                          {}
func (nopMetrics) RecordCycleDuration(seconds float64)              {}
func (nopMetrics) RecordStreamConnected(connected bool)             {}

func candle(openTime int64, closed bool) *models.Candle {
	return &models.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "4h",
		OpenTime:  openTime,
		CloseTime: openTime + 100,
		Open:      100, High: 110, Low: 95, Close: 105,
		Closed: closed,
	}
}

func TestPipelineRejectsMalformedCandles(t *testing.T) {
	proc := &recordingProc{}
	p := NewCandlePipeline(proc, nopMetrics{})

	if err := p.Process(context.Background(), nil); err == nil {
		t.Fatal("nil candle must be rejected")
	}
	c := candle(1000, true)
	c.Symbol = ""
	if err := p.Process(context.Background(), c); err == nil {
		t.Fatal("empty symbol must be rejected")
	}
	c = candle(1000, true)
	c.CloseTime = c.OpenTime
	if err := p.Process(context.Background(), c); err == nil {
		t.Fatal("close_time <= open_time must be rejected")
	}
	c = candle(1000, true)
	c.Low = 200 // above high
	if err := p.Process(context.Background(), c); err == nil {
		t.Fatal("inverted OHLC must be rejected")
	}
	if len(proc.got) != 0 {
		t.Fatalf("malformed candles reached downstream: %d", len(proc.got))
	}
}

func TestPipelineDropsStaleClosedCandles(t *testing.T) {
	proc := &recordingProc{}
	p := NewCandlePipeline(proc, nopMetrics{})
	ctx := context.Background()

	if err := p.Process(ctx, candle(2000, true)); err != nil {
		t.Fatalf("first closed candle: %v", err)
	}
	// duplicate close and an older candle both get swallowed
	if err := p.Process(ctx, candle(2000, true)); err != nil {
		t.Fatalf("duplicate close must not error: %v", err)
	}
	if err := p.Process(ctx, candle(1000, true)); err != nil {
		t.Fatalf("stale candle must not error: %v", err)
	}
	// late open-frame for the already closed candle is stale too
	if err := p.Process(ctx, candle(2000, false)); err != nil {
		t.Fatalf("late open frame must not error: %v", err)
	}
	if err := p.Process(ctx, candle(3000, false)); err != nil {
		t.Fatalf("next open candle: %v", err)
	}
	if len(proc.got) != 2 {
		t.Fatalf("downstream got %d candles, want 2", len(proc.got))
	}
	if proc.got[1].OpenTime != 3000 || proc.got[1].Closed {
		t.Fatalf("unexpected second candle %+v", proc.got[1])
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &recordingProc{failOn: 1}
	p := NewCandlePipeline(proc, nopMetrics{}, WithBufferSize(4))
	ctx := context.Background()

	if err := p.Process(ctx, candle(2000, true)); err == nil {
		t.Fatal("downstream failure must surface")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("failed candle must be buffered, buffer len %d", len(p.bufCh))
	}
}
