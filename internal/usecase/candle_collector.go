package usecase

import (
	"context"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	mid "MarketPulse/internal/middleware"
)

// CandleCollector consumes the kline stream and feeds candles through the
// pipeline into the processor.
type CandleCollector struct {
	stream  drepo.CandleStream
	proc    *CandleProcessor
	metrics drepo.Metrics
	pipe    *mid.CandlePipeline
}

// NewCandleCollector creates a new CandleCollector instance.
func NewCandleCollector(stream drepo.CandleStream, proc *CandleProcessor, metrics drepo.Metrics, pipe *mid.CandlePipeline) *CandleCollector {
	return &CandleCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the kline stream is connected.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Processor returns the underlying CandleProcessor.
func (c *CandleCollector) Processor() *CandleProcessor { return c.proc }

func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	c.metrics.RecordStreamConnected(true)
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	candleCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, candleCh, errCh)
	return nil
}

func (c *CandleCollector) consume(ctx context.Context, candleCh <-chan *models.Candle, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok || err != nil {
				c.metrics.RecordError("stream")
				c.metrics.RecordStreamConnected(false)
				// keep retrying until connected or cancelled
				for ctx.Err() == nil {
					if rErr := c.stream.Reconnect(ctx); rErr == nil {
						c.metrics.RecordStreamConnected(true)
						candleCh, errCh = c.stream.Read(ctx)
						break
					}
				}
				if ctx.Err() != nil {
					return
				}
			}
		case cd, ok := <-candleCh:
			if !ok {
				// read loop ended; wait for the error branch to reconnect
				candleCh = nil
				continue
			}
			if cd == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, cd)
			} else {
				_ = c.proc.Process(ctx, cd)
			}
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	c.metrics.RecordStreamConnected(false)
	return c.stream.Close()
}
