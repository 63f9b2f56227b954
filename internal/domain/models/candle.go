package models

import "fmt"

// Candle represents one OHLCV record for a (symbol, timeframe) pair.
// Open/close times are milliseconds UTC, matching the exchange wire format.
// An open candle (Closed=false) is mutated in place by the stream; once
// Closed is set the record is immutable.
type Candle struct {
	Symbol    string
	Timeframe string
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Closed    bool
}

// Validate checks the OHLC invariant and required identity fields.
func (c *Candle) Validate() error {
	if c == nil {
		return fmt.Errorf("candle nil")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if c.Timeframe == "" {
		return fmt.Errorf("timeframe empty")
	}
	if c.OpenTime <= 0 || c.CloseTime <= c.OpenTime {
		return fmt.Errorf("invalid time range [%d, %d]", c.OpenTime, c.CloseTime)
	}
	if c.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	hi, lo := c.Open, c.Open
	if c.Close > hi {
		hi = c.Close
	}
	if c.Close < lo {
		lo = c.Close
	}
	if c.High < hi || c.Low > lo {
		return fmt.Errorf("ohlc invariant violated: o=%g h=%g l=%g c=%g", c.Open, c.High, c.Low, c.Close)
	}
	return nil
}

// Key returns the unique identity of the candle.
func (c *Candle) Key() string {
	return fmt.Sprintf("%s:%s:%d", c.Symbol, c.Timeframe, c.OpenTime)
}
