package models

import "time"

// IndicatorSnapshot is the latest computed view for a (symbol, timeframe)
// pair, cached after each evaluation cycle for the diagnostic HTTP read.
type IndicatorSnapshot struct {
	Symbol            string    `json:"symbol"`
	Timeframe         string    `json:"timeframe"`
	Oscillator        float64   `json:"oscillator"`
	OscillatorDefined bool      `json:"oscillator_defined"`
	LivePrice         float64   `json:"live_price"`
	PrevHigh          float64   `json:"prev_high"`
	PrevLow           float64   `json:"prev_low"`
	ClosedCandles     int       `json:"closed_candles"`
	ComputedAt        time.Time `json:"computed_at"`
}
