package models

import (
	"fmt"
	"time"
)

// Severity is the ordered alert level for a condition. A condition may only
// re-fire at a strictly higher severity until its state is reset.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeverityExtreme
)

func (s Severity) String() string {
	switch s {
	case SeverityMild:
		return "MILD"
	case SeverityExtreme:
		return "EXTREME"
	default:
		return "NONE"
	}
}

// ConditionFamily groups related alert conditions under one state lineage.
type ConditionFamily string

const (
	FamilyOscillator ConditionFamily = "oscillator"
	FamilyBreakout   ConditionFamily = "breakout"
	FamilyDivergence ConditionFamily = "divergence"
)

// ConditionKey uniquely identifies an alert lineage.
type ConditionKey struct {
	Symbol    string
	Timeframe string
	Family    ConditionFamily
}

func (k ConditionKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.Symbol, k.Timeframe, k.Family)
}

// AlertCandidate is a qualifying condition trigger handed to the throttler.
// Condition carries the human-readable variant within the family, e.g.
// "OVERBOUGHT", "EXTREME_OVERSOLD", "BREAKOUT_UP", "DIVERGENCE_BULLISH".
type AlertCandidate struct {
	Key       ConditionKey
	Severity  Severity
	Condition string
	Value     float64 // indicator value at trigger time (oscillator/RSI)
	Price     float64 // market price at trigger time
	RefPrice  float64 // reference level (breakout: broken high/low; divergence: prior pivot price)
	FiredAt   time.Time
}

// PivotRecord is the last confirmed swing pivot for one side of the
// divergence detector. Re-derivable from the lookback window on restart.
type PivotRecord struct {
	OpenTime   int64
	Price      float64
	Oscillator float64
}
