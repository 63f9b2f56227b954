package indicator

import (
	"math"

	"MarketPulse/internal/domain/models"
)

// Pivot is a confirmed 3-candle local price extreme with the oscillator
// value at the pivot candle.
type Pivot struct {
	Index      int
	OpenTime   int64
	Price      float64
	Oscillator float64
}

// DivergenceSignal is the outcome of comparing two consecutive pivots of the
// same type.
type DivergenceSignal int

const (
	DivergenceNone DivergenceSignal = iota
	DivergenceBullish
	DivergenceBearish
)

func (s DivergenceSignal) String() string {
	switch s {
	case DivergenceBullish:
		return "BULLISH"
	case DivergenceBearish:
		return "BEARISH"
	default:
		return "NONE"
	}
}

// FindPivots scans closed candles (oldest first) with their oscillator
// series and returns confirmed pivots in chronological order. A candle is a
// low pivot when its low is strictly below both immediate neighbours' lows,
// and a high pivot when its high is strictly above both neighbours' highs.
// Pivots without a defined oscillator value are skipped: they cannot take
// part in a divergence comparison.
func FindPivots(candles []models.Candle, osc []float64) (lows, highs []Pivot) {
	if len(candles) != len(osc) {
		return nil, nil
	}
	for i := 1; i < len(candles)-1; i++ {
		if math.IsNaN(osc[i]) {
			continue
		}
		if candles[i].Low < candles[i-1].Low && candles[i].Low < candles[i+1].Low {
			lows = append(lows, Pivot{
				Index:      i,
				OpenTime:   candles[i].OpenTime,
				Price:      candles[i].Low,
				Oscillator: osc[i],
			})
		}
		if candles[i].High > candles[i-1].High && candles[i].High > candles[i+1].High {
			highs = append(highs, Pivot{
				Index:      i,
				OpenTime:   candles[i].OpenTime,
				Price:      candles[i].High,
				Oscillator: osc[i],
			})
		}
	}
	return lows, highs
}

// BullishDivergence reports whether cur forms a bullish divergence against
// prev: a lower price low with a higher oscillator low, both oscillator
// values below max.
func BullishDivergence(prev, cur Pivot, max float64) bool {
	return cur.Price < prev.Price &&
		cur.Oscillator > prev.Oscillator &&
		cur.Oscillator < max &&
		prev.Oscillator < max
}

// BearishDivergence reports whether cur forms a bearish divergence against
// prev: a higher price high with a lower oscillator high, both oscillator
// values above min.
func BearishDivergence(prev, cur Pivot, min float64) bool {
	return cur.Price > prev.Price &&
		cur.Oscillator < prev.Oscillator &&
		cur.Oscillator > min &&
		prev.Oscillator > min
}
