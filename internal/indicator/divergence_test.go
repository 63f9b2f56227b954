package indicator

import (
	"math"
	"testing"

	"MarketPulse/internal/domain/models"
)

func tc(openTime int64, high, low float64) models.Candle {
	return models.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "4h",
		OpenTime:  openTime,
		CloseTime: openTime + 1,
		Open:      (high + low) / 2,
		High:      high,
		Low:       low,
		Close:     (high + low) / 2,
		Closed:    true,
	}
}

func TestFindPivotsStrictExtremes(t *testing.T) {
	candles := []models.Candle{
		tc(1, 110, 100),
		tc(2, 108, 95), // low pivot: 95 < 100 and 95 < 98
		tc(3, 112, 98),
		tc(4, 120, 99), // high pivot: 120 > 112 and 120 > 111
		tc(5, 111, 97),
	}
	osc := []float64{30, 28, 35, 65, 50}

	lows, highs := FindPivots(candles, osc)
	if len(lows) != 1 || lows[0].OpenTime != 2 || lows[0].Price != 95 {
		t.Fatalf("unexpected low pivots: %+v", lows)
	}
	if lows[0].Oscillator != 28 {
		t.Fatalf("low pivot oscillator = %v, want 28", lows[0].Oscillator)
	}
	if len(highs) != 1 || highs[0].OpenTime != 4 || highs[0].Price != 120 {
		t.Fatalf("unexpected high pivots: %+v", highs)
	}
}

func TestFindPivotsEqualNeighbourIsNotPivot(t *testing.T) {
	candles := []models.Candle{
		tc(1, 110, 95),
		tc(2, 108, 95), // equal low, not strictly less
		tc(3, 112, 98),
	}
	osc := []float64{30, 28, 35}
	lows, _ := FindPivots(candles, osc)
	if len(lows) != 0 {
		t.Fatalf("equal neighbour must not confirm a pivot, got %+v", lows)
	}
}

func TestFindPivotsSkipsUndefinedOscillator(t *testing.T) {
	candles := []models.Candle{
		tc(1, 110, 100),
		tc(2, 108, 95),
		tc(3, 112, 98),
	}
	osc := []float64{30, math.NaN(), 35}
	lows, highs := FindPivots(candles, osc)
	if len(lows) != 0 || len(highs) != 0 {
		t.Fatalf("pivot with NaN oscillator must be skipped, got %+v %+v", lows, highs)
	}
}

func TestBullishDivergence(t *testing.T) {
	prev := Pivot{Price: 100, Oscillator: 25}
	cur := Pivot{Price: 95, Oscillator: 32}

	if !BullishDivergence(prev, cur, 40) {
		t.Fatal("lower low with higher oscillator below threshold must diverge")
	}
	// oscillator made a lower low too: trend confirmation, not divergence
	if BullishDivergence(prev, Pivot{Price: 95, Oscillator: 20}, 40) {
		t.Fatal("lower oscillator low must not diverge")
	}
	// both legs must be under the threshold
	if BullishDivergence(Pivot{Price: 100, Oscillator: 45}, cur, 40) {
		t.Fatal("previous pivot above threshold must not diverge")
	}
	if BullishDivergence(prev, Pivot{Price: 95, Oscillator: 41}, 40) {
		t.Fatal("current pivot above threshold must not diverge")
	}
	// price made a higher low: no bullish setup
	if BullishDivergence(prev, Pivot{Price: 105, Oscillator: 32}, 40) {
		t.Fatal("higher price low must not diverge")
	}
}

func TestBearishDivergence(t *testing.T) {
	prev := Pivot{Price: 100, Oscillator: 75}
	cur := Pivot{Price: 108, Oscillator: 68}

	if !BearishDivergence(prev, cur, 60) {
		t.Fatal("higher high with lower oscillator above threshold must diverge")
	}
	if BearishDivergence(prev, Pivot{Price: 108, Oscillator: 80}, 60) {
		t.Fatal("higher oscillator high must not diverge")
	}
	if BearishDivergence(Pivot{Price: 100, Oscillator: 55}, cur, 60) {
		t.Fatal("previous pivot below threshold must not diverge")
	}
	if BearishDivergence(prev, Pivot{Price: 95, Oscillator: 68}, 60) {
		t.Fatal("lower price high must not diverge")
	}
}
