package indicator

import (
	"math"
	"testing"
)

// 15 closes alternating +1/-3: the 14 seed deltas sum to 7 gain and 21 loss,
// so avgGain=0.5, avgLoss=1.5, RS=1/3 and the oscillator is exactly 25.
var oversoldCloses = []float64{100, 101, 98, 99, 96, 97, 94, 95, 92, 93, 90, 91, 88, 89, 86}

func TestOscillatorInsufficientHistory(t *testing.T) {
	closes := make([]float64, 14)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if _, ok := Oscillator(closes, 14); ok {
		t.Fatalf("expected undefined with %d closes for period 14", len(closes))
	}
	if v, ok := Oscillator(closes[:0], 14); ok || v != 0 {
		t.Fatalf("expected undefined on empty input, got %v ok=%v", v, ok)
	}
}

func TestOscillatorExactSeedValue(t *testing.T) {
	v, ok := Oscillator(oversoldCloses, 14)
	if !ok {
		t.Fatal("expected defined oscillator with 15 closes")
	}
	if math.Abs(v-25.0) > 1e-12 {
		t.Fatalf("expected exactly 25.0, got %.12f", v)
	}
	if v >= 30 {
		t.Fatalf("expected oversold (<30), got %.2f", v)
	}
}

func TestOscillatorWilderSmoothingStep(t *testing.T) {
	// One smoothing step past the seed: a +2 gain after the seed window
	// gives avgGain = (0.5*13+2)/14 and avgLoss = (1.5*13+0)/14.
	closes := append(append([]float64{}, oversoldCloses...), 88)
	avgGain := (0.5*13 + 2) / 14
	avgLoss := (1.5 * 13) / 14
	want := 100 - 100/(1+avgGain/avgLoss)

	v, ok := Oscillator(closes, 14)
	if !ok {
		t.Fatal("expected defined oscillator")
	}
	if math.Abs(v-want) > 1e-9 {
		t.Fatalf("expected %.9f, got %.9f", want, v)
	}
}

func TestOscillatorAllGainsIs100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	v, ok := Oscillator(closes, 14)
	if !ok {
		t.Fatal("expected defined oscillator")
	}
	if v != 100 {
		t.Fatalf("expected 100 with avgLoss=0, got %v", v)
	}
}

func TestOscillatorAllLossesIs0(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	v, ok := Oscillator(closes, 14)
	if !ok {
		t.Fatal("expected defined oscillator")
	}
	if v != 0 {
		t.Fatalf("expected 0 with avgGain=0, got %v", v)
	}
}

func TestOscillatorBounded(t *testing.T) {
	closes := []float64{
		100, 103, 99, 104, 98, 105, 97, 110, 92, 111,
		93, 108, 96, 107, 95, 112, 90, 115, 89, 116,
	}
	for n := 15; n <= len(closes); n++ {
		v, ok := Oscillator(closes[:n], 14)
		if !ok {
			t.Fatalf("prefix %d: expected defined", n)
		}
		if v < 0 || v > 100 {
			t.Fatalf("prefix %d: value %v out of [0,100]", n, v)
		}
	}
}

func TestOscillatorSeriesMatchesScalar(t *testing.T) {
	closes := []float64{
		100, 103, 99, 104, 98, 105, 97, 110, 92, 111,
		93, 108, 96, 107, 95, 112, 90, 115, 89, 116,
	}
	series := OscillatorSeries(closes, 14)
	if len(series) != len(closes) {
		t.Fatalf("series length %d, want %d", len(series), len(closes))
	}
	for i := 0; i < 14; i++ {
		if !math.IsNaN(series[i]) {
			t.Fatalf("index %d: expected NaN, got %v", i, series[i])
		}
	}
	for n := 15; n <= len(closes); n++ {
		scalar, ok := Oscillator(closes[:n], 14)
		if !ok {
			t.Fatalf("prefix %d: expected defined", n)
		}
		if math.Abs(series[n-1]-scalar) > 1e-12 {
			t.Fatalf("prefix %d: series %v != scalar %v", n, series[n-1], scalar)
		}
	}
}
