package indicator

import "math"

// Oscillator computes the Wilder-smoothed momentum oscillator (RSI) over the
// given closes (oldest first). The average gain/loss is seeded with a simple
// mean over the first period deltas, then smoothed with weight 1/period.
// Returns (value, true) in [0, 100], or (0, false) when fewer than period+1
// closes are available.
func Oscillator(closes []float64, period int) (float64, bool) {
	if period < 1 || len(closes) < period+1 {
		return 0, false
	}

	avgGain, avgLoss := seedAverages(closes, period)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := delta(closes[i-1], closes[i])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	return fromAverages(avgGain, avgLoss), true
}

// OscillatorSeries computes the oscillator at every position of closes.
// Positions with insufficient history hold NaN. Identical smoothing path as
// Oscillator, so Series(closes)[len-1] == Oscillator(closes) for any prefix.
func OscillatorSeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 || len(closes) < period+1 {
		return out
	}

	avgGain, avgLoss := seedAverages(closes, period)
	out[period] = fromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := delta(closes[i-1], closes[i])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = fromAverages(avgGain, avgLoss)
	}
	return out
}

func seedAverages(closes []float64, period int) (avgGain, avgLoss float64) {
	for i := 1; i <= period; i++ {
		gain, loss := delta(closes[i-1], closes[i])
		avgGain += gain
		avgLoss += loss
	}
	return avgGain / float64(period), avgLoss / float64(period)
}

func delta(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func fromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		// all gains in the smoothing window
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
