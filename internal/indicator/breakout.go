package indicator

// BreakoutDirection classifies a live price against the prior closed
// candle's range.
type BreakoutDirection int

const (
	BreakoutNone BreakoutDirection = iota
	BreakoutUp
	BreakoutDown
)

func (d BreakoutDirection) String() string {
	switch d {
	case BreakoutUp:
		return "UP"
	case BreakoutDown:
		return "DOWN"
	default:
		return "NONE"
	}
}

// Breakout compares price against the previous closed candle's high/low with
// a noise margin of marginPct percent. The reference range must come from a
// closed candle; re-fire suppression within one open candle is the caller's
// concern.
func Breakout(price, prevHigh, prevLow, marginPct float64) BreakoutDirection {
	up := prevHigh * (1 + marginPct/100)
	down := prevLow * (1 - marginPct/100)

	if price > up {
		return BreakoutUp
	}
	if price < down {
		return BreakoutDown
	}
	return BreakoutNone
}
