package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/alert"
	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/indicator"
	"MarketPulse/pkg/cache"
	"MarketPulse/pkg/logger"
)

// EvaluatorConfig holds the indicator thresholds and cadence.
type EvaluatorConfig struct {
	Interval time.Duration

	OscPeriod    int
	MildLow      float64
	ExtremeLow   float64
	MildHigh     float64
	ExtremeHigh  float64
	RecoveryLow  float64
	RecoveryHigh float64

	BreakoutMarginPct float64

	DivergenceLookback int
	BullishMax         float64
	BearishMin         float64
}

// Evaluator runs the periodic evaluation cycle: it reads closed candles plus
// the live price, computes the indicators, consults the condition state
// store and submits qualifying candidates to the throttler. State is
// committed before the candidate leaves this package, so delivery failures
// can never cause a re-fire.
type Evaluator struct {
	cfg        EvaluatorConfig
	symbols    []string
	timeframes []drepo.Timeframe

	store     drepo.CandleStore
	live      drepo.LivePriceSource
	states    *alert.StateStore
	throttler *alert.Throttler
	snapshots cache.Service // optional diagnostic cache
	metrics   drepo.Metrics
	log       *logger.Logger

	now func() time.Time
}

// NewEvaluator creates the evaluation loop.
func NewEvaluator(
	cfg EvaluatorConfig,
	symbols []string,
	timeframes []drepo.Timeframe,
	store drepo.CandleStore,
	live drepo.LivePriceSource,
	states *alert.StateStore,
	throttler *alert.Throttler,
	snapshots cache.Service,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Evaluator {
	return &Evaluator{
		cfg:        cfg,
		symbols:    symbols,
		timeframes: timeframes,
		store:      store,
		live:       live,
		states:     states,
		throttler:  throttler,
		snapshots:  snapshots,
		metrics:    metrics,
		log:        log,
		now:        time.Now,
	}
}

// Run evaluates on the configured cadence until the context is cancelled.
func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll runs one cycle over every configured pair. A failing pair is
// logged and skipped; one bad symbol must not starve the rest.
func (e *Evaluator) EvaluateAll(ctx context.Context) {
	start := e.now()
	for _, symbol := range e.symbols {
		for _, tf := range e.timeframes {
			if err := e.EvaluatePair(ctx, symbol, tf); err != nil {
				e.metrics.RecordError("evaluate")
				e.log.Error("pair evaluation failed",
					logger.String("symbol", symbol),
					logger.String("timeframe", string(tf)),
					logger.Error(err))
			}
		}
	}
	e.metrics.RecordCycleDuration(time.Since(start).Seconds())
}

// EvaluatePair evaluates all condition families for one pair.
func (e *Evaluator) EvaluatePair(ctx context.Context, symbol string, tf drepo.Timeframe) error {
	candles, err := e.store.GetRecentCandles(ctx, symbol, tf, e.cfg.DivergenceLookback)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}

	liveCandle, haveLive := e.live.LiveCandle(symbol, tf)
	if len(candles) == 0 && !haveLive {
		return nil // nothing ingested yet
	}

	// closes for the oscillator: closed history plus the live close, so an
	// intra-candle touch is caught at the next cycle
	closes := make([]float64, 0, len(candles)+1)
	for _, c := range candles {
		closes = append(closes, c.Close)
	}
	livePrice := 0.0
	if haveLive {
		livePrice = liveCandle.Close
		closes = append(closes, livePrice)
	} else if len(candles) > 0 {
		livePrice = candles[len(candles)-1].Close
	}

	oscVal, oscDefined := indicator.Oscillator(closes, e.cfg.OscPeriod)
	if oscDefined {
		e.metrics.RecordIndicator(symbol, string(tf), oscVal)
		e.evaluateOscillator(symbol, tf, oscVal, livePrice)
	}
	if haveLive && len(candles) > 0 {
		e.evaluateBreakout(symbol, tf, candles[len(candles)-1], liveCandle)
	}
	e.evaluateDivergence(symbol, tf, candles)

	e.storeSnapshot(ctx, symbol, tf, candles, oscVal, oscDefined, livePrice)
	return nil
}

func (e *Evaluator) evaluateOscillator(symbol string, tf drepo.Timeframe, oscVal, livePrice float64) {
	sev := models.SeverityNone
	cond := ""
	switch {
	case oscVal <= e.cfg.ExtremeLow:
		sev, cond = models.SeverityExtreme, "EXTREME_OVERSOLD"
	case oscVal <= e.cfg.MildLow:
		sev, cond = models.SeverityMild, "OVERSOLD"
	case oscVal >= e.cfg.ExtremeHigh:
		sev, cond = models.SeverityExtreme, "EXTREME_OVERBOUGHT"
	case oscVal >= e.cfg.MildHigh:
		sev, cond = models.SeverityMild, "OVERBOUGHT"
	}

	key := models.ConditionKey{Symbol: symbol, Timeframe: string(tf), Family: models.FamilyOscillator}
	now := e.now()
	fired := e.states.Update(key, func(st *alert.ConditionState) bool {
		if sev == models.SeverityNone {
			if oscVal >= e.cfg.RecoveryLow && oscVal <= e.cfg.RecoveryHigh {
				st.Recover()
			}
			return false
		}
		return st.TryEscalate(sev, now)
	})
	if !fired {
		return
	}
	e.submit(models.AlertCandidate{
		Key:       key,
		Severity:  sev,
		Condition: cond,
		Value:     oscVal,
		Price:     livePrice,
		FiredAt:   now,
	})
}

func (e *Evaluator) evaluateBreakout(symbol string, tf drepo.Timeframe, prev models.Candle, live models.Candle) {
	dir := indicator.Breakout(live.Close, prev.High, prev.Low, e.cfg.BreakoutMarginPct)
	if dir == indicator.BreakoutNone {
		return
	}

	key := models.ConditionKey{Symbol: symbol, Timeframe: string(tf), Family: models.FamilyBreakout}
	now := e.now()
	fired := e.states.Update(key, func(st *alert.ConditionState) bool {
		return st.TryFireBreakout(live.OpenTime, now)
	})
	if !fired {
		return
	}

	cond := "BREAKOUT_UP"
	ref := prev.High
	if dir == indicator.BreakoutDown {
		cond = "BREAKOUT_DOWN"
		ref = prev.Low
	}
	e.submit(models.AlertCandidate{
		Key:       key,
		Severity:  models.SeverityMild,
		Condition: cond,
		Price:     live.Close,
		RefPrice:  ref,
		FiredAt:   now,
	})
}

// evaluateDivergence rescans the lookback window each cycle. New pivots past
// the stored watermark are chained against the previous pivot of the same
// side; the first cycle only seeds the chain, so a restart never replays
// alerts for pivots that fired before the process died.
func (e *Evaluator) evaluateDivergence(symbol string, tf drepo.Timeframe, candles []models.Candle) {
	if len(candles) < e.cfg.OscPeriod+3 {
		return
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	series := indicator.OscillatorSeries(closes, e.cfg.OscPeriod)
	lows, highs := indicator.FindPivots(candles, series)
	if len(lows) == 0 && len(highs) == 0 {
		return
	}

	key := models.ConditionKey{Symbol: symbol, Timeframe: string(tf), Family: models.FamilyDivergence}
	now := e.now()
	var fires []models.AlertCandidate
	e.states.Update(key, func(st *alert.ConditionState) bool {
		seeding := !st.Seeded
		st.LastPivotLow = chainPivots(st.LastPivotLow, lows, seeding, func(prev indicator.Pivot, p indicator.Pivot) {
			if indicator.BullishDivergence(prev, p, e.cfg.BullishMax) {
				fires = append(fires, models.AlertCandidate{
					Key:       key,
					Severity:  models.SeverityMild,
					Condition: "DIVERGENCE_BULLISH",
					Value:     p.Oscillator,
					Price:     p.Price,
					RefPrice:  prev.Price,
					FiredAt:   now,
				})
			}
		})
		st.LastPivotHigh = chainPivots(st.LastPivotHigh, highs, seeding, func(prev indicator.Pivot, p indicator.Pivot) {
			if indicator.BearishDivergence(prev, p, e.cfg.BearishMin) {
				fires = append(fires, models.AlertCandidate{
					Key:       key,
					Severity:  models.SeverityMild,
					Condition: "DIVERGENCE_BEARISH",
					Value:     p.Oscillator,
					Price:     p.Price,
					RefPrice:  prev.Price,
					FiredAt:   now,
				})
			}
		})
		st.Seeded = true
		return len(fires) > 0
	})
	for _, cand := range fires {
		e.submit(cand)
	}
}

// chainPivots walks pivots newer than the stored record, invoking compare
// for each consecutive (prev, new) pair, and returns the newest record. When
// seeding, comparisons are skipped and only the chain tail is kept.
func chainPivots(last *models.PivotRecord, pivots []indicator.Pivot, seeding bool, compare func(prev, p indicator.Pivot)) *models.PivotRecord {
	prev := last
	for _, p := range pivots {
		if prev != nil && p.OpenTime <= prev.OpenTime {
			continue
		}
		if prev != nil && !seeding {
			compare(indicator.Pivot{OpenTime: prev.OpenTime, Price: prev.Price, Oscillator: prev.Oscillator}, p)
		}
		// unconditional replacement keeps the comparison baseline fresh
		prev = &models.PivotRecord{OpenTime: p.OpenTime, Price: p.Price, Oscillator: p.Oscillator}
	}
	return prev
}

func (e *Evaluator) submit(cand models.AlertCandidate) {
	outcome := e.throttler.Submit(cand)
	e.log.Debug("alert candidate",
		logger.String("condition", cand.Key.String()),
		logger.String("variant", cand.Condition),
		logger.String("outcome", outcome.String()))
}

func (e *Evaluator) storeSnapshot(ctx context.Context, symbol string, tf drepo.Timeframe, candles []models.Candle, oscVal float64, oscDefined bool, livePrice float64) {
	if e.snapshots == nil {
		return
	}
	snap := models.IndicatorSnapshot{
		Symbol:            symbol,
		Timeframe:         string(tf),
		Oscillator:        oscVal,
		OscillatorDefined: oscDefined,
		LivePrice:         livePrice,
		ClosedCandles:     len(candles),
		ComputedAt:        e.now(),
	}
	if n := len(candles); n > 0 {
		snap.PrevHigh = candles[n-1].High
		snap.PrevLow = candles[n-1].Low
	}
	if err := e.snapshots.Set(ctx, SnapshotKey(symbol, string(tf)), snap, 5*time.Minute); err != nil {
		e.metrics.RecordError("snapshot_cache")
	}
}

const snapshotPrefix = "snapshot"

// SnapshotKey is the cache key for a pair's indicator snapshot.
func SnapshotKey(symbol, tf string) string {
	return cache.GenerateKeyWithParams(snapshotPrefix, symbol, tf)
}

// SnapshotPattern matches every cached snapshot for one symbol.
func SnapshotPattern(symbol string) string {
	return cache.BuildPattern(cache.GenerateKey(snapshotPrefix, symbol))
}
