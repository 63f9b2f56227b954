package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/cache"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

// SummaryReporter sends a once-a-day status digest: the market fear & greed
// reading, then the latest oscillator value and price per pair.
// Informational, so it goes to the sink directly rather than through the
// alert budget.
type SummaryReporter struct {
	symbols    []string
	timeframes []drepo.Timeframe
	offset     time.Duration // from midnight UTC
	snapshots  cache.Service
	sentiment  drepo.SentimentSource // nil omits the sentiment line
	notifier   drepo.Notifier
	log        *logger.Logger

	now func() time.Time
}

// NewSummaryReporter creates the daily summary reporter.
func NewSummaryReporter(symbols []string, timeframes []drepo.Timeframe, offset time.Duration, snapshots cache.Service, sentiment drepo.SentimentSource, notifier drepo.Notifier, log *logger.Logger) *SummaryReporter {
	return &SummaryReporter{
		symbols:    symbols,
		timeframes: timeframes,
		offset:     offset,
		snapshots:  snapshots,
		sentiment:  sentiment,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// Run fires the digest at the configured UTC time every day.
func (r *SummaryReporter) Run(ctx context.Context) {
	for {
		next := util.NextDailyUTC(r.now(), r.offset)
		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := r.Send(ctx); err != nil {
				r.log.Error("daily summary failed", logger.Error(err))
			}
		}
	}
}

// Send builds and delivers one digest immediately.
func (r *SummaryReporter) Send(ctx context.Context) error {
	text := r.build(ctx)
	if err := r.notifier.SendText(ctx, text); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	r.log.Info("daily summary sent")
	return nil
}

func (r *SummaryReporter) build(ctx context.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily summary (%s UTC)\n", r.now().UTC().Format("2006-01-02 15:04"))
	if r.sentiment != nil {
		if reading, err := r.sentiment.Latest(ctx); err != nil {
			r.log.Warn("fear & greed unavailable", logger.Error(err))
			b.WriteString("Fear & Greed: unavailable\n")
		} else {
			fmt.Fprintf(&b, "Fear & Greed: %d (%s)\n", reading.Value, reading.Classification)
		}
	}
	for _, symbol := range r.symbols {
		for _, tf := range r.timeframes {
			var snap models.IndicatorSnapshot
			err := r.snapshots.Get(ctx, SnapshotKey(symbol, string(tf)), &snap)
			if err != nil {
				fmt.Fprintf(&b, "• %s [%s] no data\n", symbol, tf)
				continue
			}
			if snap.OscillatorDefined {
				fmt.Fprintf(&b, "• %s [%s] osc %.1f, price %.8g\n", symbol, tf, snap.Oscillator, snap.LivePrice)
			} else {
				fmt.Fprintf(&b, "• %s [%s] warming up, price %.8g\n", symbol, tf, snap.LivePrice)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
