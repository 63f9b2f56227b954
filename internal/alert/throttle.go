package alert

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// Outcome classifies what the throttler did with a submitted candidate.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeBuffered
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeBuffered:
		return "buffered"
	default:
		return "dropped"
	}
}

// Emitter receives candidates that passed throttling. Implementations must
// not block for long: the throttler calls them while holding no locks, but
// from the evaluator's goroutine.
type Emitter interface {
	AlertReady(cand models.AlertCandidate)
	ConsolidatedAlertReady(cands []models.AlertCandidate)
}

// ThrottleConfig bounds outbound alert volume.
type ThrottleConfig struct {
	HourlyCap           int           `yaml:"hourly_cap" default:"20" validate:"min=1"`
	MinuteThreshold     int           `yaml:"minute_threshold" default:"5" validate:"min=1"`
	ConsolidationWindow time.Duration `yaml:"consolidation_window" default:"10s" validate:"min=1s"`
}

// Throttler enforces the delivery budget: a hard hourly cap (excess is
// dropped), a per-minute burst threshold beyond which candidates are
// consolidated into a single combined emission, and a periodic sweep that
// prunes the emission ledger. Every emission, single or combined, costs one
// ledger slot.
type Throttler struct {
	cfg     ThrottleConfig
	emitter Emitter
	metrics repository.Metrics
	log     *logger.Logger

	mu      sync.Mutex
	ledger  []time.Time
	pending []models.AlertCandidate
	timer   *time.Timer

	// test hook
	now func() time.Time
}

func NewThrottler(cfg ThrottleConfig, emitter Emitter, metrics repository.Metrics, log *logger.Logger) *Throttler {
	return &Throttler{
		cfg:     cfg,
		emitter: emitter,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// Submit applies the budget to one candidate and either emits it, buffers it
// for consolidation, or drops it. The decision is committed before the
// emitter runs.
func (t *Throttler) Submit(cand models.AlertCandidate) Outcome {
	t.mu.Lock()
	now := t.now()
	t.pruneLocked(now)

	if len(t.ledger) >= t.cfg.HourlyCap {
		t.mu.Unlock()
		t.metrics.RecordAlertThrottled("hourly_cap")
		t.log.Warn("alert dropped, hourly cap reached",
			logger.String("condition", cand.Key.String()),
			logger.Int("cap", t.cfg.HourlyCap))
		return OutcomeDropped
	}

	if t.countSinceLocked(now.Add(-time.Minute)) >= t.cfg.MinuteThreshold {
		t.pending = append(t.pending, cand)
		if t.timer == nil {
			t.timer = time.AfterFunc(t.cfg.ConsolidationWindow, t.Flush)
		}
		t.mu.Unlock()
		t.metrics.RecordAlertConsolidated(1)
		t.log.Debug("alert buffered for consolidation",
			logger.String("condition", cand.Key.String()))
		return OutcomeBuffered
	}

	t.ledger = append(t.ledger, now)
	t.mu.Unlock()

	t.metrics.RecordAlertSent(string(cand.Key.Family), cand.Key.Symbol)
	t.emitter.AlertReady(cand)
	return OutcomeSent
}

// Flush drains the consolidation buffer. One buffered candidate goes out as
// a normal alert; two or more become a single combined emission. The hourly
// cap is re-checked here: singles emitted while the buffer waited may have
// used the remaining slots. Called by the window timer and on shutdown.
func (t *Throttler) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if len(t.pending) == 0 {
		t.mu.Unlock()
		return
	}
	batch := t.pending
	t.pending = nil

	t.pruneLocked(t.now())
	if len(t.ledger) >= t.cfg.HourlyCap {
		t.mu.Unlock()
		for range batch {
			t.metrics.RecordAlertThrottled("hourly_cap")
		}
		t.log.Warn("consolidated alerts dropped, hourly cap reached",
			logger.Int("count", len(batch)),
			logger.Int("cap", t.cfg.HourlyCap))
		return
	}
	t.ledger = append(t.ledger, t.now())
	t.mu.Unlock()

	if len(batch) == 1 {
		t.metrics.RecordAlertSent(string(batch[0].Key.Family), batch[0].Key.Symbol)
		t.emitter.AlertReady(batch[0])
		return
	}
	t.log.Info("flushing consolidated alerts", logger.Int("count", len(batch)))
	t.emitter.ConsolidatedAlertReady(batch)
}

// Run prunes the ledger periodically and flushes the consolidation buffer on
// shutdown.
func (t *Throttler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Flush()
			return
		case <-ticker.C:
			t.mu.Lock()
			t.pruneLocked(t.now())
			t.mu.Unlock()
		}
	}
}

// PendingCount reports how many candidates await consolidation.
func (t *Throttler) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// SentLastHour reports the number of ledger slots used in the trailing hour.
func (t *Throttler) SentLastHour() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(t.now())
	return len(t.ledger)
}

func (t *Throttler) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(t.ledger) && !t.ledger[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.ledger = append(t.ledger[:0:0], t.ledger[i:]...)
	}
}

func (t *Throttler) countSinceLocked(cutoff time.Time) int {
	n := 0
	for i := len(t.ledger) - 1; i >= 0; i-- {
		if !t.ledger[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}
