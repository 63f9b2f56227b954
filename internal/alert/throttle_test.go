package alert

import (
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

type fakeEmitter struct {
	mu       sync.Mutex
	single   []models.AlertCandidate
	combined [][]models.AlertCandidate
}

func (e *fakeEmitter) AlertReady(cand models.AlertCandidate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.single = append(e.single, cand)
}

func (e *fakeEmitter) ConsolidatedAlertReady(cands []models.AlertCandidate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.combined = append(e.combined, cands)
}

type fakeMetrics struct {
	mu                        sync.Mutex
	sent, throttled, buffered int
}

func (m *fakeMetrics) RecordAlertSent(family, symbol string) {
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordAlertThrottled(reason string) {
	m.mu.Lock()
	m.throttled++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordAlertConsolidated(n int) {
	m.mu.Lock()
	m.buffered += n
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordIndicator(symbol, tf string, value float64) {}
func (m *fakeMetrics) RecordLastPrice(symbol string, price float64)     {}
func (m *fakeMetrics) RecordError(kind string)                          {}
func (m *fakeMetrics) RecordCycleDuration(seconds float64)              {}
func (m *fakeMetrics) RecordStreamConnected(connected bool)             {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func cand(symbol string) models.AlertCandidate {
	return models.AlertCandidate{
		Key: models.ConditionKey{Symbol: symbol, Timeframe: "4h", Family: models.FamilyOscillator},
	}
}

func newTestThrottler(t *testing.T, cfg ThrottleConfig) (*Throttler, *fakeEmitter, *time.Time) {
	t.Helper()
	em := &fakeEmitter{}
	tr := NewThrottler(cfg, em, &fakeMetrics{}, testLogger(t))
	clock := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }
	return tr, em, &clock
}

func TestThrottlerHourlyCapDrops(t *testing.T) {
	cfg := ThrottleConfig{HourlyCap: 20, MinuteThreshold: 100, ConsolidationWindow: time.Hour}
	tr, em, clock := newTestThrottler(t, cfg)

	for i := 0; i < 20; i++ {
		// spread out so the minute threshold never engages
		*clock = clock.Add(2 * time.Minute)
		if got := tr.Submit(cand("BTCUSDT")); got != OutcomeSent {
			t.Fatalf("submit %d: got %s, want sent", i, got)
		}
	}
	if got := tr.Submit(cand("BTCUSDT")); got != OutcomeDropped {
		t.Fatalf("21st submit: got %s, want dropped", got)
	}
	if len(em.single) != 20 {
		t.Fatalf("emitted %d alerts, want 20", len(em.single))
	}
}

func TestThrottlerLedgerPrunes(t *testing.T) {
	cfg := ThrottleConfig{HourlyCap: 2, MinuteThreshold: 100, ConsolidationWindow: time.Hour}
	tr, _, clock := newTestThrottler(t, cfg)

	tr.Submit(cand("BTCUSDT"))
	*clock = clock.Add(5 * time.Minute)
	tr.Submit(cand("BTCUSDT"))
	if got := tr.Submit(cand("BTCUSDT")); got != OutcomeDropped {
		t.Fatalf("at cap: got %s, want dropped", got)
	}

	*clock = clock.Add(61 * time.Minute)
	if got := tr.SentLastHour(); got != 0 {
		t.Fatalf("ledger after an hour: %d entries, want 0", got)
	}
	if got := tr.Submit(cand("BTCUSDT")); got != OutcomeSent {
		t.Fatalf("after prune: got %s, want sent", got)
	}
}

func TestThrottlerBurstConsolidates(t *testing.T) {
	cfg := ThrottleConfig{HourlyCap: 100, MinuteThreshold: 5, ConsolidationWindow: time.Hour}
	tr, em, _ := newTestThrottler(t, cfg)

	for i := 0; i < 5; i++ {
		if got := tr.Submit(cand("BTCUSDT")); got != OutcomeSent {
			t.Fatalf("submit %d: got %s, want sent", i, got)
		}
	}
	if got := tr.Submit(cand("ETHUSDT")); got != OutcomeBuffered {
		t.Fatalf("6th submit: got %s, want buffered", got)
	}
	if got := tr.Submit(cand("SOLUSDT")); got != OutcomeBuffered {
		t.Fatalf("7th submit: got %s, want buffered", got)
	}
	if got := tr.PendingCount(); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	tr.Flush()
	if got := tr.PendingCount(); got != 0 {
		t.Fatalf("pending after flush = %d, want 0", got)
	}
	if len(em.combined) != 1 || len(em.combined[0]) != 2 {
		t.Fatalf("expected one combined emission of 2, got %+v", em.combined)
	}
	if len(em.single) != 5 {
		t.Fatalf("single emissions = %d, want 5", len(em.single))
	}
}

func TestThrottlerSingleBufferedFlushesAsNormalAlert(t *testing.T) {
	cfg := ThrottleConfig{HourlyCap: 100, MinuteThreshold: 1, ConsolidationWindow: time.Hour}
	tr, em, _ := newTestThrottler(t, cfg)

	tr.Submit(cand("BTCUSDT")) // sent, fills the minute threshold
	if got := tr.Submit(cand("ETHUSDT")); got != OutcomeBuffered {
		t.Fatalf("second submit: got %s, want buffered", got)
	}
	tr.Flush()

	if len(em.combined) != 0 {
		t.Fatalf("single buffered alert must not emit combined, got %+v", em.combined)
	}
	if len(em.single) != 2 || em.single[1].Key.Symbol != "ETHUSDT" {
		t.Fatalf("expected buffered alert flushed singly, got %+v", em.single)
	}
}

func TestThrottlerFlushOnEmptyBufferIsNoop(t *testing.T) {
	cfg := ThrottleConfig{HourlyCap: 100, MinuteThreshold: 5, ConsolidationWindow: time.Hour}
	tr, em, _ := newTestThrottler(t, cfg)

	tr.Flush()
	if len(em.single) != 0 || len(em.combined) != 0 {
		t.Fatal("flush on empty buffer must emit nothing")
	}
	if got := tr.SentLastHour(); got != 0 {
		t.Fatalf("empty flush must not consume a ledger slot, got %d", got)
	}
}

func TestThrottlerFlushRechecksHourlyCap(t *testing.T) {
	cfg := ThrottleConfig{HourlyCap: 3, MinuteThreshold: 2, ConsolidationWindow: time.Hour}
	tr, em, clock := newTestThrottler(t, cfg)
	metrics := tr.metrics.(*fakeMetrics)

	tr.Submit(cand("BTCUSDT"))                                     // slot 1
	tr.Submit(cand("ETHUSDT"))                                     // slot 2
	if got := tr.Submit(cand("SOLUSDT")); got != OutcomeBuffered { // minute burst
		t.Fatalf("third submit: got %s, want buffered", got)
	}

	// the minute window clears but the hourly ledger keeps both slots;
	// a fresh single takes the last one while the buffer still waits
	*clock = clock.Add(61 * time.Second)
	if got := tr.Submit(cand("XRPUSDT")); got != OutcomeSent {
		t.Fatalf("fourth submit: got %s, want sent", got)
	}

	tr.Flush()
	if len(em.combined) != 0 {
		t.Fatalf("flush past the cap must emit nothing, got %+v", em.combined)
	}
	if len(em.single) != 3 {
		t.Fatalf("single emissions = %d, want 3", len(em.single))
	}
	if got := tr.SentLastHour(); got != 3 {
		t.Fatalf("ledger = %d slots, want 3 (cap must hold)", got)
	}
	if got := tr.PendingCount(); got != 0 {
		t.Fatalf("pending after flush = %d, want 0", got)
	}
	metrics.mu.Lock()
	throttled := metrics.throttled
	metrics.mu.Unlock()
	if throttled != 1 {
		t.Fatalf("throttled = %d, want 1 dropped buffered candidate", throttled)
	}
}

func TestThrottlerConsolidatedEmissionUsesOneSlot(t *testing.T) {
	cfg := ThrottleConfig{HourlyCap: 100, MinuteThreshold: 2, ConsolidationWindow: time.Hour}
	tr, _, _ := newTestThrottler(t, cfg)

	tr.Submit(cand("BTCUSDT"))
	tr.Submit(cand("ETHUSDT"))
	tr.Submit(cand("SOLUSDT")) // buffered
	tr.Submit(cand("XRPUSDT")) // buffered
	tr.Flush()

	if got := tr.SentLastHour(); got != 3 {
		t.Fatalf("ledger = %d slots, want 3 (two singles + one combined)", got)
	}
}
