package alert

import (
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func oscKey() models.ConditionKey {
	return models.ConditionKey{Symbol: "BTCUSDT", Timeframe: "4h", Family: models.FamilyOscillator}
}

func TestEscalationOnlyFiresUpward(t *testing.T) {
	var st ConditionState
	now := time.Now()

	if !st.TryEscalate(models.SeverityMild, now) {
		t.Fatal("NONE -> MILD must fire")
	}
	if st.TryEscalate(models.SeverityMild, now) {
		t.Fatal("MILD -> MILD must not fire")
	}
	if !st.TryEscalate(models.SeverityExtreme, now) {
		t.Fatal("MILD -> EXTREME must fire")
	}
	if st.TryEscalate(models.SeverityMild, now) {
		t.Fatal("EXTREME -> MILD must not fire")
	}
	if st.TryEscalate(models.SeverityExtreme, now) {
		t.Fatal("EXTREME -> EXTREME must not fire")
	}
}

func TestRecoveryRestoresEligibility(t *testing.T) {
	var st ConditionState
	now := time.Now()

	st.TryEscalate(models.SeverityExtreme, now)
	st.Recover()
	if st.Severity != models.SeverityNone {
		t.Fatalf("severity after recovery = %v, want NONE", st.Severity)
	}
	if !st.TryEscalate(models.SeverityMild, now) {
		t.Fatal("MILD must fire again after recovery")
	}
}

func TestBreakoutOncePerCandle(t *testing.T) {
	var st ConditionState
	now := time.Now()

	if !st.TryFireBreakout(1000, now) {
		t.Fatal("first breakout on candle must fire")
	}
	if st.TryFireBreakout(1000, now) {
		t.Fatal("same candle must not re-fire")
	}
	if !st.TryFireBreakout(2000, now) {
		t.Fatal("new candle open must restore eligibility")
	}
}

func TestStateStoreIsolatesKeys(t *testing.T) {
	store := NewStateStore()
	now := time.Now()

	a := oscKey()
	b := models.ConditionKey{Symbol: "ETHUSDT", Timeframe: "4h", Family: models.FamilyOscillator}

	store.Update(a, func(st *ConditionState) bool {
		return st.TryEscalate(models.SeverityExtreme, now)
	})
	fired := store.Update(b, func(st *ConditionState) bool {
		return st.TryEscalate(models.SeverityMild, now)
	})
	if !fired {
		t.Fatal("state must be independent per key")
	}
	if got := store.Snapshot(a).Severity; got != models.SeverityExtreme {
		t.Fatalf("key a severity = %v, want EXTREME", got)
	}
	if got := store.Snapshot(b).Severity; got != models.SeverityMild {
		t.Fatalf("key b severity = %v, want MILD", got)
	}
}

func TestStateStoreConcurrentUpdatesFireOnce(t *testing.T) {
	store := NewStateStore()
	key := oscKey()
	now := time.Now()

	var wg sync.WaitGroup
	fired := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fired <- store.Update(key, func(st *ConditionState) bool {
				return st.TryEscalate(models.SeverityMild, now)
			})
		}()
	}
	wg.Wait()
	close(fired)

	count := 0
	for f := range fired {
		if f {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("concurrent escalations fired %d times, want 1", count)
	}
}
