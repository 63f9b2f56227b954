package alert

import (
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
)

// ConditionState is the per-lineage memory that decides re-fire eligibility.
// Oscillator conditions escalate through severities and reset on recovery
// band re-entry; breakout conditions are binary per open candle; divergence
// conditions track the last confirmed pivot per side plus a processed-pivot
// watermark so restarts re-seed instead of re-firing.
type ConditionState struct {
	Severity    models.Severity
	LastFiredAt time.Time

	// breakout
	BreakoutFired    bool
	BreakoutOpenTime int64

	// divergence
	LastPivotLow  *models.PivotRecord
	LastPivotHigh *models.PivotRecord
	Seeded        bool
}

// TryEscalate fires iff sev is strictly above the stored severity. The
// severity is committed before any delivery attempt, so a failed send never
// re-fires.
func (st *ConditionState) TryEscalate(sev models.Severity, now time.Time) bool {
	if sev <= st.Severity {
		return false
	}
	st.Severity = sev
	st.LastFiredAt = now
	return true
}

// Recover resets the stored severity once the indicator re-enters the
// neutral band. Time elapsing alone never resets.
func (st *ConditionState) Recover() {
	st.Severity = models.SeverityNone
}

// TryFireBreakout fires at most once per open candle; a new candle open
// (different openTime) restores eligibility.
func (st *ConditionState) TryFireBreakout(openTime int64, now time.Time) bool {
	if st.BreakoutFired && st.BreakoutOpenTime == openTime {
		return false
	}
	st.BreakoutFired = true
	st.BreakoutOpenTime = openTime
	st.LastFiredAt = now
	return true
}

// StateStore holds ConditionState per ConditionKey with per-key locking, so
// concurrent evaluation of different pairs never contends on one mutex and
// updates for a single key are sequenced read-modify-write.
type StateStore struct {
	mu     sync.Mutex
	states map[models.ConditionKey]*stateEntry
}

type stateEntry struct {
	mu sync.Mutex
	st ConditionState
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[models.ConditionKey]*stateEntry)}
}

func (s *StateStore) entry(key models.ConditionKey) *stateEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[key]
	if !ok {
		e = &stateEntry{}
		s.states[key] = e
	}
	return e
}

// Update runs fn under the key's lock and returns its result. fn both reads
// and mutates the state in one critical section; the returned bool is the
// firing decision.
func (s *StateStore) Update(key models.ConditionKey, fn func(st *ConditionState) bool) bool {
	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.st)
}

// Snapshot returns a copy of the current state for inspection.
func (s *StateStore) Snapshot(key models.ConditionKey) ConditionState {
	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st
}
