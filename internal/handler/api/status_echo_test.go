package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type fakeCandleStore struct {
	candles   []models.Candle
	lastCount int
}

func (s *fakeCandleStore) Init(_ context.Context) error                    { return nil }
func (s *fakeCandleStore) Store(_ context.Context, _ *models.Candle) error { return nil }
func (s *fakeCandleStore) StoreBatch(_ context.Context, _ []*models.Candle) error {
	return nil
}

func (s *fakeCandleStore) GetRecentCandles(_ context.Context, _ string, _ domrepo.Timeframe, count int) ([]models.Candle, error) {
	s.lastCount = count
	if count < len(s.candles) {
		return append([]models.Candle(nil), s.candles[len(s.candles)-count:]...), nil
	}
	return append([]models.Candle(nil), s.candles...), nil
}

func (s *fakeCandleStore) DeleteOlderThan(_ context.Context, _ string, _ domrepo.Timeframe, _ int64, _ int) (int64, error) {
	return 0, nil
}
func (s *fakeCandleStore) Count(_ context.Context, _ string, _ domrepo.Timeframe) (int64, error) {
	return int64(len(s.candles)), nil
}
func (s *fakeCandleStore) Health(_ context.Context) error { return nil }
func (s *fakeCandleStore) Close() error                   { return nil }

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestHandler(t *testing.T, store *fakeCandleStore, snaps cache.Service) (*StatusEchoHandler, *echo.Echo) {
	t.Helper()
	h := NewStatusEchoHandler(
		testLogger(t), store, nil, nil, snaps,
		[]string{"BTCUSDT"}, []domrepo.Timeframe{domrepo.TF4h},
	)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func do(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIndicatorsForSymbolDefaultsTimeframe(t *testing.T) {
	snaps := cache.NewMemoryCache()
	err := snaps.Set(context.Background(), usecase.SnapshotKey("BTCUSDT", "4h"), models.IndicatorSnapshot{
		Symbol: "BTCUSDT", Timeframe: "4h", Oscillator: 71.5, OscillatorDefined: true,
	}, time.Minute)
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	_, e := newTestHandler(t, &fakeCandleStore{}, snaps)

	rec := do(e, http.MethodGet, "/api/indicators/BTCUSDT")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"oscillator":71.5`) {
		t.Fatalf("snapshot missing from body: %s", rec.Body.String())
	}
}

func TestIndicatorsForSymbolRejectsBadTimeframe(t *testing.T) {
	_, e := newTestHandler(t, &fakeCandleStore{}, cache.NewMemoryCache())

	rec := do(e, http.MethodGet, "/api/indicators/BTCUSDT?tf=bogus")
	if !strings.Contains(rec.Body.String(), `"status":400`) {
		t.Fatalf("expected validation failure, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ERR_ONEOF") {
		t.Fatalf("expected oneof violation, got %s", rec.Body.String())
	}
}

func TestCandlesLimitAndSince(t *testing.T) {
	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := &fakeCandleStore{}
	for i := 0; i < 5; i++ {
		store.candles = append(store.candles, models.Candle{
			Symbol: "BTCUSDT", Timeframe: "4h",
			OpenTime: base.Add(time.Duration(i) * 4 * time.Hour).UnixMilli(),
			Closed:   true,
		})
	}
	_, e := newTestHandler(t, store, cache.NewMemoryCache())

	rec := do(e, http.MethodGet, "/api/candles/BTCUSDT?limit=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if store.lastCount != 3 {
		t.Fatalf("store queried with count %d, want 3", store.lastCount)
	}

	// out-of-range limit falls back to the default
	do(e, http.MethodGet, "/api/candles/BTCUSDT?limit=99999")
	if store.lastCount != 100 {
		t.Fatalf("store queried with count %d, want default 100", store.lastCount)
	}

	since := base.Add(12 * time.Hour).Format(time.RFC3339)
	rec = do(e, http.MethodGet, "/api/candles/BTCUSDT?since="+since)
	var resp struct {
		Data []models.Candle `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("since filter kept %d candles, want 2", len(resp.Data))
	}
	for _, cd := range resp.Data {
		if cd.OpenTime < base.Add(12*time.Hour).UnixMilli() {
			t.Fatalf("candle %d predates since cutoff", cd.OpenTime)
		}
	}
}

func TestCandlesRejectsMalformedSince(t *testing.T) {
	_, e := newTestHandler(t, &fakeCandleStore{}, cache.NewMemoryCache())

	rec := do(e, http.MethodGet, "/api/candles/BTCUSDT?since=yesterday")
	if !strings.Contains(rec.Body.String(), `"status":400`) {
		t.Fatalf("expected format error, got %s", rec.Body.String())
	}
}

func TestInvalidateIndicatorsDropsSnapshots(t *testing.T) {
	snaps := cache.NewMemoryCache()
	err := snaps.Set(context.Background(), usecase.SnapshotKey("BTCUSDT", "4h"),
		models.IndicatorSnapshot{Symbol: "BTCUSDT", Timeframe: "4h"}, time.Minute)
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	_, e := newTestHandler(t, &fakeCandleStore{}, snaps)

	rec := do(e, http.MethodDelete, "/api/indicators/BTCUSDT")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/indicators/BTCUSDT")
	if !strings.Contains(rec.Body.String(), `"status":404`) {
		t.Fatalf("expected snapshot gone, got %s", rec.Body.String())
	}
}
