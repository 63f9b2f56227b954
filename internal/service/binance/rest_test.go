package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	drepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
)

func TestGetKlinesParsesRows(t *testing.T) {
	body := `[
	  [1700000000000,"100.0","110.0","95.0","105.0","12.5",1700014399999,"0",0,"0","0","0"],
	  [1700014400000,"105.0","120.0","104.0","118.0","9.1",9999999999999,"0",0,"0","0","0"]
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q", got)
		}
		if got := r.URL.Query().Get("interval"); got != "4h" {
			t.Errorf("interval = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	rc := NewRestClient(srv.URL, xhttp.NewClient())
	candles, err := rc.GetKlines(context.Background(), "BTCUSDT", drepo.TF4h, 2)
	if err != nil {
		t.Fatalf("GetKlines: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}

	first := candles[0]
	if first.OpenTime != 1700000000000 || first.CloseTime != 1700014399999 {
		t.Fatalf("unexpected times %+v", first)
	}
	if first.Open != 100 || first.High != 110 || first.Low != 95 || first.Close != 105 || first.Volume != 12.5 {
		t.Fatalf("unexpected OHLCV %+v", first)
	}
	if !first.Closed {
		t.Fatal("historic candle must be closed")
	}
	if candles[1].Closed {
		t.Fatal("candle closing in the future must stay open")
	}
}

func TestGetKlinesRejectsShortRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1700000000000,"100.0"]]`))
	}))
	defer srv.Close()

	rc := NewRestClient(srv.URL, xhttp.NewClient())
	if _, err := rc.GetKlines(context.Background(), "BTCUSDT", drepo.TF4h, 1); err == nil {
		t.Fatal("expected error for malformed row")
	}
}
