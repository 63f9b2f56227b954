package binance

import (
	"context"
	"runtime"
	"testing"
	"time"

	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestStreamURLCombinesPairs(t *testing.T) {
	s := &Stream{
		baseURL:    "wss://stream.example/stream",
		symbols:    []string{"BTCUSDT", "ETHUSDT"},
		timeframes: []drepo.Timeframe{drepo.TF1h, drepo.TF4h},
	}
	want := "wss://stream.example/stream?streams=btcusdt@kline_1h/btcusdt@kline_4h/ethusdt@kline_1h/ethusdt@kline_4h"
	if got := s.streamURL(); got != want {
		t.Fatalf("streamURL = %q, want %q", got, want)
	}
}

func TestReadWithoutConnectionStopsPingLoop(t *testing.T) {
	s := &Stream{
		pingInterval: 10 * time.Millisecond,
		log:          testLogger(t),
	}
	ctx := context.Background()
	before := runtime.NumGoroutine()

	// every Read on a dead stream must terminate both of its goroutines
	for i := 0; i < 10; i++ {
		_, errs := s.Read(ctx)
		if err := <-errs; err == nil {
			t.Fatal("expected an error reading without a connection")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("leaked goroutines after repeated reads: before=%d after=%d",
		before, runtime.NumGoroutine())
}

func TestKlineToCandleParsesFields(t *testing.T) {
	c, err := klineToCandle(wsKline{
		OpenTime:  1700000000000,
		CloseTime: 1700014399999,
		Symbol:    "BTCUSDT",
		Interval:  "4h",
		Open:      "100.5",
		Close:     "104.25",
		High:      "110.0",
		Low:       "99.75",
		Volume:    "12.5",
		IsClosed:  true,
	})
	if err != nil {
		t.Fatalf("klineToCandle: %v", err)
	}
	if c.Symbol != "BTCUSDT" || c.Timeframe != "4h" || !c.Closed {
		t.Fatalf("unexpected identity %+v", c)
	}
	if c.Open != 100.5 || c.High != 110 || c.Low != 99.75 || c.Close != 104.25 || c.Volume != 12.5 {
		t.Fatalf("unexpected OHLCV %+v", c)
	}
}

func TestKlineToCandleRejectsBadNumber(t *testing.T) {
	_, err := klineToCandle(wsKline{Open: "not-a-number", High: "1", Low: "1", Close: "1", Volume: "1"})
	if err == nil {
		t.Fatal("expected parse error")
	}
}
