package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/cache"
)

type fakeNotifier struct {
	texts []string
	fail  bool
}

func (f *fakeNotifier) SendAlert(ctx context.Context, a models.AlertCandidate) error {
	return f.SendText(ctx, a.Condition)
}

func (f *fakeNotifier) SendConsolidated(ctx context.Context, alerts []models.AlertCandidate) error {
	return f.SendText(ctx, fmt.Sprintf("combined %d", len(alerts)))
}

func (f *fakeNotifier) SendText(_ context.Context, text string) error {
	if f.fail {
		return fmt.Errorf("sink unavailable")
	}
	f.texts = append(f.texts, text)
	return nil
}

type fakeSentiment struct {
	reading models.SentimentReading
	fail    bool
}

func (f *fakeSentiment) Latest(_ context.Context) (models.SentimentReading, error) {
	if f.fail {
		return models.SentimentReading{}, fmt.Errorf("index unavailable")
	}
	return f.reading, nil
}

func TestSummaryDigestContents(t *testing.T) {
	ctx := context.Background()
	snaps := cache.NewMemoryCache()

	err := snaps.Set(ctx, SnapshotKey("BTCUSDT", "4h"), models.IndicatorSnapshot{
		Symbol: "BTCUSDT", Timeframe: "4h",
		Oscillator: 27.4, OscillatorDefined: true,
		LivePrice: 64250.5,
	}, time.Minute)
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	err = snaps.Set(ctx, SnapshotKey("ETHUSDT", "4h"), models.IndicatorSnapshot{
		Symbol: "ETHUSDT", Timeframe: "4h",
		OscillatorDefined: false,
		LivePrice:         3120.25,
	}, time.Minute)
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	sink := &fakeNotifier{}
	sentiment := &fakeSentiment{reading: models.SentimentReading{Value: 71, Classification: "Greed"}}
	r := NewSummaryReporter(
		[]string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		[]drepo.Timeframe{"4h"},
		9*time.Hour, snaps, sentiment, sink, quietLogger(t),
	)

	if err := r.Send(ctx); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sink.texts) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sink.texts))
	}
	text := sink.texts[0]

	if !strings.HasPrefix(text, "📊 Daily summary") {
		t.Errorf("missing header: %q", text)
	}
	if !strings.Contains(text, "Fear & Greed: 71 (Greed)") {
		t.Errorf("missing sentiment line: %q", text)
	}
	if !strings.Contains(text, "BTCUSDT [4h] osc 27.4") {
		t.Errorf("missing oscillator line: %q", text)
	}
	if !strings.Contains(text, "ETHUSDT [4h] warming up") {
		t.Errorf("missing warming-up line: %q", text)
	}
	if !strings.Contains(text, "SOLUSDT [4h] no data") {
		t.Errorf("missing no-data line: %q", text)
	}
}

func TestSummarySentimentFailureDegrades(t *testing.T) {
	sink := &fakeNotifier{}
	r := NewSummaryReporter(
		[]string{"BTCUSDT"}, []drepo.Timeframe{"4h"},
		9*time.Hour, cache.NewMemoryCache(), &fakeSentiment{fail: true}, sink, quietLogger(t),
	)
	if err := r.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sink.texts) != 1 || !strings.Contains(sink.texts[0], "Fear & Greed: unavailable") {
		t.Fatalf("expected degraded sentiment line, got %+v", sink.texts)
	}
}

func TestSummaryWithoutSentimentSourceOmitsLine(t *testing.T) {
	sink := &fakeNotifier{}
	r := NewSummaryReporter(
		[]string{"BTCUSDT"}, []drepo.Timeframe{"4h"},
		9*time.Hour, cache.NewMemoryCache(), nil, sink, quietLogger(t),
	)
	if err := r.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sink.texts) != 1 || strings.Contains(sink.texts[0], "Fear & Greed") {
		t.Fatalf("sentiment line must be absent, got %+v", sink.texts)
	}
}

func TestSummarySendErrorPropagates(t *testing.T) {
	sink := &fakeNotifier{fail: true}
	r := NewSummaryReporter(
		[]string{"BTCUSDT"}, []drepo.Timeframe{"4h"},
		9*time.Hour, cache.NewMemoryCache(), nil, sink, quietLogger(t),
	)
	if err := r.Send(context.Background()); err == nil {
		t.Fatal("expected error from failing sink")
	}
}
