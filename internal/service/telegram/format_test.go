package telegram

import (
	"strings"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func oscAlert(symbol, cond string, value, price float64) models.AlertCandidate {
	return models.AlertCandidate{
		Key:       models.ConditionKey{Symbol: symbol, Timeframe: "4h", Family: models.FamilyOscillator},
		Severity:  models.SeverityExtreme,
		Condition: cond,
		Value:     value,
		Price:     price,
		FiredAt:   time.Now(),
	}
}

func TestFormatAlertOscillator(t *testing.T) {
	msg := FormatAlert(oscAlert("BTCUSDT", "EXTREME oversold", 18.42, 64123.5))
	for _, want := range []string{"BTCUSDT", "[4h]", "EXTREME oversold", "18.42", "64123.50"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatAlertBreakoutShowsRangeEdge(t *testing.T) {
	a := models.AlertCandidate{
		Key:       models.ConditionKey{Symbol: "ETHUSDT", Timeframe: "1h", Family: models.FamilyBreakout},
		Condition: "breakout UP",
		Price:     3305.77,
		RefPrice:  3300.00,
	}
	msg := FormatAlert(a)
	if !strings.Contains(msg, "3305.7700") || !strings.Contains(msg, "3300.0000") {
		t.Errorf("breakout message must show price and range edge:\n%s", msg)
	}
}

func TestFormatConsolidated(t *testing.T) {
	alerts := []models.AlertCandidate{
		oscAlert("BTCUSDT", "EXTREME oversold", 18.4, 64000),
		oscAlert("ETHUSDT", "MILD overbought", 71.2, 3300),
	}
	msg := FormatConsolidated(alerts)
	if !strings.Contains(msg, "2 alerts") {
		t.Errorf("combined header missing:\n%s", msg)
	}
	if !strings.Contains(msg, "BTCUSDT") || !strings.Contains(msg, "ETHUSDT") {
		t.Errorf("combined message must list every alert:\n%s", msg)
	}
	if strings.Count(msg, "•") != 2 {
		t.Errorf("expected 2 bullet lines:\n%s", msg)
	}
}

func TestFormatPriceScalesPrecision(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{64123.456, "64123.46"},
		{3.14159, "3.1416"},
		{0.00001234, "0.00001234"},
	}
	for _, c := range cases {
		if got := formatPrice(c.price); got != c.want {
			t.Errorf("formatPrice(%v) = %q, want %q", c.price, got, c.want)
		}
	}
}
