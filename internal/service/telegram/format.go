package telegram

import (
	"fmt"
	"strings"

	"MarketPulse/internal/domain/models"
)

// FormatAlert renders one alert candidate as a chat message.
func FormatAlert(a models.AlertCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]\n", familyTag(a.Key.Family), a.Key.Symbol, a.Key.Timeframe)
	fmt.Fprintf(&b, "%s\n", a.Condition)

	switch a.Key.Family {
	case models.FamilyOscillator:
		fmt.Fprintf(&b, "Oscillator: %.2f\n", a.Value)
		fmt.Fprintf(&b, "Price: %s", formatPrice(a.Price))
	case models.FamilyBreakout:
		fmt.Fprintf(&b, "Price: %s\n", formatPrice(a.Price))
		fmt.Fprintf(&b, "Range edge: %s", formatPrice(a.RefPrice))
	case models.FamilyDivergence:
		fmt.Fprintf(&b, "Pivot price: %s\n", formatPrice(a.Price))
		fmt.Fprintf(&b, "Oscillator: %.2f", a.Value)
	}
	return b.String()
}

// FormatConsolidated merges several candidates into one combined message.
func FormatConsolidated(alerts []models.AlertCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚡ %d alerts (combined)\n", len(alerts))
	for _, a := range alerts {
		fmt.Fprintf(&b, "• %s [%s] %s", a.Key.Symbol, a.Key.Timeframe, a.Condition)
		if a.Key.Family == models.FamilyOscillator || a.Key.Family == models.FamilyDivergence {
			fmt.Fprintf(&b, " (%.1f)", a.Value)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func familyTag(f models.ConditionFamily) string {
	switch f {
	case models.FamilyOscillator:
		return "📈"
	case models.FamilyBreakout:
		return "🚨"
	case models.FamilyDivergence:
		return "🔀"
	default:
		return "ℹ️"
	}
}

// formatPrice trims the noise from small and large prices alike.
func formatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}
