package telegram

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/ratelimit"
	xhttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

const apiBase = "https://api.telegram.org"

// Notifier delivers alert messages to a Telegram chat. DryRun logs messages
// instead of sending them, which keeps the full pipeline runnable without
// credentials.
type Notifier struct {
	botToken      string
	chatID        string
	dryRun        bool
	ratePerSecond float64

	client  *xhttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

// New creates a Telegram notifier.
func New(botToken, chatID string, dryRun bool, ratePerSecond float64, client *xhttp.Client, limiter *ratelimit.Limiter, log *logger.Logger) drepo.Notifier {
	return &Notifier{
		botToken:      botToken,
		chatID:        chatID,
		dryRun:        dryRun,
		ratePerSecond: ratePerSecond,
		client:        client,
		limiter:       limiter,
		log:           log,
	}
}

// SendAlert delivers a single alert.
func (n *Notifier) SendAlert(ctx context.Context, a models.AlertCandidate) error {
	return n.SendText(ctx, FormatAlert(a))
}

// SendConsolidated delivers a combined alert message.
func (n *Notifier) SendConsolidated(ctx context.Context, alerts []models.AlertCandidate) error {
	if len(alerts) == 0 {
		return nil
	}
	return n.SendText(ctx, FormatConsolidated(alerts))
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendText delivers raw text, pacing requests with the token bucket so the
// bot stays under the Telegram per-chat rate limit.
func (n *Notifier) SendText(ctx context.Context, text string) error {
	if n.dryRun {
		n.log.Info("telegram (dry run)", logger.String("text", text))
		return nil
	}

	for !n.limiter.Allow("telegram:"+n.chatID, n.ratePerSecond, n.ratePerSecond) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	var resp sendMessageResponse
	err := n.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", apiBase, n.botToken),
		Body: map[string]interface{}{
			"chat_id":                  n.chatID,
			"text":                     text,
			"disable_web_page_preview": true,
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram send: %s", resp.Description)
	}
	return nil
}
