package feargreed

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

const apiKeyHeader = "X-CMC_PRO_API_KEY"

// Client fetches the Fear & Greed index from the CoinMarketCap API with
// exponential backoff. One reading per digest, so the retry budget stays
// small.
type Client struct {
	url    string
	apiKey string
	client *xhttp.Client
	log    *logger.Logger

	// one entry per attempt; the last delay is never slept
	delays []time.Duration
}

// New creates a fear & greed fetcher.
func New(url, apiKey string, client *xhttp.Client, log *logger.Logger) drepo.SentimentSource {
	return &Client{
		url:    url,
		apiKey: apiKey,
		client: client,
		log:    log,
		delays: []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second},
	}
}

type latestResponse struct {
	Data struct {
		Value          int    `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// Latest fetches the current reading, retrying transient failures.
func (c *Client) Latest(ctx context.Context) (models.SentimentReading, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers[apiKeyHeader] = c.apiKey
	}

	var lastErr error
	for attempt := 0; attempt < len(c.delays); attempt++ {
		var resp latestResponse
		err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodGet,
			URL:     c.url,
			Headers: headers,
		}, &resp)
		if err == nil {
			label := resp.Data.Classification
			if label == "" {
				label = Classify(resp.Data.Value)
			}
			return models.SentimentReading{
				Value:          resp.Data.Value,
				Classification: label,
				FetchedAt:      time.Now(),
			}, nil
		}
		lastErr = err
		c.log.Warn("fear & greed fetch failed",
			logger.Int("attempt", attempt+1),
			logger.Error(err))

		if attempt < len(c.delays)-1 {
			select {
			case <-ctx.Done():
				return models.SentimentReading{}, ctx.Err()
			case <-time.After(c.delays[attempt]):
			}
		}
	}
	return models.SentimentReading{}, fmt.Errorf("fear greed fetch: %w", lastErr)
}

// Classify maps an index value to its sentiment bucket.
func Classify(value int) string {
	switch {
	case value >= 80:
		return "Extreme Greed"
	case value >= 60:
		return "Greed"
	case value >= 40:
		return "Neutral"
	case value >= 25:
		return "Fear"
	default:
		return "Extreme Fear"
	}
}
