package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
)

// RestClient implements CandleBackfiller over the Binance REST API.
type RestClient struct {
	baseURL string
	client  *xhttp.Client
}

// NewRestClient creates a REST backfill client.
func NewRestClient(baseURL string, client *xhttp.Client) drepo.CandleBackfiller {
	return &RestClient{baseURL: baseURL, client: client}
}

// GetKlines fetches up to limit most recent klines for one pair. The last
// row may be the still-open candle; it is returned with Closed=false so the
// caller can decide whether to persist it.
func (r *RestClient) GetKlines(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]*models.Candle, error) {
	var rows [][]json.RawMessage
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    r.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(tf)},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, tf, err)
	}

	candles := make([]*models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := rowToCandle(symbol, tf, row)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s %s: %w", symbol, tf, err)
		}
		candles = append(candles, c)
	}
	// Rows arrive oldest first. A row whose close time is still in the
	// future is the open candle and stays Closed=false.
	nowMs := time.Now().UnixMilli()
	for _, c := range candles {
		c.Closed = c.CloseTime <= nowMs
	}
	return candles, nil
}

// kline rows are positional arrays mixing integers and quoted decimals:
// [openTime, open, high, low, close, volume, closeTime, ...]
func rowToCandle(symbol string, tf drepo.Timeframe, row []json.RawMessage) (*models.Candle, error) {
	if len(row) < 7 {
		return nil, fmt.Errorf("short kline row: %d fields", len(row))
	}
	c := &models.Candle{Symbol: symbol, Timeframe: string(tf)}

	if err := json.Unmarshal(row[0], &c.OpenTime); err != nil {
		return nil, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &c.CloseTime); err != nil {
		return nil, fmt.Errorf("close time: %w", err)
	}
	fields := []struct {
		idx  int
		dst  *float64
		name string
	}{
		{1, &c.Open, "open"},
		{2, &c.High, "high"},
		{3, &c.Low, "low"},
		{4, &c.Close, "close"},
		{5, &c.Volume, "volume"},
	}
	for _, f := range fields {
		var s string
		if err := json.Unmarshal(row[f.idx], &s); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return c, nil
}
