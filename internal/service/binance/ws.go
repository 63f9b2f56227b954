package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements a CandleStream backed by the Binance combined kline
// WebSocket. One connection carries every configured (symbol, timeframe)
// pair.
type Stream struct {
	baseURL        string
	symbols        []string
	timeframes     []drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a new Binance kline stream.
func NewStream(baseURL string, symbols []string, timeframes []drepo.Timeframe, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.CandleStream {
	return &Stream{
		baseURL:        baseURL,
		symbols:        symbols,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

func (s *Stream) streamURL() string {
	names := make([]string, 0, len(s.symbols)*len(s.timeframes))
	for _, sym := range s.symbols {
		for _, tf := range s.timeframes {
			names = append(names, fmt.Sprintf("%s@kline_%s", strings.ToLower(sym), tf))
		}
	}
	return fmt.Sprintf("%s?streams=%s", s.baseURL, strings.Join(names, "/"))
}

// Connect establishes the WebSocket connection. Subscriptions are encoded in
// the combined stream URL, no separate subscribe step is needed.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("binance: connected",
		logger.Strings("symbols", s.symbols),
		logger.Int("streams", len(s.symbols)*len(s.timeframes)))
	return nil
}

type wsKline struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	IsClosed  bool   `json:"x"`
}

type wsKlineEvent struct {
	Type   string  `json:"e"`
	Symbol string  `json:"s"`
	Kline  wsKline `json:"k"`
}

type wsCombined struct {
	Stream string       `json:"stream"`
	Data   wsKlineEvent `json:"data"`
}

// Read streams candle updates and errors. Open-candle updates arrive with
// Closed=false and revise the same open_time until the closing frame. Both
// loops are bound to the connection current at call time; when the read loop
// exits the ping loop exits with it, so repeated Read calls across
// reconnects never accumulate goroutines.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles := make(chan *models.Candle, 1024)
	errs := make(chan error, 1)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	done := make(chan struct{})

	// ping loop for this connection
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(done)
		defer close(candles)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("binance conn nil")
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				var m wsCombined
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-kline frames
					continue
				}
				if m.Data.Type != "kline" {
					continue
				}
				c, err := klineToCandle(m.Data.Kline)
				if err != nil {
					s.log.Warn("binance: malformed kline", logger.Error(err))
					continue
				}
				select {
				case candles <- c:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return candles, errs
}

func klineToCandle(k wsKline) (*models.Candle, error) {
	c := &models.Candle{
		Symbol:    k.Symbol,
		Timeframe: k.Interval,
		OpenTime:  k.OpenTime,
		CloseTime: k.CloseTime,
		Closed:    k.IsClosed,
	}
	var err error
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return nil, fmt.Errorf("parse open: %w", err)
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return nil, fmt.Errorf("parse high: %w", err)
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return nil, fmt.Errorf("parse low: %w", err)
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return nil, fmt.Errorf("parse close: %w", err)
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return nil, fmt.Errorf("parse volume: %w", err)
	}
	return c, nil
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	return s.Connect(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
