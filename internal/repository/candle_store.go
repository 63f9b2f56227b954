package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	pkgch "MarketPulse/pkg/clickhouse"
)

// ClickHouseCandleStore implements CandleStore on ClickHouse. Dedup by
// (symbol, timeframe, open_time) is delegated to ReplacingMergeTree; reads
// use FINAL so re-inserted closed candles collapse to one row.
type ClickHouseCandleStore struct {
	client *pkgch.Client
	table  string
}

// NewClickHouseCandleStore creates the candle store.
func NewClickHouseCandleStore(client *pkgch.Client, table string) repository.CandleStore {
	return &ClickHouseCandleStore{client: client, table: table}
}

func (s *ClickHouseCandleStore) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		symbol      LowCardinality(String),
		timeframe   LowCardinality(String),
		open_time   Int64,
		close_time  Int64,
		open        Float64,
		high        Float64,
		low         Float64,
		close       Float64,
		volume      Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (symbol, timeframe, open_time)`, s.table)
	return s.client.InitSchema(ctx, []string{stmt})
}

// Store persists one closed candle. Open candles never reach the store.
func (s *ClickHouseCandleStore) Store(ctx context.Context, c *models.Candle) error {
	if !c.Closed {
		return fmt.Errorf("store %s: open candle rejected", c.Key())
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, open_time, close_time, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.client.DB().ExecContext(ctx, q,
		c.Symbol, c.Timeframe, c.OpenTime, c.CloseTime,
		c.Open, c.High, c.Low, c.Close, c.Volume,
	)
	return err
}

func (s *ClickHouseCandleStore) StoreBatch(ctx context.Context, candles []*models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, c := range candles[start:end] {
			if c == nil || !c.Closed || c.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				c.Symbol, c.Timeframe, c.OpenTime, c.CloseTime,
				c.Open, c.High, c.Low, c.Close, c.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, open_time, close_time, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.client.DB().ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// GetRecentCandles returns up to count most recent closed candles, oldest
// first.
func (s *ClickHouseCandleStore) GetRecentCandles(ctx context.Context, symbol string, tf repository.Timeframe, count int) ([]models.Candle, error) {
	q := fmt.Sprintf(`SELECT symbol, timeframe, open_time, close_time, open, high, low, close, volume
		FROM %s FINAL
		WHERE symbol = ? AND timeframe = ?
		ORDER BY open_time DESC
		LIMIT ?`, s.table)
	rows, err := s.client.DB().QueryContext(ctx, q, symbol, string(tf), count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.OpenTime, &c.CloseTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		c.Closed = true
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// reverse DESC page into chronological order
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// DeleteOlderThan removes candles opened before cutoff (ms), never touching
// the minKeep most recent rows. Returns the number of rows scheduled for
// deletion.
func (s *ClickHouseCandleStore) DeleteOlderThan(ctx context.Context, symbol string, tf repository.Timeframe, cutoff int64, minKeep int) (int64, error) {
	db := s.client.DB()

	effective := cutoff
	if minKeep > 0 {
		var floor int64
		q := fmt.Sprintf(`SELECT open_time FROM %s FINAL
			WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC
			LIMIT 1 OFFSET ?`, s.table)
		err := db.QueryRowContext(ctx, q, symbol, string(tf), minKeep-1).Scan(&floor)
		switch {
		case err == sql.ErrNoRows:
			// fewer rows than minKeep, nothing is old enough to delete
			return 0, nil
		case err != nil:
			return 0, err
		}
		if floor < effective {
			effective = floor
		}
	}

	var n int64
	countQ := fmt.Sprintf("SELECT count() FROM %s FINAL WHERE symbol = ? AND timeframe = ? AND open_time < ?", s.table)
	if err := db.QueryRowContext(ctx, countQ, symbol, string(tf), effective).Scan(&n); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	delQ := fmt.Sprintf("ALTER TABLE %s DELETE WHERE symbol = ? AND timeframe = ? AND open_time < ?", s.table)
	if _, err := db.ExecContext(ctx, delQ, symbol, string(tf), effective); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *ClickHouseCandleStore) Count(ctx context.Context, symbol string, tf repository.Timeframe) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT count() FROM %s FINAL WHERE symbol = ? AND timeframe = ?", s.table)
	err := s.client.DB().QueryRowContext(ctx, q, symbol, string(tf)).Scan(&n)
	return n, err
}

func (s *ClickHouseCandleStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseCandleStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}
