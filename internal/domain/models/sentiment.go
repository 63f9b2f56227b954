package models

import "time"

// SentimentReading is a market-wide fear & greed gauge on a 0..100 scale.
type SentimentReading struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	FetchedAt      time.Time `json:"fetched_at"`
}
