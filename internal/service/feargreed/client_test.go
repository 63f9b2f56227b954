package feargreed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xhttp "MarketPulse/pkg/http"
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

func newTestClient(t *testing.T, url, apiKey string) *Client {
	t.Helper()
	c := New(url, apiKey, xhttp.NewClient(), testLogger(t)).(*Client)
	c.delays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	return c
}

func TestLatestParsesReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-CMC_PRO_API_KEY"); got != "secret" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"value":71,"value_classification":"Greed"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "secret")
	reading, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if reading.Value != 71 || reading.Classification != "Greed" {
		t.Fatalf("unexpected reading %+v", reading)
	}
	if reading.FetchedAt.IsZero() {
		t.Fatal("FetchedAt must be set")
	}
}

func TestLatestClassifiesWhenLabelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"value":12}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	reading, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if reading.Classification != "Extreme Fear" {
		t.Fatalf("classification = %q, want Extreme Fear", reading.Classification)
	}
}

func TestLatestRetriesTransientFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"value":44,"value_classification":"Fear"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	reading, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if reading.Value != 44 {
		t.Fatalf("value = %d, want 44", reading.Value)
	}
}

func TestLatestExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	if _, err := c.Latest(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestClassifyBuckets(t *testing.T) {
	cases := []struct {
		value int
		want  string
	}{
		{95, "Extreme Greed"},
		{80, "Extreme Greed"},
		{60, "Greed"},
		{40, "Neutral"},
		{25, "Fear"},
		{24, "Extreme Fear"},
		{0, "Extreme Fear"},
	}
	for _, tc := range cases {
		if got := Classify(tc.value); got != tc.want {
			t.Errorf("Classify(%d) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
