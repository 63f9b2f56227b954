package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	alertsSent         *prometheus.CounterVec
	alertsThrottled    *prometheus.CounterVec
	alertsConsolidated prometheus.Counter
	indicatorValue     *prometheus.GaugeVec
	lastPrice          *prometheus.GaugeVec
	errorsTotal        *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
	streamConnected    prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		alertsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_alerts_sent_total",
				Help: "Total number of alerts emitted past the throttler",
			},
			[]string{"family", "symbol"},
		),
		alertsThrottled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_alerts_throttled_total",
				Help: "Total number of alert candidates dropped by the throttler",
			},
			[]string{"reason"},
		),
		alertsConsolidated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketpulse_alerts_consolidated_total",
				Help: "Total number of alert candidates routed into consolidation",
			},
		),
		indicatorValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_oscillator_value",
				Help: "Last computed oscillator value per symbol and timeframe",
			},
			[]string{"symbol", "timeframe"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last observed live price for a symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketpulse_evaluation_cycle_duration_seconds",
				Help:    "Duration of one full evaluation cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		streamConnected: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketpulse_stream_connected",
				Help: "Whether the kline stream is currently connected (1/0)",
			},
		),
	}
}

// RecordAlertSent records an alert emitted past the throttler.
func (r *Recorder) RecordAlertSent(family, symbol string) {
	r.alertsSent.WithLabelValues(family, symbol).Inc()
}

// RecordAlertThrottled records an alert candidate dropped by the throttler.
func (r *Recorder) RecordAlertThrottled(reason string) {
	r.alertsThrottled.WithLabelValues(reason).Inc()
}

// RecordAlertConsolidated records candidates routed into consolidation.
func (r *Recorder) RecordAlertConsolidated(n int) {
	r.alertsConsolidated.Add(float64(n))
}

// RecordIndicator records the latest oscillator value.
func (r *Recorder) RecordIndicator(symbol, tf string, value float64) {
	r.indicatorValue.WithLabelValues(symbol, tf).Set(value)
}

// RecordLastPrice records the last live price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCycleDuration records one evaluation cycle's wall time.
func (r *Recorder) RecordCycleDuration(seconds float64) {
	r.cycleDuration.Observe(seconds)
}

// RecordStreamConnected flips the stream connectivity gauge.
func (r *Recorder) RecordStreamConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	r.streamConnected.Set(v)
}
