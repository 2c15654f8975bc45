// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	EventsClassified     *prometheus.CounterVec
	ClassificationErrors *prometheus.CounterVec
	LastEventTimestamp   prometheus.Gauge
	WSReconnects         prometheus.Counter
	StreamStaleSeconds   prometheus.Gauge

	// Trading metrics
	TradesExecuted *prometheus.CounterVec
	ForcedSells    prometheus.Counter
	OpenPositions  prometheus.Gauge
	BuyingEnabled  prometheus.Gauge
	QuotesComputed *prometheus.CounterVec
	QuoteErrors    *prometheus.CounterVec

	// Arbitrage metrics
	ArbOpportunities prometheus.Counter

	// Monitoring metrics
	PriceSamples prometheus.Counter

	// Record metrics
	RecordFilesWritten *prometheus.CounterVec

	// Storage metrics
	StoreErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_copyarb"
	}

	return &Metrics{
		// Stream metrics
		EventsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_classified_total",
			Help:      "Total number of classified events by kind",
		}, []string{"kind"}),
		ClassificationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "classification_errors_total",
			Help:      "Total number of transactions that produced no event",
		}, []string{"reason"}),
		LastEventTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last classified event",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),
		StreamStaleSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "stale_seconds",
			Help:      "Seconds since the last WebSocket message",
		}),

		// Trading metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_executed_total",
			Help:      "Total number of trade attempts by side and status",
		}, []string{"side", "status"}),
		ForcedSells: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "forced_sells_total",
			Help:      "Total number of forced liquidations of timed-out positions",
		}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		BuyingEnabled: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "buying_enabled",
			Help:      "Whether new buys are admitted (1) or suspended (0)",
		}),
		QuotesComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "quotes_computed_total",
			Help:      "Total number of swap quotes computed by side",
		}, []string{"side"}),
		QuoteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "quote_errors_total",
			Help:      "Total number of rejected quotes by reason",
		}, []string{"reason"}),

		// Arbitrage metrics
		ArbOpportunities: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arbitrage",
			Name:      "opportunities_total",
			Help:      "Total number of detected arbitrage opportunities",
		}),

		// Monitoring metrics
		PriceSamples: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "price_samples_total",
			Help:      "Total number of recorded price samples",
		}),

		// Record metrics
		RecordFilesWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "files_written_total",
			Help:      "Total number of record files written by kind",
		}, []string{"kind"}),

		// Storage metrics
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of store operation errors",
		}, []string{"store", "op"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventClassified increments the classified events counter.
func RecordEventClassified(kind string) {
	DefaultMetrics.EventsClassified.WithLabelValues(kind).Inc()
}

// RecordClassificationError records a transaction that produced no event.
func RecordClassificationError(reason string) {
	DefaultMetrics.ClassificationErrors.WithLabelValues(reason).Inc()
}

// UpdateLastEvent sets the last classified event timestamp gauge.
func UpdateLastEvent(unixSeconds int64) {
	DefaultMetrics.LastEventTimestamp.Set(float64(unixSeconds))
}

// AddWSReconnects adds newly observed reconnects to the counter.
func AddWSReconnects(delta uint64) {
	DefaultMetrics.WSReconnects.Add(float64(delta))
}

// UpdateStreamStale sets the seconds-since-last-message gauge.
func UpdateStreamStale(seconds float64) {
	DefaultMetrics.StreamStaleSeconds.Set(seconds)
}

// RecordTradeExecuted records one trade attempt outcome.
func RecordTradeExecuted(side, status string) {
	DefaultMetrics.TradesExecuted.WithLabelValues(side, status).Inc()
}

// RecordForcedSell increments the forced liquidation counter.
func RecordForcedSell() {
	DefaultMetrics.ForcedSells.Inc()
}

// UpdateOpenPositions sets the open positions gauge.
func UpdateOpenPositions(n int) {
	DefaultMetrics.OpenPositions.Set(float64(n))
}

// UpdateBuyingEnabled sets the buy admission gauge.
func UpdateBuyingEnabled(enabled bool) {
	if enabled {
		DefaultMetrics.BuyingEnabled.Set(1)
	} else {
		DefaultMetrics.BuyingEnabled.Set(0)
	}
}

// RecordQuote increments the computed quotes counter.
func RecordQuote(side string) {
	DefaultMetrics.QuotesComputed.WithLabelValues(side).Inc()
}

// RecordQuoteError records a rejected quote.
func RecordQuoteError(reason string) {
	DefaultMetrics.QuoteErrors.WithLabelValues(reason).Inc()
}

// RecordArbOpportunity increments the opportunity counter.
func RecordArbOpportunity() {
	DefaultMetrics.ArbOpportunities.Inc()
}

// RecordPriceSamples adds written samples to the counter.
func RecordPriceSamples(n int) {
	DefaultMetrics.PriceSamples.Add(float64(n))
}

// RecordFileWritten increments the record files counter.
func RecordFileWritten(kind string) {
	DefaultMetrics.RecordFilesWritten.WithLabelValues(kind).Inc()
}

// RecordStoreError records a failed store operation.
func RecordStoreError(store, op string) {
	DefaultMetrics.StoreErrors.WithLabelValues(store, op).Inc()
}
