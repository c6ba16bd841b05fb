package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	transactionsSeen *prometheus.CounterVec
	duplicates       *prometheus.CounterVec
	movements        *prometheus.CounterVec
	signals          *prometheus.CounterVec
	orders           *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		transactionsSeen: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaletrail_transactions_seen_total",
				Help: "Total number of transactions received per ingestion source",
			},
			[]string{"source"},
		),
		duplicates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaletrail_duplicate_signatures_total",
				Help: "Transactions suppressed by signature deduplication",
			},
			[]string{"source"},
		),
		movements: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaletrail_whale_movements_total",
				Help: "Classified whale movements by venue and direction",
			},
			[]string{"venue", "direction"},
		),
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaletrail_trade_signals_total",
				Help: "Trade signals emitted by the strategy engine",
			},
			[]string{"token"},
		),
		orders: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaletrail_orders_total",
				Help: "Order execution outcomes by terminal status",
			},
			[]string{"status"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaletrail_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "whaletrail_last_price",
				Help: "Last observed price for a token",
			},
			[]string{"token"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "whaletrail_operation_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTransactionSeen counts a transaction delivered by a source.
func (r *Recorder) RecordTransactionSeen(source string) {
	r.transactionsSeen.WithLabelValues(source).Inc()
}

// RecordDuplicate counts a signature suppressed by deduplication.
func (r *Recorder) RecordDuplicate(source string) {
	r.duplicates.WithLabelValues(source).Inc()
}

// RecordMovement counts a classified whale movement.
func (r *Recorder) RecordMovement(venue, direction string) {
	r.movements.WithLabelValues(venue, direction).Inc()
}

// RecordSignal counts an emitted trade signal.
func (r *Recorder) RecordSignal(token string) {
	r.signals.WithLabelValues(token).Inc()
}

// RecordOrder counts an order outcome.
func (r *Recorder) RecordOrder(status string) {
	r.orders.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last observed price for a token.
func (r *Recorder) RecordLastPrice(token string, price float64) {
	r.lastPrice.WithLabelValues(token).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
