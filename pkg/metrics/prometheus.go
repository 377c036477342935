package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the pipeline's Prometheus instruments.
type Recorder struct {
	scansTotal       *prometheus.CounterVec
	anomaliesTotal   *prometheus.CounterVec
	signalsTotal     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	opportunityGauge *prometheus.GaugeVec
	strGauge         *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omniscient_scans_total",
				Help: "Total number of watchlist scans completed",
			},
			[]string{"status"},
		),
		anomaliesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omniscient_anomalies_total",
				Help: "Total number of anomalies detected",
			},
			[]string{"type", "severity"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omniscient_signals_total",
				Help: "Total number of market signals emitted",
			},
			[]string{"level"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omniscient_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		opportunityGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omniscient_opportunity_score",
				Help: "Latest opportunity score per keyword",
			},
			[]string{"keyword"},
		),
		strGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omniscient_sell_through_rate",
				Help: "Latest sell-through rate per keyword",
			},
			[]string{"keyword"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omniscient_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan records a completed keyword scan with its outcome status.
func (r *Recorder) RecordScan(status string) {
	r.scansTotal.WithLabelValues(status).Inc()
}

// RecordAnomaly records a detected anomaly.
func (r *Recorder) RecordAnomaly(anomalyType, severity string) {
	r.anomaliesTotal.WithLabelValues(anomalyType, severity).Inc()
}

// RecordSignal records an emitted market signal.
func (r *Recorder) RecordSignal(level string) {
	r.signalsTotal.WithLabelValues(level).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordOpportunity records the latest composite score for a keyword.
func (r *Recorder) RecordOpportunity(keyword string, score float64) {
	r.opportunityGauge.WithLabelValues(keyword).Set(score)
}

// RecordSellThroughRate records the latest observed rate for a keyword.
func (r *Recorder) RecordSellThroughRate(keyword string, rate float64) {
	r.strGauge.WithLabelValues(keyword).Set(rate)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
