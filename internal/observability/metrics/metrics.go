package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "platform_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	evalCycles       *prometheus.CounterVec
	evalCycleLatency *prometheus.HistogramVec
	rulesEvaluated   prometheus.Counter
	ruleFaults       prometheus.Counter

	alertsRaised     *prometheus.CounterVec
	alertsSuppressed prometheus.Counter

	publishResults *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger zerolog.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		evalCycles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "eval_cycles_total",
				Help: "Total rule evaluation cycles by result",
			},
			[]string{"result"},
		)
		evalCycleLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "eval_cycle_latency_seconds",
				Help:    "Rule evaluation cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		rulesEvaluated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "rules_evaluated_total",
				Help: "Total rules evaluated across cycles",
			},
		)
		ruleFaults = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "rule_faults_total",
				Help: "Total per-rule evaluation faults",
			},
		)

		alertsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_raised_total",
				Help: "Total alerts raised by metric type",
			},
			[]string{"type"},
		)
		alertsSuppressed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_suppressed_total",
				Help: "Total alerts suppressed by cooldown",
			},
		)

		publishResults = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_publish_total",
				Help: "Total alert publish attempts by channel and result",
			},
			[]string{"channel", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			evalCycles,
			evalCycleLatency,
			rulesEvaluated,
			ruleFaults,
			alertsRaised,
			alertsSuppressed,
			publishResults,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveEvalCycle records evaluation cycle duration and result.
func ObserveEvalCycle(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if evalCycles != nil {
		evalCycles.WithLabelValues(result).Inc()
	}
	if evalCycleLatency != nil {
		evalCycleLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddRulesEvaluated increments the evaluated rule counter by count.
func AddRulesEvaluated(count int) {
	if count <= 0 {
		return
	}
	if rulesEvaluated != nil {
		rulesEvaluated.Add(float64(count))
	}
}

// IncRuleFault increments the per-rule fault counter.
func IncRuleFault() {
	if ruleFaults != nil {
		ruleFaults.Inc()
	}
}

// IncAlertRaised increments the raised alert counter for a metric type.
func IncAlertRaised(metricType string) {
	if metricType == "" {
		metricType = "unknown"
	}
	if alertsRaised != nil {
		alertsRaised.WithLabelValues(metricType).Inc()
	}
}

// IncAlertSuppressed increments the cooldown suppression counter.
func IncAlertSuppressed() {
	if alertsSuppressed != nil {
		alertsSuppressed.Inc()
	}
}

// IncPublish increments the publish counter for a channel and result.
func IncPublish(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if publishResults != nil {
		publishResults.WithLabelValues(channel, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
