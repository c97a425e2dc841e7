package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the orchestrator's prometheus instruments. One Metrics value
// may be shared by several orchestrator instances.
type Metrics struct {
	Iterations     prometheus.Counter
	Verdicts       *prometheus.CounterVec
	Refines        prometheus.Counter
	ForceAccepts   prometheus.Counter
	OracleFailures prometheus.Counter
	QualityScore   prometheus.Histogram
	OpenDecisions  prometheus.Gauge
}

// NewMetrics builds the instrument set and registers it when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scenariod",
			Subsystem: "orchestrator",
			Name:      "iterations_total",
			Help:      "Completed pipeline iterations.",
		}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scenariod",
			Subsystem: "orchestrator",
			Name:      "verdicts_total",
			Help:      "Validation verdicts by result.",
		}, []string{"result"}),
		Refines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scenariod",
			Subsystem: "orchestrator",
			Name:      "refine_attempts_total",
			Help:      "Draft refinement attempts after an invalid verdict.",
		}),
		ForceAccepts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scenariod",
			Subsystem: "orchestrator",
			Name:      "force_accepts_total",
			Help:      "Injects accepted despite a failing verdict after budget exhaustion.",
		}),
		OracleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scenariod",
			Subsystem: "orchestrator",
			Name:      "oracle_failures_total",
			Help:      "Oracle calls that failed after retries.",
		}),
		QualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scenariod",
			Subsystem: "orchestrator",
			Name:      "quality_score",
			Help:      "Overall quality score per accepted inject.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		OpenDecisions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scenariod",
			Subsystem: "orchestrator",
			Name:      "open_decisions",
			Help:      "Decisions currently awaiting resolution.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Iterations, m.Verdicts, m.Refines, m.ForceAccepts,
			m.OracleFailures, m.QualityScore, m.OpenDecisions,
		)
	}
	return m
}
