package metrics

import (
	"codementor/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation groups the collectors the submission pipeline reports to.
type Evaluation struct {
	Finalized       *prometheus.CounterVec
	SandboxLatency  *prometheus.HistogramVec
	FinalizeRetries prometheus.Counter
	Reconciled      *prometheus.CounterVec
}

// NewEvaluation registers the collectors on reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewEvaluation(reg prometheus.Registerer) *Evaluation {
	m := &Evaluation{
		Finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codementor",
			Subsystem: "evaluation",
			Name:      "finalized_total",
			Help:      "Finalized submissions by mode and verdict.",
		}, []string{"mode", "status"}),
		SandboxLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codementor",
			Subsystem: "sandbox",
			Name:      "call_duration_seconds",
			Help:      "Latency of single test executions against the sandbox.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"status"}),
		FinalizeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "codementor",
			Subsystem: "evaluation",
			Name:      "finalize_retries_total",
			Help:      "Finalization attempts retried after a persistence conflict.",
		}),
		Reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codementor",
			Subsystem: "reconcile",
			Name:      "entries_total",
			Help:      "Reconciliation entries processed by outcome.",
		}, []string{"outcome"}),
	}
	// Zero-valued series for every mode and verdict, so rate queries see
	// verdicts that have not happened yet.
	for _, mode := range []model.SubmissionType{model.SubmissionTypeRun, model.SubmissionTypeSubmit} {
		for _, v := range model.AllVerdicts() {
			m.Finalized.WithLabelValues(string(mode), v.String())
		}
	}
	if reg != nil {
		reg.MustRegister(m.Finalized, m.SandboxLatency, m.FinalizeRetries, m.Reconciled)
	}
	return m
}
