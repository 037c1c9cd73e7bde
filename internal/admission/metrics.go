package admission

import (
	"clansite/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the observability sink of the engine. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	verdicts      *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	sweepRemovals *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clansite",
			Subsystem: "admission",
			Name:      "verdicts_total",
			Help:      "Admission verdicts by reason.",
		}, []string{"reason", "fail_open"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clansite",
			Subsystem: "admission",
			Name:      "errors_total",
			Help:      "Block store failures by operation.",
		}, []string{"operation"}),
		sweepRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clansite",
			Subsystem: "admission",
			Name:      "sweep_rows_total",
			Help:      "Rows removed or deactivated by the cleanup sweep.",
		}, []string{"table"}),
	}

	if reg != nil {
		reg.MustRegister(m.verdicts, m.storeErrors, m.sweepRemovals)
	}
	return m
}

func (m *Metrics) observe(v Verdict) {
	if m == nil {
		return
	}
	failOpen := "false"
	if v.FailOpen {
		failOpen = "true"
	}
	m.verdicts.WithLabelValues(string(v.Reason), failOpen).Inc()
}

func (m *Metrics) storeError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) swept(result domain.CleanupResult) {
	if m == nil {
		return
	}
	m.sweepRemovals.WithLabelValues("request_logs").Add(float64(result.RequestLogsDeleted))
	m.sweepRemovals.WithLabelValues("ip_blocks").Add(float64(result.IPBlocksDeleted))
	m.sweepRemovals.WithLabelValues("manual_blocks").Add(float64(result.ManualBlocksDeactivated))
}
