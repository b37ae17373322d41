package metrics

import "github.com/prometheus/client_golang/prometheus"

// PolicyMetrics counts authorization decisions.
type PolicyMetrics struct {
	decisions *prometheus.CounterVec
}

func NewPolicyMetrics(reg prometheus.Registerer) *PolicyMetrics {
	if reg == nil {
		return &PolicyMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policy_decisions_total",
		Help: "Authorization policy decisions by table, operation and outcome.",
	}, []string{"table", "operation", "outcome"})
	reg.MustRegister(decisions)
	return &PolicyMetrics{decisions: decisions}
}

// ObserveDecision satisfies policy.Observer.
func (m *PolicyMetrics) ObserveDecision(table, operation string, allowed bool) {
	if m == nil || m.decisions == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues(normalizeLabel(table), normalizeLabel(operation), outcome).Inc()
}
