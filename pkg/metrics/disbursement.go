package metrics

import "github.com/prometheus/client_golang/prometheus"

// DisbursementMetrics counts payout outcomes by reward type.
type DisbursementMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	depleted  prometheus.Counter
}

// NewDisbursementMetrics registers the payout counters on the provided registerer.
func NewDisbursementMetrics(reg prometheus.Registerer) *DisbursementMetrics {
	if reg == nil {
		return &DisbursementMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "disbursement_attempts_total",
		Help: "Disbursement attempts by reward type.",
	}, []string{"reward_type"})
	successes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "disbursement_success_total",
		Help: "Successful disbursements by reward type.",
	}, []string{"reward_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "disbursement_failure_total",
		Help: "Failed disbursements by reward type.",
	}, []string{"reward_type"})
	depleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rewards_depleted_total",
		Help: "Reward campaigns that reached depletion.",
	})
	reg.MustRegister(attempts, successes, failures, depleted)
	return &DisbursementMetrics{
		attempts:  attempts,
		successes: successes,
		failures:  failures,
		depleted:  depleted,
	}
}

// IncAttempt counts one disbursement attempt.
func (d *DisbursementMetrics) IncAttempt(rewardType string) {
	if d == nil || d.attempts == nil {
		return
	}
	d.attempts.WithLabelValues(normalizeLabel(rewardType)).Inc()
}

// IncSuccess counts one successful disbursement.
func (d *DisbursementMetrics) IncSuccess(rewardType string) {
	if d == nil || d.successes == nil {
		return
	}
	d.successes.WithLabelValues(normalizeLabel(rewardType)).Inc()
}

// IncFailure counts one terminally failed disbursement.
func (d *DisbursementMetrics) IncFailure(rewardType string) {
	if d == nil || d.failures == nil {
		return
	}
	d.failures.WithLabelValues(normalizeLabel(rewardType)).Inc()
}

// IncDepleted counts one campaign reaching depletion.
func (d *DisbursementMetrics) IncDepleted() {
	if d == nil || d.depleted == nil {
		return
	}
	d.depleted.Inc()
}
