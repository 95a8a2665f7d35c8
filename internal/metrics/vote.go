package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoteMetrics counts vote changes. Idempotent repeats are counted as
// "unchanged" so they stay visible.
type VoteMetrics struct {
	Votes *prometheus.CounterVec
}

// NewVoteMetrics creates and registers vote metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote and unvote requests, by action and whether the score changed.",
		}, []string{"action", "result"}),
	}

	reg.MustRegister(m.Votes)
	return m
}

// ObserveVote records one vote or unvote. Safe on a nil receiver.
func (m *VoteMetrics) ObserveVote(action string, changed bool) {
	if m == nil {
		return
	}
	result := "unchanged"
	if changed {
		result = "changed"
	}
	m.Votes.WithLabelValues(action, result).Inc()
}
