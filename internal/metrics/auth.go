package metrics

import "github.com/prometheus/client_golang/prometheus"

// Login results.
const (
	LoginNew       = "new"
	LoginReturning = "returning"
	LoginFailed    = "failed"
)

// AuthMetrics counts completed logins and billing customers created for them.
type AuthMetrics struct {
	Logins           *prometheus.CounterVec
	BillingCustomers *prometheus.CounterVec
}

// NewAuthMetrics creates and registers login metrics on the given registry.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "OAuth logins reconciled, by result (new, returning, failed).",
		}, []string{"result"}),
		BillingCustomers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "customers_created_total",
			Help:      "Billing customers requested for first-time users, by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.Logins, m.BillingCustomers)
	return m
}

// ObserveLogin records one reconciliation outcome. Safe on a nil receiver.
func (m *AuthMetrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// ObserveBillingCustomer records one customer creation attempt. Safe on a
// nil receiver.
func (m *AuthMetrics) ObserveBillingCustomer(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.BillingCustomers.WithLabelValues(status).Inc()
}
