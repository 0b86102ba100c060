package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutSessionsTotal,
		providerCallsTotal,
	)
}

var (
	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout sessions created, by mode (invoice/subscription) and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Outbound payment-provider calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
)

func IncCheckoutSession(mode, outcome string) {
	checkoutSessionsTotal.WithLabelValues(norm(mode), norm(outcome)).Inc()
}

func IncProviderCall(op, outcome string) {
	providerCallsTotal.WithLabelValues(norm(op), norm(outcome)).Inc()
}
