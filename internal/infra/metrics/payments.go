package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		invoicePaymentsTotal,
		invoiceRevenueTotal,
		commissionChargedTotal,
		intentsReopenedTotal,
	)
}

var (
	invoicePaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_payments_total",
			Help: "Invoice payment-link payments by outcome (settled/partial).",
		},
		[]string{"outcome"},
	)

	invoiceRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoice_revenue_minor_units_total",
			Help: "Total pre-fee value of reconciled invoice payments, in minor units.",
		},
	)

	commissionChargedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_charges_total",
			Help: "Computed checkout charges by commission model.",
		},
		[]string{"model"},
	)

	intentsReopenedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoice_intents_reopened_total",
			Help: "Stale processing intents swept back to unpaid.",
		},
	)
)

func IncInvoicePayment(outcome string) {
	invoicePaymentsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddInvoiceRevenue(amount int64) {
	invoiceRevenueTotal.Add(float64(amount))
}

func IncCommissionCharge(model string) {
	commissionChargedTotal.WithLabelValues(norm(model)).Inc()
}

func IncIntentsReopened(n int) {
	intentsReopenedTotal.Add(float64(n))
}
