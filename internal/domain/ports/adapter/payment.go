package adapter

import (
	"context"

	"chantierpro-billing/internal/domain/model"
)

// InvoiceCheckoutRequest describes a one-off payment-link checkout. Amount is
// what the payer is charged (commission included); BaseAmount is the original
// pre-fee amount, bound into session metadata for later reconciliation.
type InvoiceCheckoutRequest struct {
	CustomerID    string
	TenantID      string
	InvoiceID     string
	InvoiceNumber string
	Token         string
	Amount        int64
	BaseAmount    int64
	Partial       bool
	FeeNote       bool // append the processing-fee note to the line item
	BuyerEmail    string
}

// SubscriptionCheckoutRequest describes a recurring plan checkout.
type SubscriptionCheckoutRequest struct {
	CustomerID string
	TenantID   string
	PlanID     string
	Interval   model.BillingInterval
	PriceID    string
	TrialDays  int // 0 disables the trial
}

// CheckoutSession is the provider-hosted session the caller redirects to.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentProvider is the outbound boundary to the payment provider. Calls
// that create provider resources carry idempotency keys so bounded retries
// are safe.
type PaymentProvider interface {
	Name() string
	CreateCustomer(ctx context.Context, tenantID, email, companyName string) (customerID string, err error)
	CreateInvoiceCheckout(ctx context.Context, req InvoiceCheckoutRequest) (*CheckoutSession, error)
	CreateSubscriptionCheckout(ctx context.Context, req SubscriptionCheckoutRequest) (*CheckoutSession, error)
	PortalURL(ctx context.Context, customerID string) (string, error)
	// ParseWebhook verifies the provider signature against the raw body and
	// translates the payload into a provider-neutral event. Verification
	// failure returns domain.ErrSignatureInvalid and nothing else happens.
	ParseWebhook(payload []byte, signature string) (*model.ProviderEvent, error)
}
