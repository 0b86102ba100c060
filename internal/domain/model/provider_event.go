package model

import "time"

// ProviderEventType is the provider-neutral classification of a webhook event.
// The gateway adapter translates raw provider payloads into these; nothing
// downstream of the adapter touches provider-native types.
type ProviderEventType string

const (
	EventCheckoutCompleted    ProviderEventType = "checkout_completed"
	EventSubscriptionUpdated  ProviderEventType = "subscription_updated"
	EventSubscriptionDeleted  ProviderEventType = "subscription_deleted"
	EventInvoicePaymentFailed ProviderEventType = "invoice_payment_failed"
	EventUnknown              ProviderEventType = "unknown"
)

type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

// ProviderEvent is one webhook delivery after signature verification and
// translation. Exactly one of the payload fields matching Type is set.
type ProviderEvent struct {
	ID      string // provider event id, used for replay detection
	Type    ProviderEventType
	RawType string // original provider event name, for logging

	Checkout     *CheckoutCompleted
	Subscription *SubscriptionState
}

// CheckoutCompleted carries the fields of a completed checkout session. For
// payment mode the metadata binds it back to an invoice; for subscription mode
// it carries the plan chosen at session creation.
type CheckoutCompleted struct {
	Mode           CheckoutMode
	SessionID      string
	CustomerID     string
	SubscriptionID string // subscription mode only

	TenantID string

	// payment mode
	InvoiceID  string
	Token      string
	BaseAmount int64 // original pre-fee amount from session metadata

	// subscription mode
	PlanID      string
	Interval    BillingInterval
	TrialActive bool
}

// SubscriptionState mirrors the provider's view of a subscription. The event
// payload is authoritative; local records never override it.
type SubscriptionState struct {
	SubscriptionID    string
	CustomerID        string
	TenantID          string // from metadata when present; resolved via customer id otherwise
	PriceID           string
	Interval          BillingInterval
	Status            SubscriptionStatus
	CurrentPeriodEnd  *time.Time
	TrialEnd          *time.Time
	CancelAtPeriodEnd bool
}
