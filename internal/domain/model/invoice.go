package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"chantierpro-billing/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid     PaymentStatus = "unpaid"
	PaymentStatusProcessing PaymentStatus = "processing" // checkout session created; awaiting webhook
	PaymentStatusSucceeded  PaymentStatus = "succeeded"  // terminal
)

// InvoicePaymentIntent tracks the lifecycle of one shareable payment link.
// Status only ever moves forward to succeeded; a stale processing marker is
// overwritten when checkout is re-initiated.
type InvoicePaymentIntent struct {
	InvoiceID         string
	TenantID          string
	InvoiceNumber     string // human-facing number, used on the checkout line item
	Token             string // unguessable public token embedded in the payment link
	TotalDue          int64  // minor units, commission excluded
	AmountPaid        int64  // accumulated pre-fee amounts
	Status            PaymentStatus
	CheckoutSessionID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInvoicePaymentIntent validates and constructs an unpaid intent with a
// fresh public token.
func NewInvoicePaymentIntent(invoiceID, tenantID, number string, totalDue int64) (*InvoicePaymentIntent, error) {
	if invoiceID == "" || tenantID == "" || totalDue <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &InvoicePaymentIntent{
		InvoiceID:     invoiceID,
		TenantID:      tenantID,
		InvoiceNumber: number,
		Token:         NewPaymentToken(),
		TotalDue:      totalDue,
		Status:        PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Remaining is the pre-fee amount still owed on the invoice.
func (i *InvoicePaymentIntent) Remaining() int64 {
	r := i.TotalDue - i.AmountPaid
	if r < 0 {
		return 0
	}
	return r
}

// NewPaymentToken mints a public payment-link token from crypto/rand entropy.
func NewPaymentToken() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
