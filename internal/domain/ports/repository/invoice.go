package repository

import (
	"context"
	"time"

	"chantierpro-billing/internal/domain/model"
)

// InvoiceRepository persists Invoice Payment Intents keyed by invoice id with
// a unique public token.
type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, intent *model.InvoicePaymentIntent) error
	FindByToken(ctx context.Context, tx Tx, token string) (*model.InvoicePaymentIntent, error)
	FindByInvoiceID(ctx context.Context, tx Tx, invoiceID string) (*model.InvoicePaymentIntent, error)
	// MarkProcessing records the checkout session and moves the intent to
	// processing, overwriting a stale processing marker. It reports false when
	// the intent is already succeeded.
	MarkProcessing(ctx context.Context, tx Tx, invoiceID, sessionID string) (bool, error)
	// ApplyPayment adds a pre-fee amount to amount_paid and settles the intent
	// (succeeded) once total_due is covered; a partial payment re-opens it to
	// unpaid. Succeeded intents are never touched.
	ApplyPayment(ctx context.Context, tx Tx, invoiceID string, amount int64) (*model.InvoicePaymentIntent, error)
	// ListProcessingOlderThan returns intents stuck in processing, oldest first.
	ListProcessingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.InvoicePaymentIntent, error)
	// MarkUnpaidIfProcessing reverts a stale processing marker. Reports false
	// when the intent moved on in the meantime.
	MarkUnpaidIfProcessing(ctx context.Context, tx Tx, invoiceID string) (bool, error)
}
