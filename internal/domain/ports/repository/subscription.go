package repository

import (
	"context"

	"chantierpro-billing/internal/domain/model"
)

// SubscriptionRepository persists one SubscriptionRecord per tenant.
type SubscriptionRepository interface {
	FindByTenant(ctx context.Context, tx Tx, tenantID string) (*model.SubscriptionRecord, error)
	FindByCustomerID(ctx context.Context, tx Tx, customerID string) (*model.SubscriptionRecord, error)
	FindBySubscriptionID(ctx context.Context, tx Tx, subscriptionID string) (*model.SubscriptionRecord, error)
	// Upsert writes the record keyed on tenant id; it never creates a second
	// row for the same tenant.
	Upsert(ctx context.Context, tx Tx, rec *model.SubscriptionRecord) error
	// SetCustomerIDIfEmpty atomically claims the customer id slot. It reports
	// false when another writer already set one (first write wins).
	SetCustomerIDIfEmpty(ctx context.Context, tx Tx, tenantID, customerID string) (bool, error)
	// MarkPastDueBySubscription flips status to past_due for the record owning
	// the given provider subscription id.
	MarkPastDueBySubscription(ctx context.Context, tx Tx, subscriptionID string) error
}
