// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/domain/ports/adapter"
	"chantierpro-billing/internal/domain/ports/repository"
	"chantierpro-billing/internal/infra/metrics"
)

// Locker serializes the lazy customer-creation window per tenant. Satisfied by
// the redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

type CheckoutUseCase interface {
	// InvoiceCheckout resolves a payment-link token, computes the commission
	// charge and returns the provider redirect URL. requestedAmount below the
	// remaining balance is a partial payment; nil means pay the remainder.
	InvoiceCheckout(ctx context.Context, token string, requestedAmount *int64) (string, error)
	// SubscriptionCheckout starts a recurring checkout for a paid plan.
	SubscriptionCheckout(ctx context.Context, tenantID, planID string, interval model.BillingInterval) (string, error)
	// PortalURL returns the provider-hosted self-service portal for a tenant
	// that already has a provider customer.
	PortalURL(ctx context.Context, tenantID string) (string, error)
}

type checkoutUC struct {
	subs     repository.SubscriptionRepository
	invoices repository.InvoiceRepository
	tenants  repository.TenantRepository
	plans    repository.PlanRepository
	gateway  adapter.PaymentProvider
	locker   Locker
	lockTTL  time.Duration
	log      *zerolog.Logger
}

func NewCheckoutUseCase(
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	tenants repository.TenantRepository,
	plans repository.PlanRepository,
	gateway adapter.PaymentProvider,
	locker Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *checkoutUC {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &checkoutUC{
		subs:     subs,
		invoices: invoices,
		tenants:  tenants,
		plans:    plans,
		gateway:  gateway,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      logger,
	}
}

func (u *checkoutUC) InvoiceCheckout(ctx context.Context, token string, requestedAmount *int64) (string, error) {
	intent, err := u.invoices.FindByToken(ctx, repository.NoTX, token)
	if err != nil {
		return "", err
	}
	if intent.Status == model.PaymentStatusSucceeded {
		return "", domain.ErrAlreadyPaid
	}

	tenant, err := u.tenants.FindByID(ctx, repository.NoTX, intent.TenantID)
	if err != nil {
		return "", err
	}
	if !tenant.PaymentsEnabled {
		return "", domain.ErrPaymentsDisabled
	}

	remaining := intent.Remaining()
	base := remaining
	partial := false
	if requestedAmount != nil {
		if *requestedAmount <= 0 || *requestedAmount > remaining {
			return "", domain.ErrInvalidArgument
		}
		base = *requestedAmount
		partial = base < remaining
	}

	charge, err := model.ComputeCharge(base, tenant.CommissionModel)
	if err != nil {
		return "", err
	}
	metrics.IncCommissionCharge(string(tenant.CommissionModel))

	customerID, err := u.ensureCustomer(ctx, tenant)
	if err != nil {
		metrics.IncCheckoutSession("invoice", "error")
		return "", err
	}

	sess, err := u.gateway.CreateInvoiceCheckout(ctx, adapter.InvoiceCheckoutRequest{
		CustomerID:    customerID,
		TenantID:      tenant.ID,
		InvoiceID:     intent.InvoiceID,
		InvoiceNumber: intent.InvoiceNumber,
		Token:         intent.Token,
		Amount:        charge,
		BaseAmount:    base,
		Partial:       partial,
		FeeNote:       tenant.CommissionModel.HasMarkup(),
		BuyerEmail:    tenant.Email,
	})
	if err != nil {
		metrics.IncCheckoutSession("invoice", "error")
		return "", err
	}

	// Persist processing before handing out the URL so an early webhook finds
	// a consistent prior state. A stale processing marker from an abandoned
	// session is overwritten here.
	ok, err := u.invoices.MarkProcessing(ctx, repository.NoTX, intent.InvoiceID, sess.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		// Settled concurrently between our read and this write.
		return "", domain.ErrAlreadyPaid
	}

	u.log.Info().
		Str("invoice_id", intent.InvoiceID).
		Str("tenant_id", tenant.ID).
		Int64("charge", charge).
		Bool("partial", partial).
		Msg("invoice checkout created")
	metrics.IncCheckoutSession("invoice", "ok")
	return sess.URL, nil
}

func (u *checkoutUC) SubscriptionCheckout(ctx context.Context, tenantID, planID string, interval model.BillingInterval) (string, error) {
	plan, err := u.plans.FindByID(ctx, planID)
	if err != nil {
		return "", err
	}
	if plan.IsFree() {
		return "", domain.ErrInvalidArgument
	}
	priceID, err := plan.PriceID(interval)
	if err != nil {
		return "", err
	}

	tenant, err := u.tenants.FindByID(ctx, repository.NoTX, tenantID)
	if err != nil {
		return "", err
	}

	customerID, err := u.ensureCustomer(ctx, tenant)
	if err != nil {
		metrics.IncCheckoutSession("subscription", "error")
		return "", err
	}

	// Trial only for paid tiers; the free tier never reaches this point.
	sess, err := u.gateway.CreateSubscriptionCheckout(ctx, adapter.SubscriptionCheckoutRequest{
		CustomerID: customerID,
		TenantID:   tenant.ID,
		PlanID:     plan.ID,
		Interval:   interval,
		PriceID:    priceID,
		TrialDays:  plan.TrialDays,
	})
	if err != nil {
		metrics.IncCheckoutSession("subscription", "error")
		return "", err
	}

	u.log.Info().
		Str("tenant_id", tenant.ID).
		Str("plan_id", plan.ID).
		Str("interval", string(interval)).
		Msg("subscription checkout created")
	metrics.IncCheckoutSession("subscription", "ok")
	return sess.URL, nil
}

func (u *checkoutUC) PortalURL(ctx context.Context, tenantID string) (string, error) {
	rec, err := u.subs.FindByTenant(ctx, repository.NoTX, tenantID)
	if err != nil {
		return "", err
	}
	if rec.ProviderCustomerID == "" {
		return "", domain.ErrNoProviderCustomer
	}
	return u.gateway.PortalURL(ctx, rec.ProviderCustomerID)
}

// ensureCustomer returns the tenant's provider customer id, creating both the
// customer and the initial free-tier Subscription Record on first checkout.
// "Customer exists for tenant" is derived from the persisted record only; the
// provider is never re-queried by side channel, and the provider-side
// idempotency key absorbs a crash between creation and persistence.
func (u *checkoutUC) ensureCustomer(ctx context.Context, tenant *model.TenantProfile) (string, error) {
	rec, err := u.subs.FindByTenant(ctx, repository.NoTX, tenant.ID)
	if err != nil && err != domain.ErrNotFound {
		return "", err
	}
	if rec != nil && rec.ProviderCustomerID != "" {
		return rec.ProviderCustomerID, nil
	}

	// Serialize competing checkouts racing to create the customer: first
	// write wins, the loser re-reads and reuses it. The tenant-keyed upsert
	// is the backstop if the lock cannot be acquired.
	lockKey := "billing:customer:" + tenant.ID
	if token, lockErr := u.locker.TryLock(ctx, lockKey, u.lockTTL); lockErr == nil {
		defer func() { _ = u.locker.Unlock(ctx, lockKey, token) }()
	} else {
		u.log.Warn().Str("tenant_id", tenant.ID).Msg("customer lock unavailable, relying on store")
	}

	// Re-read under the lock; a concurrent winner may have persisted already.
	rec, err = u.subs.FindByTenant(ctx, repository.NoTX, tenant.ID)
	if err != nil && err != domain.ErrNotFound {
		return "", err
	}
	if rec != nil && rec.ProviderCustomerID != "" {
		return rec.ProviderCustomerID, nil
	}

	customerID, err := u.gateway.CreateCustomer(ctx, tenant.ID, tenant.Email, tenant.CompanyName)
	if err != nil {
		return "", err
	}

	if rec == nil {
		rec, err = model.NewSubscriptionRecord(tenant.ID)
		if err != nil {
			return "", err
		}
		rec.ProviderCustomerID = customerID
		if err := u.subs.Upsert(ctx, repository.NoTX, rec); err != nil {
			return "", err
		}
		return customerID, nil
	}

	claimed, err := u.subs.SetCustomerIDIfEmpty(ctx, repository.NoTX, tenant.ID, customerID)
	if err != nil {
		return "", err
	}
	if !claimed {
		// Lost the race after all; use whatever was persisted first.
		rec, err = u.subs.FindByTenant(ctx, repository.NoTX, tenant.ID)
		if err != nil {
			return "", err
		}
		return rec.ProviderCustomerID, nil
	}
	return customerID, nil
}
