// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/domain/ports/repository"
	"chantierpro-billing/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// Handle applies one verified provider event to the local store. A nil
	// return acks the delivery; an error asks the provider to retry.
	Handle(ctx context.Context, ev *model.ProviderEvent) error
}

type webhookUC struct {
	subs     repository.SubscriptionRepository
	invoices repository.InvoiceRepository
	tenants  repository.TenantRepository
	plans    repository.PlanRepository
	events   repository.WebhookEventRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	tenants repository.TenantRepository,
	plans repository.PlanRepository,
	events repository.WebhookEventRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		subs:     subs,
		invoices: invoices,
		tenants:  tenants,
		plans:    plans,
		events:   events,
		tm:       tm,
		log:      logger,
	}
}

// errDuplicateDelivery aborts a transaction that lost the race to journal its
// event id, rolling the duplicate mutation back.
var errDuplicateDelivery = errors.New("event already journaled by a concurrent delivery")

func (u *webhookUC) Handle(ctx context.Context, ev *model.ProviderEvent) error {
	if ev.Type == model.EventUnknown {
		// Ack so the provider stops retrying; nothing to apply.
		u.log.Debug().Str("event", ev.RawType).Msg("ignoring unhandled event type")
		metrics.IncWebhookEvent(ev.RawType, "ignored")
		return nil
	}

	// At-least-once deliveries. The journal entry is written in the same
	// transaction as the mutation and only after the handler succeeds: a
	// failed handler leaves no entry, so the provider's redelivery is applied
	// instead of being swallowed as a replay.
	var replayed bool
	err := u.inTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		seen, err := u.events.Processed(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			replayed = true
			return nil
		}
		if err := u.apply(ctx, tx, ev); err != nil {
			return err
		}
		fresh, err := u.events.MarkProcessed(ctx, tx, ev.ID, string(ev.Type))
		if err != nil {
			return err
		}
		if !fresh {
			// A concurrent delivery journaled first; discard our copy of the
			// mutation.
			replayed = true
			return errDuplicateDelivery
		}
		return nil
	})
	if err == errDuplicateDelivery {
		err = nil
	}
	if err != nil {
		u.log.Error().Err(err).Str("event", ev.RawType).Str("event_id", ev.ID).Msg("webhook handler failed")
		metrics.IncWebhookEvent(ev.RawType, "failed")
		return err
	}
	if replayed {
		metrics.IncWebhookEvent(ev.RawType, "replayed")
		return nil
	}
	metrics.IncWebhookEvent(ev.RawType, "applied")
	return nil
}

func (u *webhookUC) apply(ctx context.Context, tx repository.Tx, ev *model.ProviderEvent) error {
	switch ev.Type {
	case model.EventCheckoutCompleted:
		return u.applyCheckoutCompleted(ctx, tx, ev.Checkout)
	case model.EventSubscriptionUpdated:
		return u.applySubscriptionUpdated(ctx, tx, ev.Subscription)
	case model.EventSubscriptionDeleted:
		return u.applySubscriptionDeleted(ctx, tx, ev.Subscription)
	case model.EventInvoicePaymentFailed:
		return u.applyPaymentFailed(ctx, tx, ev.Subscription)
	}
	return nil
}

// inTx runs fn inside a database transaction so the read-modify-write on the
// subscription record holds a row lock against concurrent deliveries and the
// journal write commits or rolls back with the mutation.
func (u *webhookUC) inTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if u.tm == nil {
		return fn(ctx, repository.NoTX)
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, fn)
}

func (u *webhookUC) applyCheckoutCompleted(ctx context.Context, tx repository.Tx, c *model.CheckoutCompleted) error {
	if c == nil {
		return domain.ErrInvalidArgument
	}
	if c.Mode == model.CheckoutModePayment {
		return u.applyInvoicePaid(ctx, tx, c)
	}
	return u.applySubscriptionCheckout(ctx, tx, c)
}

func (u *webhookUC) applySubscriptionCheckout(ctx context.Context, tx repository.Tx, c *model.CheckoutCompleted) error {
	// Subscription mode requires a subscription id in the event.
	if c.SubscriptionID == "" {
		u.log.Warn().Str("session", c.SessionID).Msg("subscription checkout without subscription id, skipping")
		return nil
	}
	// Metadata identifiers are externally supplied; validate against the
	// store before use.
	if _, err := u.tenants.FindByID(ctx, tx, c.TenantID); err != nil {
		u.log.Warn().Str("tenant_id", c.TenantID).Msg("checkout for unknown tenant, skipping")
		return nil
	}

	rec, err := u.subs.FindByTenant(ctx, tx, c.TenantID)
	if err == domain.ErrNotFound {
		rec, err = model.NewSubscriptionRecord(c.TenantID)
	}
	if err != nil {
		return err
	}

	now := time.Now()
	rec.ProviderCustomerID = c.CustomerID
	subID := c.SubscriptionID
	rec.ProviderSubscriptionID = &subID
	rec.PlanID = c.PlanID
	rec.Interval = c.Interval
	rec.CancelAtPeriodEnd = false
	if c.TrialActive {
		rec.Status = model.SubscriptionStatusTrialing
	} else {
		rec.Status = model.SubscriptionStatusActive
	}
	if plan, perr := u.plans.FindByID(ctx, c.PlanID); perr == nil {
		if priceID, perr := plan.PriceID(c.Interval); perr == nil {
			rec.ProviderPriceID = &priceID
		}
	}
	rec.UpdatedAt = now
	// Period/trial ends arrive with the subscription.updated event that
	// follows; the checkout session itself does not carry them.
	return u.subs.Upsert(ctx, tx, rec)
}

func (u *webhookUC) applyInvoicePaid(ctx context.Context, tx repository.Tx, c *model.CheckoutCompleted) error {
	if c.InvoiceID == "" || c.BaseAmount <= 0 {
		u.log.Warn().Str("session", c.SessionID).Msg("payment checkout without invoice metadata, skipping")
		return nil
	}
	// Existence check before mutation; metadata is untrusted.
	if _, err := u.invoices.FindByInvoiceID(ctx, tx, c.InvoiceID); err != nil {
		if err == domain.ErrNotFound {
			u.log.Warn().Str("invoice_id", c.InvoiceID).Msg("payment for unknown invoice, skipping")
			return nil
		}
		return err
	}

	intent, err := u.invoices.ApplyPayment(ctx, tx, c.InvoiceID, c.BaseAmount)
	if err != nil {
		if err == domain.ErrAlreadyPaid {
			// Replay after settlement; nothing to do.
			return nil
		}
		return err
	}

	outcome := "partial"
	if intent.Status == model.PaymentStatusSucceeded {
		outcome = "settled"
	}
	metrics.IncInvoicePayment(outcome)
	metrics.AddInvoiceRevenue(c.BaseAmount)
	u.log.Info().
		Str("invoice_id", c.InvoiceID).
		Int64("amount", c.BaseAmount).
		Int64("amount_paid", intent.AmountPaid).
		Str("status", string(intent.Status)).
		Msg("invoice payment reconciled")
	return nil
}

// applySubscriptionUpdated overwrites the local record from the event; the
// provider payload is authoritative.
func (u *webhookUC) applySubscriptionUpdated(ctx context.Context, tx repository.Tx, s *model.SubscriptionState) error {
	if s == nil || s.SubscriptionID == "" {
		return domain.ErrInvalidArgument
	}
	rec, err := u.findRecord(ctx, tx, s)
	if err == domain.ErrNotFound {
		u.log.Warn().Str("subscription_id", s.SubscriptionID).Msg("update for unknown subscription, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	subID := s.SubscriptionID
	rec.ProviderSubscriptionID = &subID
	if s.PriceID != "" {
		priceID := s.PriceID
		rec.ProviderPriceID = &priceID
		if plan, perr := u.plans.FindByPriceID(ctx, s.PriceID); perr == nil {
			rec.PlanID = plan.ID
		}
	}
	rec.Status = s.Status
	if s.Interval != "" {
		rec.Interval = s.Interval
	}
	rec.CurrentPeriodEnd = s.CurrentPeriodEnd
	rec.TrialEnd = s.TrialEnd
	rec.CancelAtPeriodEnd = s.CancelAtPeriodEnd
	if rec.Status == model.SubscriptionStatusCanceled {
		// Terminal for this subscription instance.
		rec.Cancel()
	}
	rec.UpdatedAt = time.Now()
	return u.subs.Upsert(ctx, tx, rec)
}

func (u *webhookUC) applySubscriptionDeleted(ctx context.Context, tx repository.Tx, s *model.SubscriptionState) error {
	if s == nil || s.SubscriptionID == "" {
		return domain.ErrInvalidArgument
	}
	rec, err := u.findRecord(ctx, tx, s)
	if err == domain.ErrNotFound {
		u.log.Warn().Str("subscription_id", s.SubscriptionID).Msg("delete for unknown subscription, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	rec.Cancel()
	return u.subs.Upsert(ctx, tx, rec)
}

func (u *webhookUC) applyPaymentFailed(ctx context.Context, tx repository.Tx, s *model.SubscriptionState) error {
	if s == nil || s.SubscriptionID == "" {
		// Invoice not tied to a subscription; nothing to transition.
		return nil
	}
	return u.subs.MarkPastDueBySubscription(ctx, tx, s.SubscriptionID)
}

// findRecord resolves the local record for an event, preferring the metadata
// tenant id and falling back to provider identifiers.
func (u *webhookUC) findRecord(ctx context.Context, tx repository.Tx, s *model.SubscriptionState) (*model.SubscriptionRecord, error) {
	if s.TenantID != "" {
		if rec, err := u.subs.FindByTenant(ctx, tx, s.TenantID); err == nil {
			return rec, nil
		} else if err != domain.ErrNotFound {
			return nil, err
		}
	}
	if rec, err := u.subs.FindBySubscriptionID(ctx, tx, s.SubscriptionID); err == nil {
		return rec, nil
	} else if err != domain.ErrNotFound {
		return nil, err
	}
	if s.CustomerID != "" {
		return u.subs.FindByCustomerID(ctx, tx, s.CustomerID)
	}
	return nil, domain.ErrNotFound
}
