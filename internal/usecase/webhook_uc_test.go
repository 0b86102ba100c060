//go:build !integration

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chantierpro-billing/internal/domain/model"
)

type webhookFixture struct {
	subs     *memSubRepo
	invoices *memInvoiceRepo
	tenants  *memTenantRepo
	plans    *memPlanRepo
	events   *memEventRepo
	uc       WebhookUseCase
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		subs:     newMemSubRepo(),
		invoices: newMemInvoiceRepo(),
		tenants:  newMemTenantRepo(),
		plans:    newMemPlanRepo(),
		events:   newMemEventRepo(),
	}
	logger := zerolog.Nop()
	f.uc = NewWebhookUseCase(f.subs, f.invoices, f.tenants, f.plans, f.events, nil, &logger)
	return f
}

func (f *webhookFixture) seedTenant(t *testing.T, id string) {
	t.Helper()
	tenant, err := model.NewTenantProfile(id, "Plomberie Martin", id+"@example.test")
	if err != nil {
		t.Fatalf("tenant fixture: %v", err)
	}
	tenant.PaymentsEnabled = true
	if err := f.tenants.Save(context.Background(), nil, tenant); err != nil {
		t.Fatalf("save tenant: %v", err)
	}
}

func (f *webhookFixture) seedActiveSubscription(t *testing.T, tenantID, subID, customerID string) {
	t.Helper()
	rec, err := model.NewSubscriptionRecord(tenantID)
	if err != nil {
		t.Fatalf("record fixture: %v", err)
	}
	rec.ProviderCustomerID = customerID
	rec.ProviderSubscriptionID = &subID
	rec.PlanID = "artisan"
	rec.Status = model.SubscriptionStatusActive
	rec.Interval = model.IntervalMonthly
	if err := f.subs.Upsert(context.Background(), nil, rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestWebhookInvoicePayment(t *testing.T) {
	ctx := context.Background()

	paidEvent := func(id string, amount int64) *model.ProviderEvent {
		return &model.ProviderEvent{
			ID:      id,
			Type:    model.EventCheckoutCompleted,
			RawType: "checkout.session.completed",
			Checkout: &model.CheckoutCompleted{
				Mode:       model.CheckoutModePayment,
				SessionID:  "cs_1",
				CustomerID: "cus_1",
				TenantID:   "tenant-1",
				InvoiceID:  "inv-1",
				BaseAmount: amount,
			},
		}
	}

	t.Run("settles the intent on full payment", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		intent, _ := model.NewInvoicePaymentIntent("inv-1", "tenant-1", "F-1", 10000)
		intent.Status = model.PaymentStatusProcessing
		_ = f.invoices.Save(ctx, nil, intent)

		if err := f.uc.Handle(ctx, paidEvent("evt_1", 10000)); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		got, _ := f.invoices.FindByInvoiceID(ctx, nil, "inv-1")
		if got.Status != model.PaymentStatusSucceeded {
			t.Errorf("expected status succeeded, but got %q", got.Status)
		}
		if got.AmountPaid != 10000 {
			t.Errorf("expected amount_paid 10000, got %d", got.AmountPaid)
		}
	})

	t.Run("partial payment re-opens the intent", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		intent, _ := model.NewInvoicePaymentIntent("inv-1", "tenant-1", "F-1", 10000)
		intent.Status = model.PaymentStatusProcessing
		_ = f.invoices.Save(ctx, nil, intent)

		if err := f.uc.Handle(ctx, paidEvent("evt_1", 4000)); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		got, _ := f.invoices.FindByInvoiceID(ctx, nil, "inv-1")
		if got.Status != model.PaymentStatusUnpaid {
			t.Errorf("expected status unpaid after partial, but got %q", got.Status)
		}
		if got.Remaining() != 6000 {
			t.Errorf("expected remaining 6000, got %d", got.Remaining())
		}

		// Second partial covers the rest.
		if err := f.uc.Handle(ctx, paidEvent("evt_2", 6000)); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		got, _ = f.invoices.FindByInvoiceID(ctx, nil, "inv-1")
		if got.Status != model.PaymentStatusSucceeded {
			t.Errorf("expected status succeeded, but got %q", got.Status)
		}
	})

	t.Run("replayed delivery is a no-op", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		intent, _ := model.NewInvoicePaymentIntent("inv-1", "tenant-1", "F-1", 10000)
		_ = f.invoices.Save(ctx, nil, intent)

		ev := paidEvent("evt_1", 4000)
		if err := f.uc.Handle(ctx, ev); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := f.uc.Handle(ctx, ev); err != nil {
			t.Fatalf("replay: %v", err)
		}
		got, _ := f.invoices.FindByInvoiceID(ctx, nil, "inv-1")
		if got.AmountPaid != 4000 {
			t.Errorf("expected replay not to double-apply, amount_paid=%d", got.AmountPaid)
		}
	})

	t.Run("succeeded is terminal", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		intent, _ := model.NewInvoicePaymentIntent("inv-1", "tenant-1", "F-1", 5000)
		_ = f.invoices.Save(ctx, nil, intent)

		if err := f.uc.Handle(ctx, paidEvent("evt_1", 5000)); err != nil {
			t.Fatalf("settle: %v", err)
		}
		// A distinct later event for the same invoice must not reopen it.
		if err := f.uc.Handle(ctx, paidEvent("evt_2", 5000)); err != nil {
			t.Fatalf("post-settlement event: %v", err)
		}
		got, _ := f.invoices.FindByInvoiceID(ctx, nil, "inv-1")
		if got.Status != model.PaymentStatusSucceeded {
			t.Errorf("expected succeeded to stick, got %q", got.Status)
		}
		if got.AmountPaid != 5000 {
			t.Errorf("expected amount_paid unchanged, got %d", got.AmountPaid)
		}
	})

	t.Run("unknown invoice is acked", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		if err := f.uc.Handle(ctx, paidEvent("evt_1", 4000)); err != nil {
			t.Errorf("expected unknown invoice to be acked, got %v", err)
		}
	})
}

func TestWebhookSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("checkout completed activates the plan", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		plan, _ := model.NewPlan("artisan", "Artisan", 2900, 29000, "price_m", "price_y", 14)
		_ = f.plans.Save(ctx, plan)

		err := f.uc.Handle(ctx, &model.ProviderEvent{
			ID:      "evt_1",
			Type:    model.EventCheckoutCompleted,
			RawType: "checkout.session.completed",
			Checkout: &model.CheckoutCompleted{
				Mode:           model.CheckoutModeSubscription,
				SessionID:      "cs_1",
				CustomerID:     "cus_1",
				SubscriptionID: "sub_1",
				TenantID:       "tenant-1",
				PlanID:         "artisan",
				Interval:       model.IntervalYearly,
				TrialActive:    true,
			},
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		rec, err := f.subs.FindByTenant(ctx, nil, "tenant-1")
		if err != nil {
			t.Fatalf("find record: %v", err)
		}
		if rec.Status != model.SubscriptionStatusTrialing {
			t.Errorf("expected trialing during trial, got %q", rec.Status)
		}
		if rec.PlanID != "artisan" {
			t.Errorf("expected plan artisan, got %q", rec.PlanID)
		}
		if rec.ProviderSubscriptionID == nil || *rec.ProviderSubscriptionID != "sub_1" {
			t.Error("expected provider subscription id sub_1")
		}
		if rec.Interval != model.IntervalYearly {
			t.Errorf("expected yearly interval, got %q", rec.Interval)
		}
	})

	t.Run("subscription updated overwrites local state", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		f.seedActiveSubscription(t, "tenant-1", "sub_1", "cus_1")
		plan, _ := model.NewPlan("expert", "Expert", 7900, 79000, "price_expert_m", "price_expert_y", 0)
		_ = f.plans.Save(ctx, plan)

		end := time.Now().Add(30 * 24 * time.Hour).UTC()
		err := f.uc.Handle(ctx, &model.ProviderEvent{
			ID:      "evt_1",
			Type:    model.EventSubscriptionUpdated,
			RawType: "customer.subscription.updated",
			Subscription: &model.SubscriptionState{
				SubscriptionID:    "sub_1",
				CustomerID:        "cus_1",
				TenantID:          "tenant-1",
				PriceID:           "price_expert_m",
				Interval:          model.IntervalMonthly,
				Status:            model.SubscriptionStatusActive,
				CurrentPeriodEnd:  &end,
				CancelAtPeriodEnd: true,
			},
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		rec, _ := f.subs.FindByTenant(ctx, nil, "tenant-1")
		if rec.PlanID != "expert" {
			t.Errorf("expected plan resolved from price id, got %q", rec.PlanID)
		}
		if !rec.CancelAtPeriodEnd {
			t.Error("expected cancel_at_period_end to be set")
		}
		if rec.CurrentPeriodEnd == nil || !rec.CurrentPeriodEnd.Equal(end) {
			t.Error("expected current_period_end from the event")
		}
	})

	t.Run("subscription deleted falls back to the free plan", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		f.seedActiveSubscription(t, "tenant-1", "sub_1", "cus_1")

		err := f.uc.Handle(ctx, &model.ProviderEvent{
			ID:      "evt_1",
			Type:    model.EventSubscriptionDeleted,
			RawType: "customer.subscription.deleted",
			Subscription: &model.SubscriptionState{
				SubscriptionID: "sub_1",
				CustomerID:     "cus_1",
			},
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		rec, _ := f.subs.FindByTenant(ctx, nil, "tenant-1")
		if rec.PlanID != model.FreePlanID {
			t.Errorf("expected fallback to %q, got %q", model.FreePlanID, rec.PlanID)
		}
		if rec.Status != model.SubscriptionStatusCanceled {
			t.Errorf("expected canceled, got %q", rec.Status)
		}
		if rec.ProviderSubscriptionID != nil {
			t.Error("expected provider subscription id cleared")
		}
		if rec.ProviderCustomerID != "cus_1" {
			t.Error("expected the provider customer id to survive cancellation")
		}
	})

	t.Run("redelivery after a failed handler is applied", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		f.seedActiveSubscription(t, "tenant-1", "sub_1", "cus_1")

		ev := &model.ProviderEvent{
			ID:      "evt_1",
			Type:    model.EventSubscriptionDeleted,
			RawType: "customer.subscription.deleted",
			Subscription: &model.SubscriptionState{
				SubscriptionID: "sub_1",
				CustomerID:     "cus_1",
			},
		}

		f.subs.upsertFailures = 1
		if err := f.uc.Handle(ctx, ev); err == nil {
			t.Fatal("expected the first delivery to fail")
		}
		if f.events.seen["evt_1"] {
			t.Fatal("expected no journal entry for a failed delivery")
		}

		// The provider redelivers after the 500; the cancellation must land.
		if err := f.uc.Handle(ctx, ev); err != nil {
			t.Fatalf("expected the redelivery to apply, got %v", err)
		}
		rec, _ := f.subs.FindByTenant(ctx, nil, "tenant-1")
		if rec.Status != model.SubscriptionStatusCanceled {
			t.Errorf("expected canceled after redelivery, got %q", rec.Status)
		}
		if !f.events.seen["evt_1"] {
			t.Error("expected the applied redelivery to be journaled")
		}
	})

	t.Run("payment failed flips to past_due", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedTenant(t, "tenant-1")
		f.seedActiveSubscription(t, "tenant-1", "sub_1", "cus_1")

		err := f.uc.Handle(ctx, &model.ProviderEvent{
			ID:      "evt_1",
			Type:    model.EventInvoicePaymentFailed,
			RawType: "invoice.payment_failed",
			Subscription: &model.SubscriptionState{
				SubscriptionID: "sub_1",
			},
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		rec, _ := f.subs.FindByTenant(ctx, nil, "tenant-1")
		if rec.Status != model.SubscriptionStatusPastDue {
			t.Errorf("expected past_due, got %q", rec.Status)
		}
	})

	t.Run("payment failed without a subscription id is acked", func(t *testing.T) {
		f := newWebhookFixture(t)
		err := f.uc.Handle(ctx, &model.ProviderEvent{
			ID:           "evt_1",
			Type:         model.EventInvoicePaymentFailed,
			RawType:      "invoice.payment_failed",
			Subscription: &model.SubscriptionState{},
		})
		if err != nil {
			t.Errorf("expected ack, got %v", err)
		}
	})

	t.Run("update for an unknown subscription is acked", func(t *testing.T) {
		f := newWebhookFixture(t)
		err := f.uc.Handle(ctx, &model.ProviderEvent{
			ID:      "evt_1",
			Type:    model.EventSubscriptionUpdated,
			RawType: "customer.subscription.updated",
			Subscription: &model.SubscriptionState{
				SubscriptionID: "sub_ghost",
				Status:         model.SubscriptionStatusActive,
			},
		})
		if err != nil {
			t.Errorf("expected ack, got %v", err)
		}
	})

	t.Run("unknown event type is acked without journaling", func(t *testing.T) {
		f := newWebhookFixture(t)
		err := f.uc.Handle(ctx, &model.ProviderEvent{
			ID:      "evt_1",
			Type:    model.EventUnknown,
			RawType: "customer.created",
		})
		if err != nil {
			t.Errorf("expected ack, got %v", err)
		}
		if f.events.seen["evt_1"] {
			t.Error("expected unknown events not to be journaled")
		}
	})
}
