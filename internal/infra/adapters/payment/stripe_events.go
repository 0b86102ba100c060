// File: internal/infra/adapters/payment/stripe_events.go
package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/model"
)

// ParseWebhook verifies the Stripe signature against the raw body and maps the
// event into the provider-neutral shape. The provider payload is treated as an
// untrusted external message: everything downstream sees only model types.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*model.ProviderEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}
	return translateEvent(event)
}

func translateEvent(event stripe.Event) (*model.ProviderEvent, error) {
	out := &model.ProviderEvent{ID: event.ID, RawType: string(event.Type)}

	switch string(event.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session: %v", domain.ErrInvalidArgument, err)
		}
		out.Type = model.EventCheckoutCompleted
		out.Checkout = translateCheckout(&sess)

	case "customer.subscription.updated", "customer.subscription.created":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %v", domain.ErrInvalidArgument, err)
		}
		out.Type = model.EventSubscriptionUpdated
		out.Subscription = translateSubscription(&sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %v", domain.ErrInvalidArgument, err)
		}
		out.Type = model.EventSubscriptionDeleted
		out.Subscription = translateSubscription(&sub)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: decode invoice: %v", domain.ErrInvalidArgument, err)
		}
		out.Type = model.EventInvoicePaymentFailed
		sub := &model.SubscriptionState{}
		if inv.Subscription != nil {
			sub.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			sub.CustomerID = inv.Customer.ID
		}
		out.Subscription = sub

	default:
		out.Type = model.EventUnknown
	}
	return out, nil
}

func translateCheckout(sess *stripe.CheckoutSession) *model.CheckoutCompleted {
	c := &model.CheckoutCompleted{
		SessionID: sess.ID,
		TenantID:  sess.Metadata["tenant_id"],
	}
	if sess.Customer != nil {
		c.CustomerID = sess.Customer.ID
	}
	switch sess.Mode {
	case stripe.CheckoutSessionModeSubscription:
		c.Mode = model.CheckoutModeSubscription
		if sess.Subscription != nil {
			c.SubscriptionID = sess.Subscription.ID
		}
		c.PlanID = sess.Metadata["plan_id"]
		if iv, err := model.ParseInterval(sess.Metadata["interval"]); err == nil {
			c.Interval = iv
		}
		c.TrialActive = sess.Metadata["trial"] == "1"
	default:
		c.Mode = model.CheckoutModePayment
		c.InvoiceID = sess.Metadata["invoice_id"]
		c.Token = sess.Metadata["payment_token"]
		if v, err := strconv.ParseInt(sess.Metadata["base_amount"], 10, 64); err == nil {
			c.BaseAmount = v
		}
	}
	return c
}

func translateSubscription(sub *stripe.Subscription) *model.SubscriptionState {
	s := &model.SubscriptionState{
		SubscriptionID:    sub.ID,
		TenantID:          sub.Metadata["tenant_id"],
		Status:            translateStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		s.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		s.CurrentPeriodEnd = &t
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0).UTC()
		s.TrialEnd = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		price := sub.Items.Data[0].Price
		if price != nil {
			s.PriceID = price.ID
			if price.Recurring != nil {
				switch price.Recurring.Interval {
				case stripe.PriceRecurringIntervalYear:
					s.Interval = model.IntervalYearly
				case stripe.PriceRecurringIntervalMonth:
					s.Interval = model.IntervalMonthly
				}
			}
		}
	}
	return s
}

// translateStatus folds Stripe's wider status set into the local one.
func translateStatus(st stripe.SubscriptionStatus) model.SubscriptionStatus {
	switch st {
	case stripe.SubscriptionStatusTrialing:
		return model.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusActive:
		return model.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return model.SubscriptionStatusPastDue
	default:
		return model.SubscriptionStatusCanceled
	}
}
