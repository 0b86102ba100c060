// File: internal/infra/adapters/payment/stripe_gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/ports/adapter"
	"chantierpro-billing/internal/infra/metrics"
)

var _ adapter.PaymentProvider = (*StripeGateway)(nil)

// StripeGateway implements adapter.PaymentProvider on a dedicated client.API
// instance. No package-global key: every dependency is injected so tests can
// swap the whole gateway.
type StripeGateway struct {
	api             *client.API
	webhookSecret   string
	successURL      string
	cancelURL       string
	portalReturnURL string
}

func NewStripeGateway(apiKey, webhookSecret, successURL, cancelURL, portalReturnURL string) (*StripeGateway, error) {
	if apiKey == "" {
		return nil, errors.New("stripe api key empty")
	}
	if webhookSecret == "" {
		return nil, errors.New("stripe webhook secret empty")
	}
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeGateway{
		api:             api,
		webhookSecret:   webhookSecret,
		successURL:      successURL,
		cancelURL:       cancelURL,
		portalReturnURL: portalReturnURL,
	}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

// retry runs fn up to twice with a short backoff. Only safe because every
// resource-creating call below carries an idempotency key.
func retry(ctx context.Context, op string, fn func() error) error {
	const attempts = 2
	backoff := 500 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			metrics.IncProviderCall(op, "ok")
			return nil
		}
		if i == attempts-1 {
			break // no point backing off after the last attempt
		}
		select {
		case <-ctx.Done():
			metrics.IncProviderCall(op, "error")
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	metrics.IncProviderCall(op, "error")
	return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, op, err)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, tenantID, email, companyName string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(companyName),
	}
	params.Context = ctx
	params.Metadata = map[string]string{"tenant_id": tenantID}
	// One customer per tenant; the key makes retries converge on it.
	params.IdempotencyKey = stripe.String("customer-" + tenantID)

	var cus *stripe.Customer
	err := retry(ctx, "create_customer", func() error {
		var err error
		cus, err = g.api.Customers.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (g *StripeGateway) CreateInvoiceCheckout(ctx context.Context, req adapter.InvoiceCheckoutRequest) (*adapter.CheckoutSession, error) {
	name := "Facture " + req.InvoiceNumber
	desc := ""
	if req.Partial {
		desc = "Paiement partiel"
	}
	if req.FeeNote {
		if desc != "" {
			desc += " - "
		}
		desc += "Frais de traitement inclus"
	}

	meta := map[string]string{
		"invoice_id":    req.InvoiceID,
		"tenant_id":     req.TenantID,
		"payment_token": req.Token,
		// Pre-fee amount, needed to reconcile partial vs full payment later.
		"base_amount": fmt.Sprintf("%d", req.BaseAmount),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer: stripe.String(req.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyEUR)),
				UnitAmount: stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(name),
					Description: stripe.String(desc),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
	}
	params.Context = ctx
	params.Metadata = meta
	if req.BuyerEmail != "" && req.CustomerID == "" {
		params.CustomerEmail = stripe.String(req.BuyerEmail)
	}
	// Token + amount identify the attempt; a replay after a transient failure
	// returns the same session.
	params.IdempotencyKey = stripe.String(fmt.Sprintf("invoice-%s-%d", req.Token, req.Amount))

	var sess *stripe.CheckoutSession
	err := retry(ctx, "create_invoice_checkout", func() error {
		var err error
		sess, err = g.api.CheckoutSessions.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &adapter.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) CreateSubscriptionCheckout(ctx context.Context, req adapter.SubscriptionCheckoutRequest) (*adapter.CheckoutSession, error) {
	meta := map[string]string{
		"tenant_id": req.TenantID,
		"plan_id":   req.PlanID,
		"interval":  string(req.Interval),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(req.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
	}
	params.Context = ctx
	params.Metadata = meta
	subData := &stripe.CheckoutSessionSubscriptionDataParams{Metadata: meta}
	if req.TrialDays > 0 {
		subData.TrialPeriodDays = stripe.Int64(int64(req.TrialDays))
		meta["trial"] = "1"
	}
	params.SubscriptionData = subData
	params.IdempotencyKey = stripe.String(fmt.Sprintf("sub-%s-%s-%s", req.TenantID, req.PlanID, req.Interval))

	var sess *stripe.CheckoutSession
	err := retry(ctx, "create_subscription_checkout", func() error {
		var err error
		sess, err = g.api.CheckoutSessions.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &adapter.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) PortalURL(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.portalReturnURL),
	}
	params.Context = ctx

	var sess *stripe.BillingPortalSession
	err := retry(ctx, "portal_session", func() error {
		var err error
		sess, err = g.api.BillingPortalSessions.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
