package payment

import (
	"context"
	"fmt"
	"sync"

	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*NoopPaymentProvider)(nil)

// NoopPaymentProvider is a simple in-memory provider for dev runs and tests.
type NoopPaymentProvider struct {
	mu  sync.Mutex
	seq int64
}

func NewNoopPaymentProvider() *NoopPaymentProvider {
	return &NoopPaymentProvider{}
}

func (g *NoopPaymentProvider) Name() string { return "noop" }

func (g *NoopPaymentProvider) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *NoopPaymentProvider) CreateCustomer(ctx context.Context, tenantID, email, companyName string) (string, error) {
	return g.next("cus-noop"), nil
}

func (g *NoopPaymentProvider) CreateInvoiceCheckout(ctx context.Context, req adapter.InvoiceCheckoutRequest) (*adapter.CheckoutSession, error) {
	id := g.next("cs-noop")
	return &adapter.CheckoutSession{ID: id, URL: "https://example.test/pay/" + id}, nil
}

func (g *NoopPaymentProvider) CreateSubscriptionCheckout(ctx context.Context, req adapter.SubscriptionCheckoutRequest) (*adapter.CheckoutSession, error) {
	id := g.next("cs-noop")
	return &adapter.CheckoutSession{ID: id, URL: "https://example.test/subscribe/" + id}, nil
}

func (g *NoopPaymentProvider) PortalURL(ctx context.Context, customerID string) (string, error) {
	return "https://example.test/portal/" + customerID, nil
}

func (g *NoopPaymentProvider) ParseWebhook(payload []byte, signature string) (*model.ProviderEvent, error) {
	return &model.ProviderEvent{ID: g.next("evt-noop"), Type: model.EventUnknown, RawType: "noop"}, nil
}
