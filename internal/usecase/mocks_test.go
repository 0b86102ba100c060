//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/domain/ports/adapter"
	"chantierpro-billing/internal/domain/ports/repository"
)

// memSubRepo is a small in-memory implementation used by unit tests.
type memSubRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SubscriptionRecord // by tenant id

	// upsertFailures makes the next N Upsert calls fail, simulating a store
	// outage.
	upsertFailures int
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.SubscriptionRecord)}
}

func (m *memSubRepo) FindByTenant(ctx context.Context, tx repository.Tx, tenantID string) (*model.SubscriptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.store[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memSubRepo) FindByCustomerID(ctx context.Context, tx repository.Tx, customerID string) (*model.SubscriptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.store {
		if rec.ProviderCustomerID == customerID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) FindBySubscriptionID(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.SubscriptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.store {
		if rec.ProviderSubscriptionID != nil && *rec.ProviderSubscriptionID == subscriptionID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) Upsert(ctx context.Context, tx repository.Tx, rec *model.SubscriptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertFailures > 0 {
		m.upsertFailures--
		return domain.ErrOperationFailed
	}
	cp := *rec
	m.store[rec.TenantID] = &cp
	return nil
}

func (m *memSubRepo) SetCustomerIDIfEmpty(ctx context.Context, tx repository.Tx, tenantID, customerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[tenantID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if rec.ProviderCustomerID != "" {
		return false, nil
	}
	rec.ProviderCustomerID = customerID
	return true, nil
}

func (m *memSubRepo) MarkPastDueBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.store {
		if rec.ProviderSubscriptionID != nil && *rec.ProviderSubscriptionID == subscriptionID {
			rec.Status = model.SubscriptionStatusPastDue
			rec.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

// memInvoiceRepo mirrors the conditional-update semantics of the Postgres
// implementation: succeeded is terminal.
type memInvoiceRepo struct {
	mu    sync.RWMutex
	store map[string]*model.InvoicePaymentIntent // by invoice id
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{store: make(map[string]*model.InvoicePaymentIntent)}
}

func (m *memInvoiceRepo) Save(ctx context.Context, tx repository.Tx, intent *model.InvoicePaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *intent
	m.store[intent.InvoiceID] = &cp
	return nil
}

func (m *memInvoiceRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.InvoicePaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.store {
		if it.Token == token {
			cp := *it
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memInvoiceRepo) FindByInvoiceID(ctx context.Context, tx repository.Tx, invoiceID string) (*model.InvoicePaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.store[invoiceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memInvoiceRepo) MarkProcessing(ctx context.Context, tx repository.Tx, invoiceID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.store[invoiceID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if it.Status == model.PaymentStatusSucceeded {
		return false, nil
	}
	it.Status = model.PaymentStatusProcessing
	it.CheckoutSessionID = &sessionID
	it.UpdatedAt = time.Now()
	return true, nil
}

func (m *memInvoiceRepo) ApplyPayment(ctx context.Context, tx repository.Tx, invoiceID string, amount int64) (*model.InvoicePaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.store[invoiceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if it.Status == model.PaymentStatusSucceeded {
		return nil, domain.ErrAlreadyPaid
	}
	it.AmountPaid += amount
	if it.AmountPaid >= it.TotalDue {
		it.Status = model.PaymentStatusSucceeded
	} else {
		it.Status = model.PaymentStatusUnpaid
	}
	it.UpdatedAt = time.Now()
	cp := *it
	return &cp, nil
}

func (m *memInvoiceRepo) ListProcessingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.InvoicePaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.InvoicePaymentIntent
	for _, it := range m.store {
		if it.Status == model.PaymentStatusProcessing && it.UpdatedAt.Before(olderThan) {
			cp := *it
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memInvoiceRepo) MarkUnpaidIfProcessing(ctx context.Context, tx repository.Tx, invoiceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.store[invoiceID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if it.Status != model.PaymentStatusProcessing {
		return false, nil
	}
	it.Status = model.PaymentStatusUnpaid
	it.UpdatedAt = time.Now()
	return true, nil
}

type memTenantRepo struct {
	mu    sync.RWMutex
	store map[string]*model.TenantProfile
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{store: make(map[string]*model.TenantProfile)}
}

func (m *memTenantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.TenantProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTenantRepo) Save(ctx context.Context, tx repository.Tx, t *model.TenantProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) FindByPriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.PriceMonthlyID == priceID || p.PriceYearlyID == priceID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPlanRepo) List(ctx context.Context) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Plan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPlanRepo) Save(ctx context.Context, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

// memEventRepo journals event ids like the Postgres ON CONFLICT DO NOTHING.
type memEventRepo struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{seen: make(map[string]bool)}
}

func (m *memEventRepo) Processed(ctx context.Context, tx repository.Tx, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[eventID], nil
}

func (m *memEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, eventID, eventType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

// mockGateway records provider calls and hands out deterministic ids.
type mockGateway struct {
	mu sync.Mutex

	customersCreated int
	invoiceSessions  []adapter.InvoiceCheckoutRequest
	subSessions      []adapter.SubscriptionCheckoutRequest

	createCustomerErr error
	checkoutErr       error
}

func newMockGateway() *mockGateway { return &mockGateway{} }

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreateCustomer(ctx context.Context, tenantID, email, companyName string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createCustomerErr != nil {
		return "", g.createCustomerErr
	}
	g.customersCreated++
	return fmt.Sprintf("cus_mock_%d", g.customersCreated), nil
}

func (g *mockGateway) CreateInvoiceCheckout(ctx context.Context, req adapter.InvoiceCheckoutRequest) (*adapter.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.checkoutErr != nil {
		return nil, g.checkoutErr
	}
	g.invoiceSessions = append(g.invoiceSessions, req)
	id := fmt.Sprintf("cs_mock_%d", len(g.invoiceSessions))
	return &adapter.CheckoutSession{ID: id, URL: "https://checkout.example.test/" + id}, nil
}

func (g *mockGateway) CreateSubscriptionCheckout(ctx context.Context, req adapter.SubscriptionCheckoutRequest) (*adapter.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.checkoutErr != nil {
		return nil, g.checkoutErr
	}
	g.subSessions = append(g.subSessions, req)
	id := fmt.Sprintf("cs_sub_mock_%d", len(g.subSessions))
	return &adapter.CheckoutSession{ID: id, URL: "https://checkout.example.test/" + id}, nil
}

func (g *mockGateway) PortalURL(ctx context.Context, customerID string) (string, error) {
	return "https://portal.example.test/" + customerID, nil
}

func (g *mockGateway) ParseWebhook(payload []byte, signature string) (*model.ProviderEvent, error) {
	return nil, domain.ErrSignatureInvalid
}

// mockLocker always grants the lock.
type mockLocker struct{ unavailable bool }

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.unavailable {
		return "", domain.ErrLockUnavailable
	}
	return "tok", nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error { return nil }
