package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionCols = `tenant_id, provider_customer_id, provider_subscription_id, provider_price_id, plan_id, status, billing_interval, current_period_end, trial_end, cancel_at_period_end, created_at, updated_at`

// Upsert is keyed on tenant_id; the unique key guarantees at most one record
// per tenant regardless of interleaved writers.
func (r *subscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.SubscriptionRecord) error {
	const q = `
INSERT INTO billing_subscriptions (
  tenant_id, provider_customer_id, provider_subscription_id, provider_price_id, plan_id, status, billing_interval, current_period_end, trial_end, cancel_at_period_end, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
ON CONFLICT (tenant_id) DO UPDATE SET
  provider_customer_id=$2, provider_subscription_id=$3, provider_price_id=$4, plan_id=$5, status=$6, billing_interval=$7, current_period_end=$8, trial_end=$9, cancel_at_period_end=$10, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, s.TenantID, s.ProviderCustomerID, s.ProviderSubscriptionID, s.ProviderPriceID, s.PlanID, s.Status, s.Interval, s.CurrentPeriodEnd, s.TrialEnd, s.CancelAtPeriodEnd, s.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByTenant(ctx context.Context, tx repository.Tx, tenantID string) (*model.SubscriptionRecord, error) {
	q := `SELECT ` + subscriptionCols + ` FROM billing_subscriptions WHERE tenant_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.queryOne(ctx, tx, q, tenantID)
}

func (r *subscriptionRepo) FindByCustomerID(ctx context.Context, tx repository.Tx, customerID string) (*model.SubscriptionRecord, error) {
	const q = `SELECT ` + subscriptionCols + ` FROM billing_subscriptions WHERE provider_customer_id=$1 LIMIT 1;`
	return r.queryOne(ctx, tx, q, customerID)
}

func (r *subscriptionRepo) FindBySubscriptionID(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.SubscriptionRecord, error) {
	const q = `SELECT ` + subscriptionCols + ` FROM billing_subscriptions WHERE provider_subscription_id=$1 LIMIT 1;`
	return r.queryOne(ctx, tx, q, subscriptionID)
}

// SetCustomerIDIfEmpty claims the customer-id slot; first write wins and the
// slot is immutable afterwards.
func (r *subscriptionRepo) SetCustomerIDIfEmpty(ctx context.Context, tx repository.Tx, tenantID, customerID string) (bool, error) {
	const q = `
UPDATE billing_subscriptions
   SET provider_customer_id=$2, updated_at=NOW()
 WHERE tenant_id=$1
   AND (provider_customer_id IS NULL OR provider_customer_id='');`
	cmd, err := execSQL(ctx, r.pool, tx, q, tenantID, customerID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) MarkPastDueBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) error {
	const q = `
UPDATE billing_subscriptions
   SET status='past_due', updated_at=NOW()
 WHERE provider_subscription_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.SubscriptionRecord, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	s := &model.SubscriptionRecord{}
	if err := row.Scan(&s.TenantID, &s.ProviderCustomerID, &s.ProviderSubscriptionID, &s.ProviderPriceID, &s.PlanID, &s.Status, &s.Interval, &s.CurrentPeriodEnd, &s.TrialEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
