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

var _ repository.TenantRepository = (*tenantRepo)(nil)

type tenantRepo struct{ pool *pgxpool.Pool }

func NewTenantRepo(pool *pgxpool.Pool) *tenantRepo {
	return &tenantRepo{pool: pool}
}

func (r *tenantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.TenantProfile, error) {
	const q = `SELECT id, company_name, email, commission_model, payments_enabled, created_at FROM tenants WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	t := &model.TenantProfile{}
	if err := row.Scan(&t.ID, &t.CompanyName, &t.Email, &t.CommissionModel, &t.PaymentsEnabled, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func (r *tenantRepo) Save(ctx context.Context, tx repository.Tx, t *model.TenantProfile) error {
	const q = `
INSERT INTO tenants (id, company_name, email, commission_model, payments_enabled, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  company_name=$2, email=$3, commission_model=$4, payments_enabled=$5;`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.CompanyName, t.Email, t.CommissionModel, t.PaymentsEnabled, t.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
