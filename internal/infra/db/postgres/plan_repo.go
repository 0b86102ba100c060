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

var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planCols = `id, name, price_monthly, price_yearly, price_monthly_id, price_yearly_id, trial_days, created_at`

func (r *planRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE id=$1;`
	return r.queryOne(ctx, q, id)
}

func (r *planRepo) FindByPriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE price_monthly_id=$1 OR price_yearly_id=$1 LIMIT 1;`
	return r.queryOne(ctx, q, priceID)
}

func (r *planRepo) List(ctx context.Context) ([]*model.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans ORDER BY price_monthly ASC;`
	rows, err := queryRows(ctx, r.pool, nil, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p := new(model.Plan)
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceMonthly, &p.PriceYearly, &p.PriceMonthlyID, &p.PriceYearlyID, &p.TrialDays, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *planRepo) Save(ctx context.Context, p *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, price_monthly, price_yearly, price_monthly_id, price_yearly_id, trial_days, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price_monthly=$3, price_yearly=$4, price_monthly_id=$5, price_yearly_id=$6, trial_days=$7;`
	_, err := execSQL(ctx, r.pool, nil, q, p.ID, p.Name, p.PriceMonthly, p.PriceYearly, p.PriceMonthlyID, p.PriceYearlyID, p.TrialDays, p.CreatedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) queryOne(ctx context.Context, q string, args ...interface{}) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, nil, q, args...)
	if err != nil {
		return nil, err
	}
	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.Name, &p.PriceMonthly, &p.PriceYearly, &p.PriceMonthlyID, &p.PriceYearlyID, &p.TrialDays, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
