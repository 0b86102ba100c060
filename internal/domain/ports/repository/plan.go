package repository

import (
	"context"

	"chantierpro-billing/internal/domain/model"
)

type PlanRepository interface {
	FindByID(ctx context.Context, id string) (*model.Plan, error)
	FindByPriceID(ctx context.Context, priceID string) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
	Save(ctx context.Context, p *model.Plan) error
}
