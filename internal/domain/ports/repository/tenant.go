package repository

import (
	"context"

	"chantierpro-billing/internal/domain/model"
)

type TenantRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.TenantProfile, error)
	Save(ctx context.Context, tx Tx, t *model.TenantProfile) error
}
