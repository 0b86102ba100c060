package model

import (
	"time"

	"chantierpro-billing/internal/domain"
)

// TenantProfile is the billing-relevant slice of an artisan account: who to
// bill, whether the tenant collects payments online, and which commission
// model applies to their payment links.
type TenantProfile struct {
	ID              string
	CompanyName     string
	Email           string
	CommissionModel CommissionModel
	PaymentsEnabled bool
	CreatedAt       time.Time
}

func NewTenantProfile(id, companyName, email string) (*TenantProfile, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &TenantProfile{
		ID:              id,
		CompanyName:     companyName,
		Email:           email,
		CommissionModel: CommissionArtisan,
		CreatedAt:       time.Now(),
	}, nil
}
