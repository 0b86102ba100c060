package model

import (
	"time"

	"chantierpro-billing/internal/domain"
)

// FreePlanID is the tier every tenant falls back to when no paid subscription
// is active.
const FreePlanID = "decouverte"

// Plan is a purchasable tier. Paid plans carry one provider price id per
// billing interval; the free tier has none.
type Plan struct {
	ID             string
	Name           string
	PriceMonthly   int64 // minor units, display only; the provider price owns the real amount
	PriceYearly    int64
	PriceMonthlyID string // provider price identifiers
	PriceYearlyID  string
	TrialDays      int
	CreatedAt      time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

func (p *Plan) IsFree() bool { return p.ID == FreePlanID }

// PriceID resolves the provider price for a billing interval.
func (p *Plan) PriceID(interval BillingInterval) (string, error) {
	switch interval {
	case IntervalMonthly:
		if p.PriceMonthlyID != "" {
			return p.PriceMonthlyID, nil
		}
	case IntervalYearly:
		if p.PriceYearlyID != "" {
			return p.PriceYearlyID, nil
		}
	}
	return "", domain.ErrInvalidArgument
}

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, priceMonthly, priceYearly int64, priceMonthlyID, priceYearlyID string, trialDays int) (*Plan, error) {
	if id == "" || name == "" || priceMonthly < 0 || priceYearly < 0 || trialDays < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:             id,
		Name:           name,
		PriceMonthly:   priceMonthly,
		PriceYearly:    priceYearly,
		PriceMonthlyID: priceMonthlyID,
		PriceYearlyID:  priceYearlyID,
		TrialDays:      trialDays,
		CreatedAt:      time.Now(),
	}, nil
}
