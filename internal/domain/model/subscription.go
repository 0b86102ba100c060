package model

import (
	"time"

	"chantierpro-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// SubscriptionRecord is the durable billing state of a tenant. There is at
// most one record per tenant; all writes go through tenant-keyed upserts.
// ProviderSubscriptionID is set only while Status is trialing/active/past_due.
type SubscriptionRecord struct {
	TenantID               string
	ProviderCustomerID     string // created lazily on first checkout, immutable once set
	ProviderSubscriptionID *string
	ProviderPriceID        *string
	PlanID                 string
	Status                 SubscriptionStatus
	Interval               BillingInterval
	CurrentPeriodEnd       *time.Time
	TrialEnd               *time.Time
	CancelAtPeriodEnd      bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewSubscriptionRecord creates the initial record for a tenant: free tier,
// active, no provider objects yet.
func NewSubscriptionRecord(tenantID string) (*SubscriptionRecord, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &SubscriptionRecord{
		TenantID:  tenantID,
		PlanID:    FreePlanID,
		Status:    SubscriptionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Cancel resets the record to the free tier and clears provider subscription
// identifiers. The record itself is never deleted.
func (r *SubscriptionRecord) Cancel() {
	r.PlanID = FreePlanID
	r.Status = SubscriptionStatusCanceled
	r.ProviderSubscriptionID = nil
	r.ProviderPriceID = nil
	r.CancelAtPeriodEnd = false
	r.UpdatedAt = time.Now()
}

func ParseInterval(s string) (BillingInterval, error) {
	switch BillingInterval(s) {
	case IntervalMonthly, IntervalYearly:
		return BillingInterval(s), nil
	}
	return "", domain.ErrInvalidArgument
}
