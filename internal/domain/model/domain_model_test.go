//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"chantierpro-billing/internal/domain"
)

// --- Commission Tests ---

func TestComputeCharge(t *testing.T) {
	t.Run("client model adds the full fee", func(t *testing.T) {
		charge, err := ComputeCharge(10000, CommissionClient)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if charge != 10170 {
			t.Errorf("expected charge 10170, but got %d", charge)
		}
	})

	t.Run("partage model splits the fee", func(t *testing.T) {
		charge, err := ComputeCharge(10000, CommissionPartage)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if charge != 10085 {
			t.Errorf("expected charge 10085, but got %d", charge)
		}
	})

	t.Run("artisan model charges the bare amount", func(t *testing.T) {
		charge, err := ComputeCharge(10000, CommissionArtisan)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if charge != 10000 {
			t.Errorf("expected charge 10000, but got %d", charge)
		}
	})

	t.Run("partage rounds half up", func(t *testing.T) {
		charge, err := ComputeCharge(12000, CommissionPartage)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if charge != 12102 {
			t.Errorf("expected charge 12102, but got %d", charge)
		}
	})

	t.Run("unknown model behaves as artisan", func(t *testing.T) {
		charge, err := ComputeCharge(10000, CommissionModel("autre"))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if charge != 10000 {
			t.Errorf("expected charge 10000, but got %d", charge)
		}
	})

	t.Run("rejects amounts below the provider minimum", func(t *testing.T) {
		if _, err := ComputeCharge(49, CommissionArtisan); !errors.Is(err, domain.ErrAmountTooSmall) {
			t.Errorf("expected ErrAmountTooSmall for 49, but got %v", err)
		}
		if charge, err := ComputeCharge(50, CommissionArtisan); err != nil || charge != 50 {
			t.Errorf("expected 50 to pass untouched, got %d, %v", charge, err)
		}
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		if _, err := ComputeCharge(-1, CommissionClient); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
	})
}

// --- SubscriptionRecord Tests ---

func TestNewSubscriptionRecord(t *testing.T) {
	t.Run("should start on the free plan", func(t *testing.T) {
		rec, err := NewSubscriptionRecord("tenant-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if rec.PlanID != FreePlanID {
			t.Errorf("expected plan %q, but got %q", FreePlanID, rec.PlanID)
		}
		if rec.Status != SubscriptionStatusActive {
			t.Errorf("expected status active, but got %q", rec.Status)
		}
		if rec.ProviderSubscriptionID != nil {
			t.Error("expected no provider subscription id on a fresh record")
		}
	})

	t.Run("should fail with empty tenant id", func(t *testing.T) {
		if _, err := NewSubscriptionRecord(""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
	})
}

func TestSubscriptionRecordCancel(t *testing.T) {
	rec, err := NewSubscriptionRecord("tenant-1")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	subID := "sub_123"
	priceID := "price_123"
	end := time.Now().Add(30 * 24 * time.Hour)
	rec.ProviderSubscriptionID = &subID
	rec.ProviderPriceID = &priceID
	rec.PlanID = "artisan"
	rec.Status = SubscriptionStatusActive
	rec.CurrentPeriodEnd = &end

	rec.Cancel()

	if rec.PlanID != FreePlanID {
		t.Errorf("expected fallback to %q, but got %q", FreePlanID, rec.PlanID)
	}
	if rec.Status != SubscriptionStatusCanceled {
		t.Errorf("expected status canceled, but got %q", rec.Status)
	}
	if rec.ProviderSubscriptionID != nil || rec.ProviderPriceID != nil {
		t.Error("expected provider subscription and price ids to be cleared")
	}
}

func TestParseInterval(t *testing.T) {
	if iv, err := ParseInterval("monthly"); err != nil || iv != IntervalMonthly {
		t.Errorf("expected monthly, got %q, %v", iv, err)
	}
	if iv, err := ParseInterval("yearly"); err != nil || iv != IntervalYearly {
		t.Errorf("expected yearly, got %q, %v", iv, err)
	}
	if _, err := ParseInterval("weekly"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, but got %v", err)
	}
}

// --- InvoicePaymentIntent Tests ---

func TestNewInvoicePaymentIntent(t *testing.T) {
	t.Run("should create with a fresh token", func(t *testing.T) {
		intent, err := NewInvoicePaymentIntent("inv-1", "tenant-1", "F-2026-042", 12000)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if intent.Token == "" {
			t.Error("expected a non-empty payment token")
		}
		if intent.Status != PaymentStatusUnpaid {
			t.Errorf("expected status unpaid, but got %q", intent.Status)
		}
		if intent.Remaining() != 12000 {
			t.Errorf("expected remaining 12000, but got %d", intent.Remaining())
		}
	})

	t.Run("should fail on non-positive total", func(t *testing.T) {
		if _, err := NewInvoicePaymentIntent("inv-1", "tenant-1", "F-2026-042", 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
	})
}

func TestPaymentTokensAreUnique(t *testing.T) {
	a := NewPaymentToken()
	b := NewPaymentToken()
	if a == b {
		t.Errorf("expected distinct tokens, got %q twice", a)
	}
}

// --- Plan Tests ---

func TestPlanPriceID(t *testing.T) {
	plan, err := NewPlan("artisan", "Artisan", 2900, 29000, "price_m", "price_y", 14)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if got, err := plan.PriceID(IntervalMonthly); err != nil || got != "price_m" {
		t.Errorf("expected price_m, but got %q, %v", got, err)
	}
	if got, err := plan.PriceID(IntervalYearly); err != nil || got != "price_y" {
		t.Errorf("expected price_y, but got %q, %v", got, err)
	}
	if plan.IsFree() {
		t.Error("expected paid plan not to be free")
	}

	free, err := NewPlan(FreePlanID, "Découverte", 0, 0, "", "", 0)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if !free.IsFree() {
		t.Error("expected decouverte plan to be free")
	}
}
