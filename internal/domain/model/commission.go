package model

import "chantierpro-billing/internal/domain"

// CommissionModel decides who absorbs the payment-processing fee for an
// invoice payment: the artisan (payee), the client (payer), or both.
type CommissionModel string

const (
	CommissionArtisan CommissionModel = "artisan"
	CommissionClient  CommissionModel = "client"
	CommissionPartage CommissionModel = "partage"
)

// MinChargeMinorUnits is the provider's minimum payable amount (EUR 0.50).
const MinChargeMinorUnits = 50

// markups in basis-of-10000 applied to the pre-fee amount.
const (
	clientMarkupNum  = 10170 // x1.017
	partageMarkupNum = 10085 // x1.0085
	markupDen        = 10000
)

// ComputeCharge returns the amount to request from the payer for a payment of
// baseAmount minor units under the given commission model. Amounts below the
// provider minimum fail with ErrAmountTooSmall rather than being clamped.
func ComputeCharge(baseAmount int64, commission CommissionModel) (int64, error) {
	if baseAmount < 0 {
		return 0, domain.ErrInvalidArgument
	}
	var num int64
	switch commission {
	case CommissionClient:
		num = clientMarkupNum
	case CommissionPartage:
		num = partageMarkupNum
	default:
		// Unknown or empty model behaves as "artisan": no markup.
		num = markupDen
	}
	// Integer round-half-up; amounts stay in minor units end to end.
	charge := (baseAmount*num + markupDen/2) / markupDen
	if charge < MinChargeMinorUnits {
		return 0, domain.ErrAmountTooSmall
	}
	return charge, nil
}

// HasMarkup reports whether the payer is charged more than the invoice amount,
// which callers surface as a fee note on the checkout line item.
func (m CommissionModel) HasMarkup() bool {
	return m == CommissionClient || m == CommissionPartage
}
