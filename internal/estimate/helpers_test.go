package estimate

import "github.com/Simplici0/costestimator/internal/pricing"

func pricingAdjustments(permit, equipment, overhead, contingency float64) pricing.Adjustments {
	return pricing.Adjustments{
		PermitFees:         permit,
		EquipmentCosts:     equipment,
		OverheadCosts:      overhead,
		ContingencyPercent: contingency,
	}
}
