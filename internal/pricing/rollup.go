package pricing

// ActionInput carries the numeric state of one action. Values are assumed
// already coerced at the input boundary.
type ActionInput struct {
	Quantity     float64
	UnitPrice    float64
	MaterialCost float64
}

// ActionTotals is the labor and material cost of one action.
type ActionTotals struct {
	LaborCost    float64 `json:"laborCost"`
	MaterialCost float64 `json:"materialCost"`
	TotalPrice   float64 `json:"totalPrice"`
}

// LocationTotals sums the actions of one location.
type LocationTotals struct {
	TotalLaborCost    float64 `json:"totalLaborCost"`
	TotalMaterialCost float64 `json:"totalMaterialCost"`
	TotalCost         float64 `json:"totalCost"`
}

// Adjustments are the estimate-wide costs applied on top of direct cost.
type Adjustments struct {
	PermitFees         float64 `json:"permitFees"`
	EquipmentCosts     float64 `json:"equipmentCosts"`
	OverheadCosts      float64 `json:"overheadCosts"`
	ContingencyPercent float64 `json:"contingencyPercent"`
}

// EstimateTotals is the project-level breakdown.
type EstimateTotals struct {
	LaborCost    float64 `json:"laborCost"`
	MaterialCost float64 `json:"materialCost"`
	DirectCost   float64 `json:"directCost"`
	Subtotal     float64 `json:"subtotal"`
	Contingency  float64 `json:"contingency"`
	GrandTotal   float64 `json:"grandTotal"`
}

// RollupAction computes labor = quantity * unit price and adds the material cost.
func RollupAction(a ActionInput) ActionTotals {
	labor := a.Quantity * a.UnitPrice
	return ActionTotals{
		LaborCost:    labor,
		MaterialCost: a.MaterialCost,
		TotalPrice:   labor + a.MaterialCost,
	}
}

// RollupLocation sums action totals in list order.
func RollupLocation(actions []ActionTotals) LocationTotals {
	var totals LocationTotals
	for _, a := range actions {
		totals.TotalLaborCost += a.LaborCost
		totals.TotalMaterialCost += a.MaterialCost
	}
	totals.TotalCost = totals.TotalLaborCost + totals.TotalMaterialCost
	return totals
}

// RollupEstimate sums location totals and applies fees and contingency.
func RollupEstimate(locations []LocationTotals, adj Adjustments) EstimateTotals {
	var totals EstimateTotals
	for _, loc := range locations {
		totals.LaborCost += loc.TotalLaborCost
		totals.MaterialCost += loc.TotalMaterialCost
	}

	totals.DirectCost = totals.LaborCost + totals.MaterialCost
	totals.Subtotal = totals.DirectCost + adj.PermitFees + adj.EquipmentCosts + adj.OverheadCosts
	totals.Contingency = (totals.Subtotal * adj.ContingencyPercent) / 100
	totals.GrandTotal = totals.Subtotal + totals.Contingency

	return totals
}
