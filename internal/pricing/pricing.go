package pricing

import (
	"math"

	"github.com/Simplici0/costestimator/internal/catalog"
)

// RuleSource resolves action rules by id.
type RuleSource interface {
	FindRule(id string) (catalog.ActionRule, bool)
}

// LineItem is a quantity-resolved, priced material or subtask.
type LineItem struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	CostPerUnit float64 `json:"costPerUnit"`
	TotalCost   float64 `json:"totalCost"`
}

// Resolution is the priced output of one rule at one quantity.
type Resolution struct {
	Materials         []LineItem `json:"materials"`
	Subtasks          []LineItem `json:"subtasks"`
	TotalMaterialCost float64    `json:"totalMaterialCost"`
}

// Unpriced is the result for an unknown rule or a missing quantity.
func Unpriced() Resolution {
	return Resolution{Materials: []LineItem{}, Subtasks: []LineItem{}}
}

// Resolve prices every formula of ruleID at quantity. Unknown rules and
// non-finite quantities yield the unpriced result. Formulas are evaluated even
// for zero or negative quantities, and costs accumulate in catalog order:
// materials first, then subtasks.
func Resolve(rules RuleSource, ruleID string, quantity float64) Resolution {
	if rules == nil || ruleID == "" || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return Unpriced()
	}
	rule, ok := rules.FindRule(ruleID)
	if !ok {
		return Unpriced()
	}

	res := Resolution{
		Materials: make([]LineItem, 0, len(rule.Materials)),
		Subtasks:  make([]LineItem, 0, len(rule.Subtasks)),
	}
	for _, f := range rule.Materials {
		item := price(f, quantity)
		res.TotalMaterialCost += item.TotalCost
		res.Materials = append(res.Materials, item)
	}
	for _, f := range rule.Subtasks {
		item := price(f, quantity)
		res.TotalMaterialCost += item.TotalCost
		res.Subtasks = append(res.Subtasks, item)
	}

	return res
}

func price(f catalog.Formula, quantity float64) LineItem {
	derived := f.Quantity.Eval(quantity)
	return LineItem{
		Name:        f.Name,
		Quantity:    derived,
		Unit:        f.Unit,
		CostPerUnit: f.CostPerUnit,
		TotalCost:   derived * f.CostPerUnit,
	}
}
