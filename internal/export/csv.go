package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/money"
)

var csvHeader = []string{"Location", "Action", "Quantity", "Unit", "Unit Price", "Total Price"}

// CSV writes one row per location and action, then a blank line and the
// summary block with each value in the unit price column. A location without
// actions gets one row carrying only its name and total.
func CSV(w io.Writer, s estimate.Snapshot) error {
	if len(s.Locations) == 0 {
		return ErrEmptyEstimate
	}

	cw := csv.NewWriter(w)
	rows := [][]string{csvHeader}
	for _, loc := range s.Locations {
		if len(loc.Actions) == 0 {
			rows = append(rows, []string{csvCell(loc.Name), "", "", "", "", money.Amount(loc.TotalCost)})
			continue
		}
		for _, a := range loc.Actions {
			rows = append(rows, []string{
				csvCell(loc.Name),
				csvCell(a.Name),
				formatQuantity(a.Quantity),
				csvCell(a.Unit),
				money.Amount(a.UnitPrice),
				money.Amount(a.TotalPrice),
			})
		}
	}

	rows = append(rows,
		nil,
		summaryRow("SUMMARY", ""),
		summaryRow("Direct Costs", money.Amount(s.DirectCost)),
		summaryRow("Permit Fees", money.Amount(s.PermitFees)),
		summaryRow("Equipment Costs", money.Amount(s.EquipmentCosts)),
		summaryRow("Overhead Costs", money.Amount(s.OverheadCosts)),
		summaryRow("Subtotal", money.Amount(s.Subtotal)),
		summaryRow(fmt.Sprintf("Contingency (%s%%)", formatQuantity(s.ContingencyPercent)), money.Amount(s.Contingency)),
		summaryRow("GRAND TOTAL", money.Amount(s.GrandTotal)),
	)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write estimate csv: %w", err)
	}
	return nil
}

func summaryRow(label, value string) []string {
	return []string{label, "", "", "", value, ""}
}

// formatQuantity prints the shortest exact decimal, e.g. 320 or 12.5.
func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// csvCell guards against formula injection for the characters spreadsheets
// evaluate on open. Other text, including a leading "-", is written as is.
func csvCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '@':
		return "'" + s
	}
	return s
}
