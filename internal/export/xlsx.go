package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/money"
	"github.com/Simplici0/costestimator/internal/pricing"
)

const (
	summarySheet   = "Estimate"
	materialsSheet = "Materials"
)

// XLSX builds a workbook with the estimate table on the first sheet and every
// resolved material and subtask on the second.
func XLSX(s estimate.Snapshot) ([]byte, error) {
	if len(s.Locations) == 0 {
		return nil, ErrEmptyEstimate
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	widths := map[string]float64{"A": 28, "B": 32, "C": 12, "D": 12, "E": 14, "F": 14}
	for col, w := range widths {
		if err := f.SetColWidth(summarySheet, col, col, w); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	title := s.Project.Name
	if title == "" {
		title = "Construction Estimate"
	}
	if err := f.MergeCell(summarySheet, "A1", "F1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(summarySheet, "A1", sanitizeCell(title))
	f.SetCellStyle(summarySheet, "A1", "F1", styles.title)
	f.SetCellValue(summarySheet, "A2", "Client: "+sanitizeCell(s.Project.Client))
	f.SetCellValue(summarySheet, "D2", "Date: "+s.Project.Date)

	for i, h := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(summarySheet, cell, h)
	}
	f.SetCellStyle(summarySheet, "A4", "F4", styles.header)

	row := 5
	for _, loc := range s.Locations {
		r := fmt.Sprint(row)
		if len(loc.Actions) == 0 {
			f.SetCellValue(summarySheet, "A"+r, sanitizeCell(loc.Name))
			f.SetCellValue(summarySheet, "F"+r, money.Round(loc.TotalCost))
			f.SetCellStyle(summarySheet, "A"+r, "F"+r, styles.cell)
			f.SetCellStyle(summarySheet, "E"+r, "F"+r, styles.money)
			row++
			continue
		}
		for _, a := range loc.Actions {
			r = fmt.Sprint(row)
			f.SetCellValue(summarySheet, "A"+r, sanitizeCell(loc.Name))
			f.SetCellValue(summarySheet, "B"+r, sanitizeCell(a.Name))
			f.SetCellValue(summarySheet, "C"+r, a.Quantity)
			f.SetCellValue(summarySheet, "D"+r, sanitizeCell(a.Unit))
			f.SetCellValue(summarySheet, "E"+r, money.Round(a.UnitPrice))
			f.SetCellValue(summarySheet, "F"+r, money.Round(a.TotalPrice))
			f.SetCellStyle(summarySheet, "A"+r, "D"+r, styles.cell)
			f.SetCellStyle(summarySheet, "E"+r, "F"+r, styles.money)
			row++
		}
	}

	// Skip a blank row.
	row++
	summary := []struct {
		label string
		value float64
	}{
		{"Direct Costs", s.DirectCost},
		{"Permit Fees", s.PermitFees},
		{"Equipment Costs", s.EquipmentCosts},
		{"Overhead Costs", s.OverheadCosts},
		{"Subtotal", s.Subtotal},
		{fmt.Sprintf("Contingency (%s%%)", formatQuantity(s.ContingencyPercent)), s.Contingency},
		{"GRAND TOTAL", s.GrandTotal},
	}
	for _, line := range summary {
		r := fmt.Sprint(row)
		f.SetCellValue(summarySheet, "D"+r, line.label)
		f.SetCellStyle(summarySheet, "D"+r, "D"+r, styles.summaryLabel)
		f.SetCellValue(summarySheet, "E"+r, money.Round(line.value))
		f.SetCellStyle(summarySheet, "E"+r, "E"+r, styles.summaryValue)
		row++
	}

	if err := writeMaterialsSheet(f, s, styles); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func writeMaterialsSheet(f *excelize.File, s estimate.Snapshot, styles sheetStyles) error {
	if _, err := f.NewSheet(materialsSheet); err != nil {
		return fmt.Errorf("create materials sheet: %w", err)
	}
	headers := []string{"Location", "Action", "Kind", "Item", "Quantity", "Unit", "Cost / Unit", "Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(materialsSheet, cell, h)
	}
	f.SetCellStyle(materialsSheet, "A1", "H1", styles.header)

	row := 2
	for _, loc := range s.Locations {
		for _, a := range loc.Actions {
			groups := []struct {
				kind  string
				items []pricing.LineItem
			}{
				{"Material", a.Materials},
				{"Subtask", a.Subtasks},
			}
			for _, g := range groups {
				for _, item := range g.items {
					r := fmt.Sprint(row)
					f.SetCellValue(materialsSheet, "A"+r, sanitizeCell(loc.Name))
					f.SetCellValue(materialsSheet, "B"+r, sanitizeCell(a.Name))
					f.SetCellValue(materialsSheet, "C"+r, g.kind)
					f.SetCellValue(materialsSheet, "D"+r, sanitizeCell(item.Name))
					f.SetCellValue(materialsSheet, "E"+r, item.Quantity)
					f.SetCellValue(materialsSheet, "F"+r, sanitizeCell(item.Unit))
					f.SetCellValue(materialsSheet, "G"+r, item.CostPerUnit)
					f.SetCellValue(materialsSheet, "H"+r, money.Round(item.TotalCost))
					row++
				}
			}
		}
	}
	return nil
}

type sheetStyles struct {
	title, header, cell, money, summaryLabel, summaryValue int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	var err error

	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	}); err != nil {
		return st, fmt.Errorf("create title style: %w", err)
	}

	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create header style: %w", err)
	}

	if st.cell, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create cell style: %w", err)
	}

	moneyFormat := "#,##0.00"
	if st.money, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &moneyFormat,
	}); err != nil {
		return st, fmt.Errorf("create money style: %w", err)
	}

	if st.summaryLabel, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return st, fmt.Errorf("create summary label style: %w", err)
	}

	if st.summaryValue, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &moneyFormat,
	}); err != nil {
		return st, fmt.Errorf("create summary value style: %w", err)
	}

	return st, nil
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}

// sanitizeCell prevents formula injection by prefixing dangerous leading
// characters with a single quote.
func sanitizeCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}
