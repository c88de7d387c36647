package export

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/money"
)

var (
	headerBg   = &props.Color{Red: 51, Green: 51, Blue: 51}
	locationBg = &props.Color{Red: 240, Green: 240, Blue: 240}
	mutedText  = &props.Color{Red: 80, Green: 80, Blue: 80}
)

// PDF renders a printable A4 estimate: project header, one block per location
// and the cost summary.
func PDF(s estimate.Snapshot) ([]byte, error) {
	if len(s.Locations) == 0 {
		return nil, ErrEmptyEstimate
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).
		WithTopMargin(12).
		WithRightMargin(12).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addPDFHeader(m, s)
	addPDFTableHeader(m)
	for _, loc := range s.Locations {
		addPDFLocation(m, loc)
	}
	addPDFSummary(m, s)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addPDFHeader(m core.Maroto, s estimate.Snapshot) {
	title := s.Project.Name
	if title == "" {
		title = "Construction Estimate"
	}
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}),
			),
		),
	)

	meta := props.Text{Size: 9, Align: align.Left, Color: mutedText}
	metaRight := meta
	metaRight.Align = align.Right
	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(text.New("Client: "+s.Project.Client, meta)),
			col.New(6).Add(text.New("Date: "+s.Project.Date, metaRight)),
		),
	)
	m.AddRows(row.New(4))
}

func addPDFTableHeader(m core.Maroto) {
	head := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headLeft := head
	headLeft.Align = align.Left
	cell := &props.Cell{BackgroundColor: headerBg}

	m.AddRows(
		row.New(8).Add(
			col.New(5).Add(text.New("Action", headLeft)).WithStyle(cell),
			col.New(2).Add(text.New("Quantity", head)).WithStyle(cell),
			col.New(1).Add(text.New("Unit", head)).WithStyle(cell),
			col.New(2).Add(text.New("Unit Price", head)).WithStyle(cell),
			col.New(2).Add(text.New("Total Price", head)).WithStyle(cell),
		),
	)
}

func addPDFLocation(m core.Maroto, loc estimate.LocationSnapshot) {
	bold := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Left}
	boldRight := bold
	boldRight.Align = align.Right
	cell := &props.Cell{BackgroundColor: locationBg}

	m.AddRows(
		row.New(8).Add(
			col.New(10).Add(text.New(loc.Name, bold)).WithStyle(cell),
			col.New(2).Add(text.New(money.Currency(loc.TotalCost), boldRight)).WithStyle(cell),
		),
	)

	base := props.Text{Size: 8, Align: align.Center}
	left := base
	left.Align = align.Left
	right := base
	right.Align = align.Right
	for _, a := range loc.Actions {
		m.AddRows(
			row.New(7).Add(
				col.New(5).Add(text.New("  "+a.Name, left)),
				col.New(2).Add(text.New(formatQuantity(a.Quantity), right)),
				col.New(1).Add(text.New(a.Unit, base)),
				col.New(2).Add(text.New(money.Currency(a.UnitPrice), right)),
				col.New(2).Add(text.New(money.Currency(a.TotalPrice), right)),
			),
		)
	}
}

func addPDFSummary(m core.Maroto, s estimate.Snapshot) {
	m.AddRows(row.New(6))

	label := props.Text{Size: 9, Align: align.Right}
	value := props.Text{Size: 9, Align: align.Right}
	lines := []struct {
		label string
		value float64
	}{
		{"Labor", s.LaborCost},
		{"Materials", s.MaterialCost},
		{"Direct Costs", s.DirectCost},
		{"Permit Fees", s.PermitFees},
		{"Equipment Costs", s.EquipmentCosts},
		{"Overhead Costs", s.OverheadCosts},
		{"Subtotal", s.Subtotal},
		{fmt.Sprintf("Contingency (%s%%)", formatQuantity(s.ContingencyPercent)), s.Contingency},
	}
	for _, line := range lines {
		m.AddRows(
			row.New(6).Add(
				col.New(9).Add(text.New(line.label, label)),
				col.New(3).Add(text.New(money.Currency(line.value), value)),
			),
		)
	}

	totalStyle := props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}
	cell := &props.Cell{BackgroundColor: locationBg}
	m.AddRows(
		row.New(9).Add(
			col.New(9).Add(text.New("GRAND TOTAL", totalStyle)).WithStyle(cell),
			col.New(3).Add(text.New(money.Currency(s.GrandTotal), totalStyle)).WithStyle(cell),
		),
	)
}
