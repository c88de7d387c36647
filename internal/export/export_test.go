package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/estimate"
)

func fixedDefaults() estimate.Defaults {
	d := estimate.StandardDefaults()
	d.Now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }
	return d
}

// paintedSnapshot is a painted living room plus an empty garage.
func paintedSnapshot(t *testing.T) estimate.Snapshot {
	t.Helper()
	e := estimate.New(catalog.Default(), fixedDefaults())
	e.Project.Name = "Smith Remodel"
	e.Project.Client = "Jane Smith"

	require.NoError(t, e.RenameLocation(1, "Living Room"))
	_, err := e.SelectRule(1, 1, "paint_interior")
	require.NoError(t, err)
	_, err = e.SetQuantity(1, 1, 100)
	require.NoError(t, err)
	_, err = e.SetUnitPrice(1, 1, 2)
	require.NoError(t, err)

	garage, err := e.AddLocation("Garage")
	require.NoError(t, err)
	require.NoError(t, e.RemoveAction(garage.ID, garage.Actions[0].ID))

	return e.Snapshot()
}

func emptySnapshot() estimate.Snapshot {
	e := estimate.New(catalog.Default(), fixedDefaults())
	_ = e.RemoveLocation(1)
	return e.Snapshot()
}

func TestCSV_RowsAndSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, paintedSnapshot(t)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"Location,Action,Quantity,Unit,Unit Price,Total Price",
		"Living Room,Action 1,100,Sq. Ft,2.00,277.00",
		"Garage,,,,,0.00",
		"",
		"SUMMARY,,,,,",
		"Direct Costs,,,,277.00,",
		"Permit Fees,,,,0.00,",
		"Equipment Costs,,,,0.00,",
		"Overhead Costs,,,,0.00,",
		"Subtotal,,,,277.00,",
		"Contingency (10%),,,,27.70,",
		"GRAND TOTAL,,,,304.70,",
	}
	require.Equal(t, want, lines)
}

func TestCSV_SanitizesFormulaCells(t *testing.T) {
	s := paintedSnapshot(t)
	s.Locations[0].Name = "=HYPERLINK(\"x\")"

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, s))
	require.Contains(t, buf.String(), `"'=HYPERLINK(""x"")"`)
}

func TestCSV_KeepsLeadingDashAndPipe(t *testing.T) {
	s := paintedSnapshot(t)
	s.Locations[0].Name = "-Basement"
	s.Locations[0].Actions[0].Name = "|Trim"
	s.Locations[1].Name = "+Attic"

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, s))
	out := buf.String()
	require.Contains(t, out, "-Basement,|Trim,")
	require.NotContains(t, out, "'-Basement")
	require.Contains(t, out, "'+Attic,,,,,0.00")
}

func TestExport_EmptyEstimateFails(t *testing.T) {
	s := emptySnapshot()

	var buf bytes.Buffer
	require.ErrorIs(t, CSV(&buf, s), ErrEmptyEstimate)
	require.Zero(t, buf.Len())

	for _, f := range Formats {
		_, err := Render(f, s)
		if !errors.Is(err, ErrEmptyEstimate) {
			t.Fatalf("Render(%s) error = %v, want ErrEmptyEstimate", f, err)
		}
	}
}

func TestJSON_IndentedSnapshot(t *testing.T) {
	out, err := JSON(paintedSnapshot(t))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "{\n  \""), "expected two-space indent, got %q", out[:10])

	var back estimate.Snapshot
	require.NoError(t, json.Unmarshal(out, &back))
	require.Equal(t, "Smith Remodel", back.Project.Name)
	require.Len(t, back.Locations, 2)
	require.InDelta(t, 304.70, back.GrandTotal, 1e-9)
}

func TestXLSX_Workbook(t *testing.T) {
	out, err := XLSX(paintedSnapshot(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Estimate", "Materials"}, f.GetSheetList())

	title, err := f.GetCellValue("Estimate", "A1")
	require.NoError(t, err)
	require.Equal(t, "Smith Remodel", title)

	action, err := f.GetCellValue("Estimate", "B5")
	require.NoError(t, err)
	require.Equal(t, "Action 1", action)

	primer, err := f.GetCellValue("Materials", "D2")
	require.NoError(t, err)
	require.Equal(t, "Primer", primer)
}

func TestPDF_ProducesDocument(t *testing.T) {
	out, err := PDF(paintedSnapshot(t))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "output is not a PDF")
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"":              DefaultFilename,
		"Smith Remodel": "smith-remodel",
		"Unit #4B":      "unit--4b",
		"déjà":          "d-j-",
	}
	for in, want := range cases {
		if got := Filename(in); got != want {
			t.Fatalf("Filename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	require.Error(t, err)
}
