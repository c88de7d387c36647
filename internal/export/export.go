// Package export turns estimate snapshots into downloadable files.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/costestimator/internal/estimate"
)

// ErrEmptyEstimate is returned before anything is written for an estimate
// without locations.
var ErrEmptyEstimate = errors.New("no data to export: add at least one location and action")

// DefaultFilename is used when the project has no usable name.
const DefaultFilename = "construction-estimate"

// Format is an export file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatJSON, FormatXLSX, FormatPDF}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Filename derives a download name from the project name: every character
// outside [A-Za-z0-9] becomes "-" and the result is lowercased.
func Filename(projectName string) string {
	if projectName == "" {
		return DefaultFilename
	}
	var b strings.Builder
	for _, r := range projectName {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Render produces the file body for format.
func Render(format Format, s estimate.Snapshot) ([]byte, error) {
	if len(s.Locations) == 0 {
		return nil, ErrEmptyEstimate
	}
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		if err := CSV(&buf, s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return JSON(s)
	case FormatXLSX:
		return XLSX(s)
	case FormatPDF:
		return PDF(s)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// JSON is the snapshot indented by two spaces.
func JSON(s estimate.Snapshot) ([]byte, error) {
	if len(s.Locations) == 0 {
		return nil, ErrEmptyEstimate
	}
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode estimate json: %w", err)
	}
	return out, nil
}
