// Package export renders rosters (attendance, registrations) as downloadable files.
package export

import (
	"fmt"
	"strings"
)

// Format identifies a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises user input into a Format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Roster is a titled table; each row maps a column header to its cell value.
type Roster struct {
	Title   string
	Columns []string
	Rows    []map[string]string
}

// AddRow appends a row given cells in column order.
func (r *Roster) AddRow(cells ...string) {
	row := make(map[string]string, len(r.Columns))
	for i, col := range r.Columns {
		if i < len(cells) {
			row[col] = cells[i]
		}
	}
	r.Rows = append(r.Rows, row)
}

// Render encodes the roster in the requested format.
func Render(format Format, roster Roster) ([]byte, error) {
	if len(roster.Columns) == 0 {
		return nil, fmt.Errorf("%s export requires at least one column", format)
	}
	switch format {
	case FormatCSV:
		return renderCSV(roster)
	case FormatPDF:
		return renderPDF(roster)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Filename builds a download filename from a slug-like base.
func Filename(base string, format Format) string {
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(base))
	if base == "" {
		base = "export"
	}
	return base + "." + string(format)
}
