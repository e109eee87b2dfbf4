package normalize

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// renderCSV parses CSV bytes and renders a pipe-delimited table with a
// header separator, a layout the analysis model reads reliably.
func renderCSV(data []byte) (string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1 // ragged rows are common in exported reports
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: invalid CSV: %v", ErrCorruptFile, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w: CSV contains no rows", ErrCorruptFile)
	}

	return renderTable(records), nil
}

// renderTable renders rows as a markdown-style table. The first row is
// treated as the header.
func renderTable(rows [][]string) string {
	var b strings.Builder
	for i, row := range rows {
		for j, cell := range row {
			if j > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(strings.TrimSpace(cell))
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString(strings.Repeat("-", 3*len(row)))
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}
