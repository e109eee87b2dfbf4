package normalize

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Minimal xlsx reading: enough to turn the first worksheet of a spreadsheet
// report into a table for analysis. Shared strings and inline strings are
// resolved; formulas contribute their cached values.

type xlsxSharedStrings struct {
	Items []struct {
		Text string `xml:"t"`
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxWorksheet struct {
	Rows []struct {
		Cells []xlsxCell `xml:"c"`
	} `xml:"sheetData>row"`
}

type xlsxCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline struct {
		Text string `xml:"t"`
	} `xml:"is"`
}

// renderExcel extracts the first worksheet of an xlsx document as a table.
func renderExcel(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid xlsx archive: %v", ErrCorruptFile, err)
	}

	shared, err := readSharedStrings(zr)
	if err != nil {
		return "", err
	}

	sheetName := firstWorksheetName(zr)
	if sheetName == "" {
		return "", fmt.Errorf("%w: xlsx contains no worksheets", ErrCorruptFile)
	}

	var sheet xlsxWorksheet
	if err := decodeZipXML(zr, sheetName, &sheet); err != nil {
		return "", err
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = placeCell(cells, c, shared)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: worksheet contains no rows", ErrCorruptFile)
	}

	return renderTable(rows), nil
}

func readSharedStrings(zr *zip.Reader) ([]string, error) {
	var raw xlsxSharedStrings
	if err := decodeZipXML(zr, "xl/sharedStrings.xml", &raw); err != nil {
		// A workbook with no string cells legitimately omits the part.
		return nil, nil
	}
	strs := make([]string, 0, len(raw.Items))
	for _, si := range raw.Items {
		if si.Text != "" || len(si.Runs) == 0 {
			strs = append(strs, si.Text)
			continue
		}
		var b strings.Builder
		for _, r := range si.Runs {
			b.WriteString(r.Text)
		}
		strs = append(strs, b.String())
	}
	return strs, nil
}

func firstWorksheetName(zr *zip.Reader) string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func decodeZipXML(zr *zip.Reader, name string, v interface{}) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("%w: missing xlsx part %s", ErrCorruptFile, name)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: reading xlsx part %s: %v", ErrCorruptFile, name, err)
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parsing xlsx part %s: %v", ErrCorruptFile, name, err)
	}
	return nil
}

// placeCell appends the cell's resolved value at its column position,
// padding any gap left by empty cells.
func placeCell(cells []string, c xlsxCell, shared []string) []string {
	col := columnIndex(c.Ref)
	for len(cells) < col {
		cells = append(cells, "")
	}

	value := c.Value
	switch c.Type {
	case "s":
		var idx int
		if _, err := fmt.Sscanf(c.Value, "%d", &idx); err == nil && idx >= 0 && idx < len(shared) {
			value = shared[idx]
		}
	case "inlineStr":
		value = c.Inline.Text
	}

	return append(cells, strings.TrimSpace(value))
}

// columnIndex converts a cell reference like "C12" to a zero-based column.
func columnIndex(ref string) int {
	col := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A'+1)
	}
	if col == 0 {
		return 0
	}
	return col - 1
}
