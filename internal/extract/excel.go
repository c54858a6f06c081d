package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const cellSeparator = " | "

// extractExcel renders every sheet in workbook order as a "Sheet: <name>" line followed
// by one line per non-empty row, cells joined by " | ". Empty cells are omitted and a
// blank line closes each sheet.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		buf.WriteString("Sheet: ")
		buf.WriteString(sheet)
		buf.WriteByte('\n')
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) == 0 {
				continue
			}
			buf.WriteString(strings.Join(cells, cellSeparator))
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
