package sheet

import (
	"fmt"
	"strings"

	"github.com/tealeg/xlsx"
)

func parseXLSX(data []byte) ([]RawSheet, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}

	sheets := make([]RawSheet, 0, len(file.Sheets))
	for _, ws := range file.Sheets {
		out := RawSheet{Name: ws.Name, Rows: [][]any{}}
		for _, row := range ws.Rows {
			if row == nil {
				continue
			}
			if out.Headers == nil {
				if rowEmpty(row) {
					continue
				}
				out.Headers = make([]string, len(row.Cells))
				for i, cell := range row.Cells {
					out.Headers[i] = strings.TrimSpace(cell.String())
				}
				continue
			}
			values := make([]any, len(row.Cells))
			for i, cell := range row.Cells {
				values[i] = cellValue(cell)
			}
			out.Rows = append(out.Rows, values)
		}
		sheets = append(sheets, out)
	}
	return sheets, nil
}

func cellValue(cell *xlsx.Cell) any {
	if cell == nil || cell.Value == "" {
		return nil
	}
	switch cell.Type() {
	case xlsx.CellTypeBool:
		return cell.Bool()
	case xlsx.CellTypeNumeric:
		if f, err := cell.Float(); err == nil {
			return f
		}
	}
	return cell.String()
}

func rowEmpty(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if cell != nil && strings.TrimSpace(cell.String()) != "" {
			return false
		}
	}
	return true
}
