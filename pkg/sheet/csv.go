package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

func parseCSV(name string, data []byte) (RawSheet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	out := RawSheet{Name: name, Rows: [][]any{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawSheet{}, fmt.Errorf("parse csv: %w", err)
		}
		if out.Headers == nil {
			out.Headers = make([]string, len(record))
			for i, h := range record {
				out.Headers[i] = strings.TrimSpace(h)
			}
			continue
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
