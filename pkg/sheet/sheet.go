// Package sheet converts uploaded spreadsheets into raw header/row grids.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("spreadsheet exceeds size limit")
	// ErrTooManyRows is returned when a sheet exceeds the row limit.
	ErrTooManyRows = errors.New("spreadsheet exceeds row limit")
	// ErrEmpty is returned when no sheet carries a header row.
	ErrEmpty = errors.New("spreadsheet has no data")
)

// RawSheet is an untyped grid. Cells hold string, float64, bool or nil.
type RawSheet struct {
	Name    string   `json:"sheetName"`
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// Limits bounds parsing work. Zero values disable a limit.
type Limits struct {
	MaxBytes int64
	MaxRows  int
}

// Parse reads r according to the extension of filename.
func Parse(filename string, r io.Reader, limits Limits) ([]RawSheet, error) {
	data, err := readAll(r, limits.MaxBytes)
	if err != nil {
		return nil, err
	}

	var sheets []RawSheet
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		s, err := parseCSV(name, data)
		if err != nil {
			return nil, err
		}
		sheets = []RawSheet{s}
	case ".xlsx":
		sheets, err = parseXLSX(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	out := sheets[:0]
	for _, s := range sheets {
		if len(s.Headers) == 0 {
			continue
		}
		if limits.MaxRows > 0 && len(s.Rows) > limits.MaxRows {
			return nil, fmt.Errorf("%w: sheet %q has %d rows (max %d)", ErrTooManyRows, s.Name, len(s.Rows), limits.MaxRows)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func readAll(r io.Reader, maxBytes int64) ([]byte, error) {
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}
