package dto

import (
	"github.com/noah-isme/usecase-tracker-api/internal/importer"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

// AnalyzeRequest carries one sheet as parsed by the client. Header entries
// may be null.
type AnalyzeRequest struct {
	Headers   []*string `json:"headers"`
	Rows      [][]any   `json:"rows"`
	SheetName string    `json:"sheetName"`
}

// Sheet converts the request into a RawSheet. Null headers become empty
// strings, which the classifier skips.
func (r AnalyzeRequest) Sheet() sheet.RawSheet {
	var headers []string
	if r.Headers != nil {
		headers = make([]string, len(r.Headers))
		for i, h := range r.Headers {
			if h != nil {
				headers[i] = *h
			}
		}
	}
	return sheet.RawSheet{Name: r.SheetName, Headers: headers, Rows: r.Rows}
}

// AnalyzeResponse is returned by the analyze endpoint, including when the
// local mapping was used.
type AnalyzeResponse struct {
	Success         bool                       `json:"success"`
	Analysis        importer.Analysis          `json:"analysis"`
	MappedData      []models.CanonicalTestCase `json:"mappedData"`
	OriginalHeaders []*string                  `json:"originalHeaders"`
	TotalRows       int                        `json:"totalRows"`
	Source          importer.Source            `json:"source"`
}

// ImportTestCasesRequest analyzes a sheet for a use case and optionally commits it.
type ImportTestCasesRequest struct {
	AnalyzeRequest
	Commit bool `json:"commit"`
}

// ImportTestCasesResponse carries the analysis and, after a commit, the per-row results.
type ImportTestCasesResponse struct {
	AnalyzeResponse
	Committed bool                `json:"committed"`
	Batch     *models.BatchResult `json:"batch,omitempty"`
}

// ParseSheetsResponse lists the sheets found in an uploaded workbook.
type ParseSheetsResponse struct {
	FileName string           `json:"fileName"`
	Sheets   []sheet.RawSheet `json:"sheets"`
}
