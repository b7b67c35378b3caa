package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/importer"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

type fakeImportSrv struct {
	analyzeReq dto.AnalyzeRequest
	importReq  dto.ImportTestCasesRequest
	parsedName string
	parsedBody string
	err        error
}

func (f *fakeImportSrv) Analyze(_ context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	f.analyzeReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AnalyzeResponse{
		Success:         true,
		OriginalHeaders: req.Headers,
		TotalRows:       len(req.Rows),
		Source:          importer.SourceLocal,
		MappedData:      []models.CanonicalTestCase{{Name: "Login"}},
	}, nil
}

func (f *fakeImportSrv) Parse(_ context.Context, filename string, r io.Reader) (*dto.ParseSheetsResponse, error) {
	raw, _ := io.ReadAll(r)
	f.parsedName, f.parsedBody = filename, string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ParseSheetsResponse{FileName: filename, Sheets: []sheet.RawSheet{{Name: "cases", Headers: []string{"Name"}}}}, nil
}

func (f *fakeImportSrv) ImportTestCases(_ context.Context, _ models.Actor, _ string, req dto.ImportTestCasesRequest) (*dto.ImportTestCasesResponse, error) {
	f.importReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ImportTestCasesResponse{Committed: req.Commit, Batch: &models.BatchResult{Total: 1, Succeeded: 1}}, nil
}

func TestImportHandlerAnalyzeReturnsBareBody(t *testing.T) {
	srv := &fakeImportSrv{}
	handler := NewImportHandler(srv)
	body := `{"headers":["Test Case Name",null,"Pass","Fail"],"rows":[["Login","",true,null]],"sheetName":"Sheet1"}`
	c, rec := newContext(http.MethodPost, "/imports/analyze", strings.NewReader(body))

	handler.Analyze(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.EqualValues(t, 1, resp["totalRows"])
	assert.Equal(t, "LOCAL", resp["source"])
	assert.Equal(t, []any{"Test Case Name", nil, "Pass", "Fail"}, resp["originalHeaders"])
	assert.Equal(t, "Sheet1", srv.analyzeReq.SheetName)
	assert.Equal(t, []any{"Login", "", true, nil}, srv.analyzeReq.Rows[0])
}

func TestImportHandlerAnalyzeInputErrors(t *testing.T) {
	handler := NewImportHandler(&fakeImportSrv{})
	c, rec := newContext(http.MethodPost, "/imports/analyze", strings.NewReader("not json"))
	handler.Analyze(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrImportInput.Code, decode(t, rec).Error.Code)

	handler = NewImportHandler(&fakeImportSrv{err: appErrors.ErrImportInput})
	c, rec = newContext(http.MethodPost, "/imports/analyze", strings.NewReader(`{"headers":["a"]}`))
	handler.Analyze(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportHandlerParse(t *testing.T) {
	srv := &fakeImportSrv{}
	handler := NewImportHandler(srv)
	body, contentType := multipartBody(t, nil, "cases.csv", []byte("Name\nLogin\n"))
	c, rec := newContext(http.MethodPost, "/imports/parse", body)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Parse(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cases.csv", srv.parsedName)
	assert.Equal(t, "Name\nLogin\n", srv.parsedBody)

	c, rec = newContext(http.MethodPost, "/imports/parse", strings.NewReader(""))
	handler.Parse(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportHandlerParseTooLarge(t *testing.T) {
	handler := NewImportHandler(&fakeImportSrv{err: appErrors.ErrPayloadTooLarge})
	body, contentType := multipartBody(t, nil, "big.xlsx", []byte("PK"))
	c, rec := newContext(http.MethodPost, "/imports/parse", body)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Parse(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestImportHandlerImport(t *testing.T) {
	srv := &fakeImportSrv{}
	handler := NewImportHandler(srv)
	c, rec := newContext(http.MethodPost, "/use-cases/uc-1/test-cases/import",
		strings.NewReader(`{"headers":["Name"],"rows":[["Login"]],"commit":true}`), pathID("uc-1"))
	withRole(c, models.RoleTeamMember)

	handler.Import(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.importReq.Commit)
	require.Len(t, srv.importReq.Headers, 1)
	assert.Equal(t, "Name", *srv.importReq.Headers[0])
	assert.Contains(t, string(decode(t, rec).Data), `"committed":true`)
}
