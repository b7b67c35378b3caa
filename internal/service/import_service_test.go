package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/importer"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

func headerList(values ...string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

func exampleAnalyzeRequest() dto.AnalyzeRequest {
	return dto.AnalyzeRequest{
		SheetName: "Sheet1",
		Headers:   headerList("Test Case Name", "Desc", "Pass", "Fail"),
		Rows: [][]any{
			{"Login works", "User can log in", "Yes", ""},
			{"", "", "", ""},
			{"Logout works", "", "", "Failed"},
		},
	}
}

func newImportFixture(ucs ...*models.UseCase) (*ImportService, *testCaseFixture, *MetricsService) {
	tcFixture := newTestCaseFixture(ucs...)
	metrics := tcFixture.metrics
	analyzer := importer.NewAnalyzer(importer.WithRecorder(metrics))
	svc := NewImportService(analyzer, newStubUseCaseRepo(ucs...), tcFixture.svc, nil, ImportServiceConfig{MaxRows: 10, MaxFileSizeBytes: 1024})
	return svc, tcFixture, metrics
}

func TestImportServiceAnalyzeLocalFallback(t *testing.T) {
	svc, _, metrics := newImportFixture()

	resp, err := svc.Analyze(context.Background(), exampleAnalyzeRequest())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, importer.SourceLocal, resp.Source)
	assert.Equal(t, 3, resp.TotalRows)
	assert.Equal(t, headerList("Test Case Name", "Desc", "Pass", "Fail"), resp.OriginalHeaders)
	require.Len(t, resp.MappedData, 2)
	assert.Equal(t, models.TestStatusPassed, resp.MappedData[0].Status)
	assert.Equal(t, models.TestStatusFailed, resp.MappedData[1].Status)
	assert.Equal(t, importer.ConfidenceMedium, resp.Analysis.Confidence)
	assert.Equal(t, 1, resp.Analysis.SkippedRows)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.ImportAnalyses[string(importer.SourceLocal)])
	assert.Equal(t, uint64(1), snapshot.ImportFallbacks[importer.ReasonDisabled])
}

func TestImportServiceAnalyzeRejectsMissingInput(t *testing.T) {
	svc, _, _ := newImportFixture()

	_, err := svc.Analyze(context.Background(), dto.AnalyzeRequest{Headers: headerList("a")})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.ErrorIs(t, err, appErrors.ErrImportInput)

	_, err = svc.Analyze(context.Background(), dto.AnalyzeRequest{Rows: [][]any{}})
	assert.ErrorIs(t, err, appErrors.ErrImportInput)

	tooMany := dto.AnalyzeRequest{Headers: headerList("name"), Rows: make([][]any, 11)}
	_, err = svc.Analyze(context.Background(), tooMany)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestImportServiceAnalyzeEmptySheet(t *testing.T) {
	svc, _, _ := newImportFixture()

	resp, err := svc.Analyze(context.Background(), dto.AnalyzeRequest{Headers: headerList(), Rows: [][]any{}})
	require.NoError(t, err)
	assert.Empty(t, resp.MappedData)
	assert.Zero(t, resp.TotalRows)
}

func TestImportServiceAnalyzeKeepsNullHeaders(t *testing.T) {
	svc, _, _ := newImportFixture()

	var req dto.AnalyzeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"headers":["Name",null,"Priority"],"rows":[["Login","x","high"]]}`), &req))

	resp, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.OriginalHeaders, 3)
	assert.Nil(t, resp.OriginalHeaders[1])
	require.Len(t, resp.MappedData, 1)
	assert.Equal(t, models.PriorityHigh, resp.MappedData[0].Priority)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"originalHeaders":["Name",null,"Priority"]`)
}

func TestImportServiceImportPreviewDoesNotPersist(t *testing.T) {
	svc, tc, _ := newImportFixture(draftUseCase("uc-1"))

	resp, err := svc.ImportTestCases(context.Background(), memberActor, "uc-1", dto.ImportTestCasesRequest{AnalyzeRequest: exampleAnalyzeRequest()})
	require.NoError(t, err)
	assert.False(t, resp.Committed)
	assert.Nil(t, resp.Batch)
	assert.Len(t, resp.MappedData, 2)
	assert.Empty(t, tc.repo.items)
}

func TestImportServiceImportCommit(t *testing.T) {
	svc, tc, _ := newImportFixture(draftUseCase("uc-1"))

	resp, err := svc.ImportTestCases(context.Background(), memberActor, "uc-1", dto.ImportTestCasesRequest{AnalyzeRequest: exampleAnalyzeRequest(), Commit: true})
	require.NoError(t, err)
	require.True(t, resp.Committed)
	require.NotNil(t, resp.Batch)
	assert.Equal(t, 2, resp.Batch.Succeeded)
	assert.Zero(t, resp.Batch.Failed)
	require.Len(t, tc.repo.items, 2)
	assert.Equal(t, "Login works", tc.repo.items[0].Name)
	assert.Equal(t, 1, tc.repo.items[0].Sequence)
	assert.Equal(t, 2, tc.repo.items[1].Sequence)
	assert.Equal(t, models.TestCaseSourceImport, tc.repo.items[1].Source)
	assert.Equal(t, []models.ActivityType{models.ActivityTestCasesImported}, tc.activity.types())
}

func TestImportServiceImportChecksAccess(t *testing.T) {
	svc, _, _ := newImportFixture(draftUseCase("uc-1"))

	_, err := svc.ImportTestCases(context.Background(), viewerActor, "uc-1", dto.ImportTestCasesRequest{AnalyzeRequest: exampleAnalyzeRequest()})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.ImportTestCases(context.Background(), otherTenant, "uc-1", dto.ImportTestCasesRequest{AnalyzeRequest: exampleAnalyzeRequest()})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestImportServiceParse(t *testing.T) {
	svc, _, _ := newImportFixture()

	resp, err := svc.Parse(context.Background(), "cases.csv", strings.NewReader("Name,Status\nLogin,Pass\n"))
	require.NoError(t, err)
	require.Len(t, resp.Sheets, 1)
	assert.Equal(t, "cases", resp.Sheets[0].Name)
	assert.Equal(t, []string{"Name", "Status"}, resp.Sheets[0].Headers)

	_, err = svc.Parse(context.Background(), "cases.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Parse(context.Background(), "big.csv", strings.NewReader(strings.Repeat("a", 2048)))
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErrors.FromError(err).Status)
}
