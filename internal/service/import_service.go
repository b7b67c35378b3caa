package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/importer"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

type sheetAnalyzer interface {
	Analyze(ctx context.Context, s sheet.RawSheet) (importer.Result, error)
}

type batchInserter interface {
	InsertBatch(ctx context.Context, actor models.Actor, useCaseID string, items []models.CanonicalTestCase, source models.TestCaseSource) (*models.BatchResult, error)
}

// ImportServiceConfig bounds import work.
type ImportServiceConfig struct {
	MaxRows          int
	MaxFileSizeBytes int64
}

// ImportService turns spreadsheets into test cases.
type ImportService struct {
	analyzer  sheetAnalyzer
	useCases  useCaseReader
	testCases batchInserter
	logger    *zap.Logger
	cfg       ImportServiceConfig
}

// NewImportService constructs the service.
func NewImportService(analyzer sheetAnalyzer, useCases useCaseReader, testCases batchInserter, logger *zap.Logger, cfg ImportServiceConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	return &ImportService{analyzer: analyzer, useCases: useCases, testCases: testCases, logger: logger, cfg: cfg}
}

// Analyze maps a sheet onto canonical test cases. A failing remote mapping
// never fails the call.
func (s *ImportService) Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	raw := req.Sheet()
	if err := importer.Validate(raw); err != nil {
		return nil, err
	}
	if len(raw.Rows) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sheet has %d rows (max %d)", len(raw.Rows), s.cfg.MaxRows))
	}

	result, err := s.analyzer.Analyze(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &dto.AnalyzeResponse{
		Success:         true,
		Analysis:        result.Analysis,
		MappedData:      result.MappedData,
		OriginalHeaders: req.Headers,
		TotalRows:       len(raw.Rows),
		Source:          result.Source,
	}, nil
}

// Parse reads an uploaded csv or xlsx file into raw sheets.
func (s *ImportService) Parse(ctx context.Context, filename string, r io.Reader) (*dto.ParseSheetsResponse, error) {
	sheets, err := sheet.Parse(filename, r, sheet.Limits{MaxBytes: s.cfg.MaxFileSizeBytes, MaxRows: s.cfg.MaxRows})
	if err != nil {
		switch {
		case errors.Is(err, sheet.ErrTooLarge):
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("spreadsheet exceeds %d bytes", s.cfg.MaxFileSizeBytes))
		case errors.Is(err, sheet.ErrUnsupportedFormat), errors.Is(err, sheet.ErrTooManyRows), errors.Is(err, sheet.ErrEmpty):
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		default:
			s.logger.Warn("spreadsheet parse failed", zap.String("file", filename), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "spreadsheet could not be read")
		}
	}
	return &dto.ParseSheetsResponse{FileName: filename, Sheets: sheets}, nil
}

// ImportTestCases analyzes a sheet for a use case and, when req.Commit is
// set, stores the mapped rows through the batch insert.
func (s *ImportService) ImportTestCases(ctx context.Context, actor models.Actor, useCaseID string, req dto.ImportTestCasesRequest) (*dto.ImportTestCasesResponse, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	if _, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID); err != nil {
		return nil, lookupError(err, "use case")
	}

	analysis, err := s.Analyze(ctx, req.AnalyzeRequest)
	if err != nil {
		return nil, err
	}
	resp := &dto.ImportTestCasesResponse{AnalyzeResponse: *analysis}
	if !req.Commit {
		return resp, nil
	}

	batch, err := s.testCases.InsertBatch(ctx, actor, useCaseID, analysis.MappedData, models.TestCaseSourceImport)
	if err != nil {
		return nil, err
	}
	resp.Committed = true
	resp.Batch = batch
	s.logger.Info("test cases imported",
		zap.String("tenant_id", actor.TenantID),
		zap.String("use_case_id", useCaseID),
		zap.String("source", string(analysis.Source)),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed))
	return resp, nil
}
