package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/pkg/cache"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/export"
)

// Export formats accepted by TestCaseService.Export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type testCaseStore interface {
	ListByUseCase(ctx context.Context, tenantID, useCaseID string) ([]models.TestCase, error)
	FindByID(ctx context.Context, tenantID, useCaseID, id string) (*models.TestCase, error)
	Create(ctx context.Context, tc *models.TestCase) error
	Update(ctx context.Context, tc *models.TestCase) error
	Delete(ctx context.Context, tenantID, useCaseID, id string) error
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportFile is a rendered test case listing.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TestCaseService manages test cases of a use case.
type TestCaseService struct {
	testCases testCaseStore
	useCases  useCaseReader
	activity  activityRecorder
	cache     *CacheService
	metrics   *MetricsService
	renderers map[string]datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTestCaseService constructs the service with the CSV and PDF exporters.
func NewTestCaseService(testCases testCaseStore, useCases useCaseReader, activity activityRecorder, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TestCaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if activity == nil {
		activity = noopActivity{}
	}
	return &TestCaseService{
		testCases: testCases,
		useCases:  useCases,
		activity:  activity,
		cache:     cacheSvc,
		metrics:   metrics,
		renderers: map[string]datasetRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns the test cases of a use case ordered by sequence.
func (s *TestCaseService) List(ctx context.Context, actor models.Actor, useCaseID string) ([]models.TestCase, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID); err != nil {
		return nil, lookupError(err, "use case")
	}
	items, err := s.testCases.ListByUseCase(ctx, actor.TenantID, useCaseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list test cases")
	}
	return items, nil
}

// Create adds one manually entered test case.
func (s *TestCaseService) Create(ctx context.Context, actor models.Actor, useCaseID string, req dto.CreateTestCaseRequest) (*models.TestCase, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test case payload")
	}
	canonical := req.Canonical()
	if err := validateCanonical(canonical); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	uc, err := s.writableUseCase(ctx, actor, useCaseID)
	if err != nil {
		return nil, err
	}

	tc := s.newTestCase(actor, uc.ID, canonical, models.TestCaseSourceManual)
	if err := s.testCases.Create(ctx, tc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create test case")
	}

	s.cache.Invalidate(ctx, cache.DashboardPattern(actor.TenantID))
	s.activity.Record(ctx, newActivity(actor, uc.ID, models.ActivityTestCaseCreated,
		fmt.Sprintf("%s added test case #%d %q", actor.FullName, tc.Sequence, tc.Name),
		map[string]interface{}{"testCaseId": tc.ID}))
	return tc, nil
}

// BatchCreate inserts many manually entered test cases. Invalid items fail
// individually; the request only fails as a whole when the use case cannot
// take test cases.
func (s *TestCaseService) BatchCreate(ctx context.Context, actor models.Actor, useCaseID string, req dto.BatchCreateTestCasesRequest) (*models.BatchResult, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "items are required")
	}
	if len(req.Items) > 5000 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at most 5000 items per batch")
	}
	uc, err := s.writableUseCase(ctx, actor, useCaseID)
	if err != nil {
		return nil, err
	}

	items := make([]models.CanonicalTestCase, len(req.Items))
	invalid := make(map[int]string)
	for i, item := range req.Items {
		if err := s.validator.Struct(item); err != nil {
			invalid[i] = "validation failed: " + err.Error()
			continue
		}
		items[i] = item.Canonical()
	}
	return s.insertBatch(ctx, actor, uc, items, invalid, models.TestCaseSourceManual), nil
}

// InsertBatch persists already normalized rows, one at a time in order, and
// reports the outcome of each. One activity entry summarises the batch.
func (s *TestCaseService) InsertBatch(ctx context.Context, actor models.Actor, useCaseID string, items []models.CanonicalTestCase, source models.TestCaseSource) (*models.BatchResult, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	uc, err := s.writableUseCase(ctx, actor, useCaseID)
	if err != nil {
		return nil, err
	}
	return s.insertBatch(ctx, actor, uc, items, nil, source), nil
}

func (s *TestCaseService) insertBatch(ctx context.Context, actor models.Actor, uc *models.UseCase, items []models.CanonicalTestCase, invalid map[int]string, source models.TestCaseSource) *models.BatchResult {
	result := &models.BatchResult{Items: make([]models.BatchItemResult, 0, len(items)), Total: len(items)}
	for i, item := range items {
		entry := models.BatchItemResult{Index: i}
		switch msg, bad := invalid[i]; {
		case bad:
			entry.Error = msg
		case ctx.Err() != nil:
			entry.Error = "request cancelled before the row was saved"
		default:
			if err := validateCanonical(item); err != nil {
				entry.Error = err.Error()
				break
			}
			tc := s.newTestCase(actor, uc.ID, item, source)
			if err := s.testCases.Create(ctx, tc); err != nil {
				s.logger.Warn("batch row failed",
					zap.String("use_case_id", uc.ID),
					zap.Int("index", i),
					zap.Error(err))
				entry.Error = "failed to save row"
				break
			}
			entry.Success = true
			entry.TestCase = tc
		}
		if entry.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, entry)
	}

	s.metrics.RecordImportRows(result.Succeeded, result.Failed)
	if result.Succeeded > 0 {
		s.cache.Invalidate(ctx, cache.DashboardPattern(actor.TenantID))
		kind := models.ActivityTestCaseCreated
		verb := "added"
		if source == models.TestCaseSourceImport {
			kind = models.ActivityTestCasesImported
			verb = "imported"
		}
		s.activity.Record(ctx, newActivity(actor, uc.ID, kind,
			fmt.Sprintf("%s %s %d test cases into %q", actor.FullName, verb, result.Succeeded, uc.Name),
			map[string]interface{}{
				"total":     result.Total,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
				"source":    source,
			}))
	}
	return result
}

// Update applies an allow-listed delta to a test case.
func (s *TestCaseService) Update(ctx context.Context, actor models.Actor, useCaseID, testCaseID string, req dto.UpdateTestCaseRequest) (*models.TestCase, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test case payload")
	}
	delta := req.Delta()
	if delta.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no editable fields supplied")
	}
	uc, err := s.writableUseCase(ctx, actor, useCaseID)
	if err != nil {
		return nil, err
	}
	tc, err := s.testCases.FindByID(ctx, actor.TenantID, uc.ID, testCaseID)
	if err != nil {
		return nil, lookupError(err, "test case")
	}

	delta.Apply(tc)
	tc.Name = strings.TrimSpace(tc.Name)
	if err := validateCanonical(tc.CanonicalTestCase); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.testCases.Update(ctx, tc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update test case")
	}

	s.cache.Invalidate(ctx, cache.DashboardPattern(actor.TenantID))
	s.activity.Record(ctx, newActivity(actor, uc.ID, models.ActivityTestCaseUpdated,
		fmt.Sprintf("%s updated test case #%d %q", actor.FullName, tc.Sequence, tc.Name),
		map[string]interface{}{"testCaseId": tc.ID, "status": tc.Status}))
	return tc, nil
}

// Delete removes a test case.
func (s *TestCaseService) Delete(ctx context.Context, actor models.Actor, useCaseID, testCaseID string) error {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return err
	}
	uc, err := s.writableUseCase(ctx, actor, useCaseID)
	if err != nil {
		return err
	}
	if err := s.testCases.Delete(ctx, actor.TenantID, uc.ID, testCaseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "test case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete test case")
	}

	s.cache.Invalidate(ctx, cache.DashboardPattern(actor.TenantID))
	s.activity.Record(ctx, newActivity(actor, uc.ID, models.ActivityTestCaseDeleted,
		fmt.Sprintf("%s deleted a test case from %q", actor.FullName, uc.Name),
		map[string]interface{}{"testCaseId": testCaseID}))
	return nil
}

// Export renders the test cases of a use case as csv or pdf.
func (s *TestCaseService) Export(ctx context.Context, actor models.Actor, useCaseID, format string) (*ExportFile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	uc, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID)
	if err != nil {
		return nil, lookupError(err, "use case")
	}
	items, err := s.testCases.ListByUseCase(ctx, actor.TenantID, uc.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list test cases")
	}

	data, err := renderer.Render(testCaseDataset(uc, items))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("test-cases-%s.%s", uc.ID, format),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func (s *TestCaseService) writableUseCase(ctx context.Context, actor models.Actor, useCaseID string) (*models.UseCase, error) {
	uc, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID)
	if err != nil {
		return nil, lookupError(err, "use case")
	}
	if uc.Status == models.UseCaseStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "archived use cases are read-only")
	}
	return uc, nil
}

func (s *TestCaseService) newTestCase(actor models.Actor, useCaseID string, canonical models.CanonicalTestCase, source models.TestCaseSource) *models.TestCase {
	return &models.TestCase{
		UseCaseID:         useCaseID,
		TenantID:          actor.TenantID,
		CanonicalTestCase: canonical,
		Source:            source,
		CreatedBy:         actor.UserID,
		CreatedAt:         s.now(),
	}
}

func validateCanonical(tc models.CanonicalTestCase) error {
	if strings.TrimSpace(tc.Name) == "" {
		return errors.New("name is required")
	}
	if !tc.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", tc.Priority)
	}
	if !tc.Status.Valid() {
		return fmt.Errorf("unknown status %q", tc.Status)
	}
	return nil
}

func testCaseDataset(uc *models.UseCase, items []models.TestCase) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, tc := range items {
		rows = append(rows, map[string]string{
			"sequence":    strconv.Itoa(tc.Sequence),
			"name":        tc.Name,
			"description": tc.Description,
			"priority":    string(tc.Priority),
			"status":      string(tc.Status),
			"jira":        tc.JiraURL,
		})
	}
	return export.Dataset{
		Title: fmt.Sprintf("Test cases: %s", uc.Name),
		Columns: []export.Column{
			{Key: "sequence", Label: "#", Weight: 0.4},
			{Key: "name", Label: "Name", Weight: 2},
			{Key: "description", Label: "Description", Weight: 3},
			{Key: "priority", Label: "Priority", Weight: 0.8},
			{Key: "status", Label: "Status", Weight: 0.8},
			{Key: "jira", Label: "Jira", Weight: 1.5},
		},
		Rows: rows,
	}
}
