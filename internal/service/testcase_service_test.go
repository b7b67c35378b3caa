package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

type stubTestCaseRepo struct {
	items   []*models.TestCase
	failOn  string
	nextSeq map[string]int
}

func newStubTestCaseRepo() *stubTestCaseRepo {
	return &stubTestCaseRepo{nextSeq: map[string]int{}}
}

func (s *stubTestCaseRepo) ListByUseCase(_ context.Context, tenantID, useCaseID string) ([]models.TestCase, error) {
	var out []models.TestCase
	for _, tc := range s.items {
		if tc.TenantID == tenantID && tc.UseCaseID == useCaseID {
			out = append(out, *tc)
		}
	}
	return out, nil
}

func (s *stubTestCaseRepo) FindByID(_ context.Context, tenantID, useCaseID, id string) (*models.TestCase, error) {
	for _, tc := range s.items {
		if tc.TenantID == tenantID && tc.UseCaseID == useCaseID && tc.ID == id {
			clone := *tc
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubTestCaseRepo) Create(_ context.Context, tc *models.TestCase) error {
	if s.failOn != "" && tc.Name == s.failOn {
		return errors.New("unique violation")
	}
	s.nextSeq[tc.UseCaseID]++
	tc.Sequence = s.nextSeq[tc.UseCaseID]
	tc.ID = tc.UseCaseID + "-tc-" + string(rune('0'+tc.Sequence))
	clone := *tc
	s.items = append(s.items, &clone)
	return nil
}

func (s *stubTestCaseRepo) Update(_ context.Context, tc *models.TestCase) error {
	for i, existing := range s.items {
		if existing.ID == tc.ID {
			clone := *tc
			s.items[i] = &clone
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubTestCaseRepo) Delete(_ context.Context, tenantID, useCaseID, id string) error {
	for i, existing := range s.items {
		if existing.TenantID == tenantID && existing.UseCaseID == useCaseID && existing.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type testCaseFixture struct {
	svc       *TestCaseService
	repo      *stubTestCaseRepo
	activity  *stubActivity
	cacheRepo *stubCacheRepo
	metrics   *MetricsService
}

func newTestCaseFixture(ucs ...*models.UseCase) *testCaseFixture {
	repo := newStubTestCaseRepo()
	activity := &stubActivity{}
	cacheRepo := newStubCacheRepo()
	metrics := NewMetricsService()
	svc := NewTestCaseService(repo, newStubUseCaseRepo(ucs...), activity, newTestCache(cacheRepo, metrics), metrics, nil, nil)
	return &testCaseFixture{svc: svc, repo: repo, activity: activity, cacheRepo: cacheRepo, metrics: metrics}
}

func TestTestCaseServiceCreateAppliesDefaults(t *testing.T) {
	f := newTestCaseFixture(draftUseCase("uc-1"))

	tc, err := f.svc.Create(context.Background(), memberActor, "uc-1", dto.CreateTestCaseRequest{Name: " Login works "})
	require.NoError(t, err)
	assert.Equal(t, "Login works", tc.Name)
	assert.Equal(t, models.PriorityMedium, tc.Priority)
	assert.Equal(t, models.TestStatusPending, tc.Status)
	assert.Equal(t, models.TestCaseSourceManual, tc.Source)
	assert.Equal(t, 1, tc.Sequence)
	assert.Equal(t, []models.ActivityType{models.ActivityTestCaseCreated}, f.activity.types())
	assert.Equal(t, []string{"dashboard:t1:*"}, f.cacheRepo.invalidated)
}

func TestTestCaseServiceCreateRejections(t *testing.T) {
	f := newTestCaseFixture(draftUseCase("uc-1"), useCaseIn("uc-arch", models.UseCaseStatusArchived, 3))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, customerActor, "uc-1", dto.CreateTestCaseRequest{Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Create(ctx, memberActor, "uc-1", dto.CreateTestCaseRequest{Name: "x", Priority: "URGENT"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Create(ctx, memberActor, "uc-arch", dto.CreateTestCaseRequest{Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = f.svc.Create(ctx, memberActor, "missing", dto.CreateTestCaseRequest{Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, f.repo.items)
}

func TestTestCaseServiceInsertBatchIsolatesFailures(t *testing.T) {
	f := newTestCaseFixture(draftUseCase("uc-1"))
	f.repo.failOn = "dup"

	items := []models.CanonicalTestCase{
		{Name: "first", Priority: models.PriorityHigh, Status: models.TestStatusPassed},
		{Name: "", Priority: models.PriorityLow, Status: models.TestStatusPending},
		{Name: "dup", Priority: models.PriorityLow, Status: models.TestStatusPending},
		{Name: "last", Priority: models.PriorityMedium, Status: models.TestStatusFailed},
	}
	result, err := f.svc.InsertBatch(context.Background(), memberActor, "uc-1", items, models.TestCaseSourceImport)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Items, 4)
	for i, item := range result.Items {
		assert.Equal(t, i, item.Index)
	}
	assert.True(t, result.Items[0].Success)
	assert.Equal(t, 1, result.Items[0].TestCase.Sequence)
	assert.Equal(t, "name is required", result.Items[1].Error)
	assert.Equal(t, "failed to save row", result.Items[2].Error)
	assert.Nil(t, result.Items[2].TestCase)
	assert.True(t, result.Items[3].Success)
	assert.Equal(t, 2, result.Items[3].TestCase.Sequence)
	assert.Equal(t, models.TestCaseSourceImport, result.Items[3].TestCase.Source)

	assert.Equal(t, []models.ActivityType{models.ActivityTestCasesImported}, f.activity.types())
	assert.Len(t, f.cacheRepo.invalidated, 1)
}

func TestTestCaseServiceBatchCreateValidatesEachItem(t *testing.T) {
	f := newTestCaseFixture(draftUseCase("uc-1"))

	result, err := f.svc.BatchCreate(context.Background(), leadActor, "uc-1", dto.BatchCreateTestCasesRequest{Items: []dto.CreateTestCaseRequest{
		{Name: "ok", Status: models.TestStatusBlocked},
		{Name: "bad", Status: "SKIPPED"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, strings.HasPrefix(result.Items[1].Error, "validation failed"))
	assert.Equal(t, models.TestStatusBlocked, result.Items[0].TestCase.Status)
	assert.Equal(t, []models.ActivityType{models.ActivityTestCaseCreated}, f.activity.types())

	_, err = f.svc.BatchCreate(context.Background(), leadActor, "uc-1", dto.BatchCreateTestCasesRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTestCaseServiceBatchWithNoSuccessSkipsActivity(t *testing.T) {
	f := newTestCaseFixture(draftUseCase("uc-1"))

	result, err := f.svc.InsertBatch(context.Background(), memberActor, "uc-1", []models.CanonicalTestCase{{Name: "  "}}, models.TestCaseSourceImport)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, f.activity.types())
	assert.Empty(t, f.cacheRepo.invalidated)
}

func TestTestCaseServiceUpdateAndDelete(t *testing.T) {
	f := newTestCaseFixture(draftUseCase("uc-1"))
	ctx := context.Background()
	tc, err := f.svc.Create(ctx, memberActor, "uc-1", dto.CreateTestCaseRequest{Name: "login"})
	require.NoError(t, err)

	passed := models.TestStatusPassed
	updated, err := f.svc.Update(ctx, memberActor, "uc-1", tc.ID, dto.UpdateTestCaseRequest{Status: &passed, JiraURL: strPtr("https://jira/T-1")})
	require.NoError(t, err)
	assert.Equal(t, models.TestStatusPassed, updated.Status)
	assert.Equal(t, "https://jira/T-1", updated.JiraURL)
	assert.Equal(t, "login", updated.Name)

	bogus := models.TestCaseStatus("DONE")
	_, err = f.svc.Update(ctx, memberActor, "uc-1", tc.ID, dto.UpdateTestCaseRequest{Status: &bogus})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Update(ctx, memberActor, "uc-1", tc.ID, dto.UpdateTestCaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Update(ctx, memberActor, "uc-1", "nope", dto.UpdateTestCaseRequest{Status: &passed})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, memberActor, "uc-1", tc.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, memberActor, "uc-1", tc.ID), appErrors.ErrNotFound)
	assert.Equal(t, []models.ActivityType{
		models.ActivityTestCaseCreated,
		models.ActivityTestCaseUpdated,
		models.ActivityTestCaseDeleted,
	}, f.activity.types())
}

func TestTestCaseServiceExport(t *testing.T) {
	f := newTestCaseFixture(draftUseCase("uc-1"))
	ctx := context.Background()
	_, err := f.svc.Create(ctx, memberActor, "uc-1", dto.CreateTestCaseRequest{Name: "login", Priority: models.PriorityHigh})
	require.NoError(t, err)

	file, err := f.svc.Export(ctx, viewerActor, "uc-1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "test-cases-uc-1.csv", file.Filename)
	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "#,Name,Description,Priority,Status,Jira", lines[0])
	assert.Equal(t, "1,login,,HIGH,PENDING,", lines[1])

	pdf, err := f.svc.Export(ctx, viewerActor, "uc-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Data), "%PDF"))

	_, err = f.svc.Export(ctx, viewerActor, "uc-1", "xml")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
