package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

var (
	adminActor    = models.Actor{UserID: "u-admin", TenantID: "t1", FullName: "Ada Admin", Role: models.RoleAdmin}
	leadActor     = models.Actor{UserID: "u-lead", TenantID: "t1", FullName: "Lee Lead", Role: models.RoleTeamLead}
	memberActor   = models.Actor{UserID: "u-member", TenantID: "t1", FullName: "Max Member", Role: models.RoleTeamMember}
	customerActor = models.Actor{UserID: "u-cust", TenantID: "t1", FullName: "Cy Customer", Role: models.RoleCustomerIncharge}
	viewerActor   = models.Actor{UserID: "u-view", TenantID: "t1", FullName: "Vi Viewer", Role: models.RoleViewer}
	otherTenant   = models.Actor{UserID: "u-x", TenantID: "t2", FullName: "Xo Other", Role: models.RoleAdmin}
)

type stubUseCaseRepo struct {
	mu         sync.Mutex
	items      map[string]*models.UseCase
	updateErr  error
	archiveErr error
	lastFilter models.UseCaseFilter
}

func newStubUseCaseRepo(ucs ...*models.UseCase) *stubUseCaseRepo {
	repo := &stubUseCaseRepo{items: map[string]*models.UseCase{}}
	for _, uc := range ucs {
		repo.items[uc.ID] = uc
	}
	return repo
}

func (s *stubUseCaseRepo) List(_ context.Context, filter models.UseCaseFilter) ([]models.UseCase, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	var out []models.UseCase
	for _, uc := range s.items {
		if uc.TenantID == filter.TenantID {
			out = append(out, *uc)
		}
	}
	return out, len(out), nil
}

func (s *stubUseCaseRepo) FindByID(_ context.Context, tenantID, id string) (*models.UseCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uc, ok := s.items[id]
	if !ok || uc.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	clone := *uc
	return &clone, nil
}

func (s *stubUseCaseRepo) Create(_ context.Context, uc *models.UseCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uc.ID == "" {
		uc.ID = "uc-new"
	}
	clone := *uc
	s.items[uc.ID] = &clone
	return nil
}

func (s *stubUseCaseRepo) Update(_ context.Context, uc *models.UseCase, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.items[uc.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	uc.Version = expectedVersion + 1
	clone := *uc
	s.items[uc.ID] = &clone
	return nil
}

func (s *stubUseCaseRepo) Archive(_ context.Context, tenantID, id string, expectedVersion int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.archiveErr != nil {
		return s.archiveErr
	}
	stored, ok := s.items[id]
	if !ok || stored.TenantID != tenantID || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	stored.Status = models.UseCaseStatusArchived
	stored.Version++
	stored.UpdatedAt = at
	return nil
}

func (s *stubUseCaseRepo) get(id string) models.UseCase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.items[id]
}

// stubApprovalStore mimics the transactional store: the record is kept only
// when the conditional status update succeeds.
type stubApprovalStore struct {
	useCases  *stubUseCaseRepo
	records   []models.ApprovalRecord
	updateErr error
	calls     int
}

func (s *stubApprovalStore) RecordTransition(_ context.Context, t *models.StatusTransition) error {
	s.calls++
	if t.Record.ID == "" {
		t.Record.ID = "ap-" + string(rune('0'+s.calls))
	}
	if s.updateErr != nil {
		return s.updateErr
	}
	s.useCases.mu.Lock()
	defer s.useCases.mu.Unlock()
	uc, ok := s.useCases.items[t.Record.UseCaseID]
	if !ok || uc.Status != t.Record.FromStatus || uc.Version != t.ExpectedVersion {
		return repository.ErrVersionConflict
	}
	uc.Status = t.Record.ToStatus
	uc.Version++
	s.records = append(s.records, t.Record)
	return nil
}

func (s *stubApprovalStore) ListByUseCase(_ context.Context, tenantID, useCaseID string) ([]models.ApprovalRecord, error) {
	var out []models.ApprovalRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.TenantID == tenantID && rec.UseCaseID == useCaseID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubActivity struct {
	mu      sync.Mutex
	entries []models.Activity
}

func (s *stubActivity) Record(_ context.Context, activity models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, activity)
}

func (s *stubActivity) types() []models.ActivityType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ActivityType, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Type)
	}
	return out
}

type stubCacheRepo struct {
	mu          sync.Mutex
	values      map[string]interface{}
	invalidated []string
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{values: map[string]interface{}{}}
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if summary, ok := v.(*models.DashboardSummary); ok {
		if out, ok := dest.(*models.DashboardSummary); ok {
			*out = *summary
		}
	}
	return nil
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, pattern)
	s.values = map[string]interface{}{}
	return nil
}

func newTestCache(repo *stubCacheRepo, metrics *MetricsService) *CacheService {
	return NewCacheService(repo, metrics, time.Minute, nil, true)
}

func draftUseCase(id string) *models.UseCase {
	uc := models.NewUseCase("t1", "u-member", "Invoice OCR")
	uc.ID = id
	return uc
}

func useCaseIn(id string, status models.UseCaseStatus, version int) *models.UseCase {
	uc := draftUseCase(id)
	uc.Status = status
	uc.Version = version
	return uc
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
