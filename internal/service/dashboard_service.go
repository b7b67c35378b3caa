package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/pkg/cache"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

type dashboardStore interface {
	UseCasesByStatus(ctx context.Context, tenantID string) ([]models.StatusCount, error)
	UseCasesByLifecycleStage(ctx context.Context, tenantID string) ([]models.StatusCount, error)
	TestCasesByStatus(ctx context.Context, tenantID string) ([]models.StatusCount, error)
}

// DashboardService composes the tenant summary and caches it per role.
type DashboardService struct {
	repo     dashboardStore
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(repo dashboardStore, cacheSvc *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		repo:     repo,
		cache:    cacheSvc,
		logger:   logger,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns the dashboard for the caller's tenant and role and
// reports whether it came from the cache.
func (s *DashboardService) Summary(ctx context.Context, actor models.Actor) (*models.DashboardSummary, bool, error) {
	if err := requireActor(actor); err != nil {
		return nil, false, err
	}
	key := cache.DashboardKey(actor.TenantID, string(actor.Role))
	var cached models.DashboardSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	summary, err := s.compose(ctx, actor)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, key, summary, s.cacheTTL)
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, actor models.Actor) (*models.DashboardSummary, error) {
	byStatus, err := s.repo.UseCasesByStatus(ctx, actor.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count use cases")
	}
	byStage, err := s.repo.UseCasesByLifecycleStage(ctx, actor.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lifecycle stages")
	}
	byTest, err := s.repo.TestCasesByStatus(ctx, actor.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count test cases")
	}

	summary := &models.DashboardSummary{
		TenantID:                 actor.TenantID,
		UseCasesByStatus:         make(map[models.UseCaseStatus]int, len(models.AllUseCaseStatuses)),
		UseCasesByLifecycleStage: make(map[models.LifecycleStage]int, len(models.AllLifecycleStages)),
		TestCasesByStatus:        make(map[models.TestCaseStatus]int, len(models.AllTestCaseStatuses)),
		GeneratedAt:              s.now(),
	}
	for _, status := range models.AllUseCaseStatuses {
		summary.UseCasesByStatus[status] = 0
	}
	for _, stage := range models.AllLifecycleStages {
		summary.UseCasesByLifecycleStage[stage] = 0
	}
	for _, status := range models.AllTestCaseStatuses {
		summary.TestCasesByStatus[status] = 0
	}

	for _, row := range byStatus {
		summary.UseCasesByStatus[models.UseCaseStatus(row.Key)] += row.Count
		summary.TotalUseCases += row.Count
	}
	for _, row := range byStage {
		summary.UseCasesByLifecycleStage[models.LifecycleStage(row.Key)] += row.Count
	}
	for _, row := range byTest {
		summary.TestCasesByStatus[models.TestCaseStatus(row.Key)] += row.Count
		summary.TotalTestCases += row.Count
	}

	summary.PassRate = passRate(summary.TestCasesByStatus[models.TestStatusPassed], summary.TestCasesByStatus[models.TestStatusFailed])
	summary.PendingMyApproval = pendingFor(actor.Role, summary.UseCasesByStatus)
	return summary, nil
}

// passRate is the percentage of executed tests that passed, rounded to one
// decimal. Pending and blocked tests are not executed.
func passRate(passed, failed int) float64 {
	executed := passed + failed
	if executed == 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(executed)*1000) / 10
}

func pendingFor(role models.UserRole, byStatus map[models.UseCaseStatus]int) int {
	if role == models.RoleAdmin {
		return byStatus[models.UseCaseStatusPendingLeadApproval] + byStatus[models.UseCaseStatusPendingCustomerApproval]
	}
	if status, ok := PendingStatusFor(role); ok {
		return byStatus[status]
	}
	return 0
}
