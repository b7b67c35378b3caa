package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/internal/repository"
	"github.com/noah-isme/usecase-tracker-api/pkg/cache"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

type useCaseStore interface {
	List(ctx context.Context, filter models.UseCaseFilter) ([]models.UseCase, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.UseCase, error)
	Create(ctx context.Context, uc *models.UseCase) error
	Update(ctx context.Context, uc *models.UseCase, expectedVersion int) error
	Archive(ctx context.Context, tenantID, id string, expectedVersion int, at time.Time) error
}

// UseCaseService manages use case records outside the approval workflow.
type UseCaseService struct {
	repo      useCaseStore
	activity  activityRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUseCaseService constructs the service.
func NewUseCaseService(repo useCaseStore, activity activityRecorder, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *UseCaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if activity == nil {
		activity = noopActivity{}
	}
	return &UseCaseService{
		repo:      repo,
		activity:  activity,
		cache:     cacheSvc,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns use cases of the caller's tenant.
func (s *UseCaseService) List(ctx context.Context, actor models.Actor, query dto.ListUseCasesQuery) ([]models.UseCase, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	filter := models.UseCaseFilter{TenantID: actor.TenantID, Search: query.Search}
	for _, raw := range query.Status {
		for _, part := range strings.Split(raw, ",") {
			status := models.UseCaseStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status == "" {
				continue
			}
			if !status.Valid() {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", part))
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if query.LifecycleStage != "" {
		stage := models.LifecycleStage(strings.ToUpper(strings.TrimSpace(query.LifecycleStage)))
		if !stage.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown lifecycle stage %q", query.LifecycleStage))
		}
		filter.LifecycleStage = &stage
	}
	filter.Page, filter.PageSize = models.NormalizePage(query.Page, query.PageSize, 100)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list use cases")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one use case of the caller's tenant.
func (s *UseCaseService) Get(ctx context.Context, actor models.Actor, id string) (*models.UseCase, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	uc, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, lookupError(err, "use case")
	}
	return uc, nil
}

// Create registers a draft use case.
func (s *UseCaseService) Create(ctx context.Context, actor models.Actor, req dto.CreateUseCaseRequest) (*models.UseCase, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid use case payload")
	}

	uc := models.NewUseCase(actor.TenantID, actor.UserID, req.Name)
	uc.Description = strings.TrimSpace(req.Description)
	uc.DeploymentLocation = strings.TrimSpace(req.DeploymentLocation)
	if req.LifecycleStage != "" {
		uc.LifecycleStage = req.LifecycleStage
	}
	uc.CreatedAt = s.now()
	if err := s.repo.Create(ctx, uc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create use case")
	}

	s.cache.Invalidate(ctx, cache.DashboardPattern(actor.TenantID))
	s.activity.Record(ctx, newActivity(actor, uc.ID, models.ActivityUseCaseCreated,
		fmt.Sprintf("%s created %q", actor.FullName, uc.Name), nil))
	return uc, nil
}

// Update applies the allow-listed delta when req.Version matches the stored
// version. Status cannot be changed here.
func (s *UseCaseService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateUseCaseRequest) (*models.UseCase, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	if req.Status != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status changes go through the approval endpoints")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid use case payload")
	}
	delta := req.Delta()
	if delta.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no editable fields supplied")
	}

	uc, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, lookupError(err, "use case")
	}
	if uc.Status == models.UseCaseStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "archived use cases are read-only")
	}
	if *req.Version != uc.Version {
		return nil, appErrors.Clone(appErrors.ErrStaleVersion, fmt.Sprintf("use case is at version %d", uc.Version))
	}

	delta.Apply(uc)
	uc.Name = strings.TrimSpace(uc.Name)
	if err := s.repo.Update(ctx, uc, *req.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "use case changed while it was being updated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update use case")
	}

	s.cache.Invalidate(ctx, cache.DashboardPattern(actor.TenantID))
	s.activity.Record(ctx, newActivity(actor, uc.ID, models.ActivityUseCaseUpdated,
		fmt.Sprintf("%s updated %q", actor.FullName, uc.Name), nil))
	return uc, nil
}

// Archive retires a use case. Only admins may archive and no approval
// record is written.
func (s *UseCaseService) Archive(ctx context.Context, actor models.Actor, id string, req dto.ArchiveUseCaseRequest) (*models.UseCase, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "version is required")
	}

	uc, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, lookupError(err, "use case")
	}
	if uc.Status == models.UseCaseStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "use case is already archived")
	}
	if *req.Version != uc.Version {
		return nil, appErrors.Clone(appErrors.ErrStaleVersion, fmt.Sprintf("use case is at version %d", uc.Version))
	}

	at := s.now()
	if err := s.repo.Archive(ctx, actor.TenantID, id, *req.Version, at); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "use case changed while it was being archived")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive use case")
	}
	previous := uc.Status
	uc.Status = models.UseCaseStatusArchived
	uc.Version = *req.Version + 1
	uc.UpdatedAt = at

	s.cache.Invalidate(ctx, cache.DashboardPattern(actor.TenantID))
	s.activity.Record(ctx, newActivity(actor, uc.ID, models.ActivityUseCaseArchived,
		fmt.Sprintf("%s archived %q", actor.FullName, uc.Name),
		map[string]interface{}{"fromStatus": previous}))
	return uc, nil
}
