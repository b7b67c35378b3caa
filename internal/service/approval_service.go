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

// Outcomes reported for each transition attempt.
const (
	TransitionOutcomeApplied  = "applied"
	TransitionOutcomeRejected = "rejected"
	TransitionOutcomeConflict = "conflict"
	TransitionOutcomeFailed   = "failed"
)

type useCaseReader interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.UseCase, error)
}

type approvalStore interface {
	RecordTransition(ctx context.Context, t *models.StatusTransition) error
	ListByUseCase(ctx context.Context, tenantID, useCaseID string) ([]models.ApprovalRecord, error)
}

// ApprovalService drives use cases through the review workflow.
type ApprovalService struct {
	useCases  useCaseReader
	approvals approvalStore
	activity  activityRecorder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalService constructs the service.
func NewApprovalService(useCases useCaseReader, approvals approvalStore, activity activityRecorder, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if activity == nil {
		activity = noopActivity{}
	}
	return &ApprovalService{
		useCases:  useCases,
		approvals: approvals,
		activity:  activity,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit sends a draft or returned use case to lead review.
func (s *ApprovalService) Submit(ctx context.Context, actor models.Actor, useCaseID string, req dto.TransitionRequest) (*dto.TransitionResult, error) {
	return s.Transition(ctx, actor, useCaseID, models.ApprovalActionSubmitted, req)
}

// Approve advances a pending use case to its next stage.
func (s *ApprovalService) Approve(ctx context.Context, actor models.Actor, useCaseID string, req dto.TransitionRequest) (*dto.TransitionResult, error) {
	return s.Transition(ctx, actor, useCaseID, models.ApprovalActionApproved, req)
}

// RequestChanges returns a pending use case to its authors.
func (s *ApprovalService) RequestChanges(ctx context.Context, actor models.Actor, useCaseID string, req dto.TransitionRequest) (*dto.TransitionResult, error) {
	return s.Transition(ctx, actor, useCaseID, models.ApprovalActionChangesRequested, req)
}

// Transition applies action to the use case. Authorization and the
// transition table are checked before anything is written; the history
// record and the status change are persisted together or not at all.
func (s *ApprovalService) Transition(ctx context.Context, actor models.Actor, useCaseID string, action models.ApprovalAction, req dto.TransitionRequest) (*dto.TransitionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	uc, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID)
	if err != nil {
		return nil, lookupError(err, "use case")
	}

	to, err := ResolveTransition(uc.Status, action, actor.Role)
	if err != nil {
		s.metrics.ObserveApprovalTransition(action, TransitionOutcomeRejected)
		return nil, err
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != uc.Version {
		s.metrics.ObserveApprovalTransition(action, TransitionOutcomeConflict)
		return nil, appErrors.Clone(appErrors.ErrStaleVersion, fmt.Sprintf("use case is at version %d", uc.Version))
	}

	transition := &models.StatusTransition{
		Record: models.ApprovalRecord{
			UseCaseID:      uc.ID,
			TenantID:       uc.TenantID,
			Action:         action,
			FromStatus:     uc.Status,
			ToStatus:       to,
			ApproverUserID: actor.UserID,
			ApproverName:   actor.FullName,
			ApproverRole:   actor.Role,
			Comments:       strings.TrimSpace(req.Comments),
			CreatedAt:      s.now(),
		},
		ExpectedVersion: uc.Version,
	}
	if err := s.approvals.RecordTransition(ctx, transition); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.ObserveApprovalTransition(action, TransitionOutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "use case changed while the transition was being applied")
		}
		s.metrics.ObserveApprovalTransition(action, TransitionOutcomeFailed)
		s.logger.Error("approval transition failed",
			zap.String("use_case_id", uc.ID),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record transition; status unchanged")
	}

	record := transition.Record
	uc.Status = record.ToStatus
	uc.Version = transition.ExpectedVersion + 1
	uc.UpdatedAt = record.CreatedAt

	s.metrics.ObserveApprovalTransition(action, TransitionOutcomeApplied)
	s.cache.Invalidate(ctx, cache.DashboardPattern(uc.TenantID))
	s.activity.Record(ctx, newActivity(actor, uc.ID, activityForAction(action),
		fmt.Sprintf("%s moved %q from %s to %s", actor.FullName, uc.Name, record.FromStatus, record.ToStatus),
		map[string]interface{}{
			"approvalId": record.ID,
			"fromStatus": record.FromStatus,
			"toStatus":   record.ToStatus,
			"comments":   record.Comments,
		}))
	s.logger.Info("use case transitioned",
		zap.String("tenant_id", uc.TenantID),
		zap.String("use_case_id", uc.ID),
		zap.String("from", string(record.FromStatus)),
		zap.String("to", string(record.ToStatus)))

	return &dto.TransitionResult{UseCase: uc, Approval: record}, nil
}

// List returns the approval history of a use case, newest first.
func (s *ApprovalService) List(ctx context.Context, actor models.Actor, useCaseID string) ([]models.ApprovalRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID); err != nil {
		return nil, lookupError(err, "use case")
	}
	records, err := s.approvals.ListByUseCase(ctx, actor.TenantID, useCaseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approvals")
	}
	return records, nil
}

func activityForAction(action models.ApprovalAction) models.ActivityType {
	switch action {
	case models.ApprovalActionApproved:
		return models.ActivityUseCaseApproved
	case models.ApprovalActionChangesRequested:
		return models.ActivityUseCaseChangesRequested
	default:
		return models.ActivityUseCaseSubmitted
	}
}
