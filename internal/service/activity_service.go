package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/jobs"
)

// ActivityJobType tags queued activity writes.
const ActivityJobType = "activity.record"

type activityStore interface {
	Create(ctx context.Context, activity *models.Activity) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
}

type activityQueue interface {
	TryEnqueue(job jobs.Job) error
}

// activityRecorder is what the other services need from ActivityService.
type activityRecorder interface {
	Record(ctx context.Context, activity models.Activity)
}

// ActivityService writes and lists the tenant activity feed. Writes go
// through the job queue when one is attached and running.
type ActivityService struct {
	repo   activityStore
	queue  activityQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewActivityService constructs the service without a queue.
func NewActivityService(repo activityStore, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// AttachQueue routes subsequent writes through q. The queue's handler is
// expected to be s.Handle.
func (s *ActivityService) AttachQueue(q activityQueue) {
	s.queue = q
}

// Record stores an entry. It never fails the caller: when the queue is
// absent, stopped or full the entry is written synchronously, and a failed
// write is logged.
func (s *ActivityService) Record(ctx context.Context, activity models.Activity) {
	if s == nil || s.repo == nil {
		return
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now()
	}

	if s.queue != nil {
		err := s.queue.TryEnqueue(jobs.Job{ID: activity.ID, Type: ActivityJobType, Payload: activity})
		if err == nil {
			return
		}
		if !errors.Is(err, jobs.ErrNotRunning) {
			s.logger.Warn("activity queue rejected entry, writing inline", zap.String("activity_id", activity.ID), zap.Error(err))
		}
	}

	if err := s.repo.Create(context.WithoutCancel(ctx), &activity); err != nil {
		s.logger.Error("failed to record activity",
			zap.String("activity_id", activity.ID),
			zap.String("type", string(activity.Type)),
			zap.Error(err))
	}
}

// Handle is the queue handler for ActivityJobType jobs.
func (s *ActivityService) Handle(ctx context.Context, job jobs.Job) error {
	activity, ok := job.Payload.(models.Activity)
	if !ok {
		s.logger.Error("unexpected activity payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.repo.Create(ctx, &activity)
}

// List returns the caller's tenant feed, newest first.
func (s *ActivityService) List(ctx context.Context, actor models.Actor, query dto.ListActivityQuery) ([]models.Activity, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	page, pageSize := models.NormalizePage(query.Page, query.PageSize, 100)
	items, total, err := s.repo.List(ctx, models.ActivityFilter{
		TenantID:  actor.TenantID,
		UseCaseID: query.UseCaseID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// newActivity fills the actor fields shared by every entry.
func newActivity(actor models.Actor, useCaseID string, kind models.ActivityType, message string, metadata map[string]interface{}) models.Activity {
	activity := models.Activity{
		TenantID:  actor.TenantID,
		ActorID:   actor.UserID,
		ActorName: actor.FullName,
		Type:      kind,
		Message:   message,
	}
	if useCaseID != "" {
		id := useCaseID
		activity.UseCaseID = &id
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			activity.Metadata = raw
		}
	}
	return activity
}

type noopActivity struct{}

func (noopActivity) Record(context.Context, models.Activity) {}
