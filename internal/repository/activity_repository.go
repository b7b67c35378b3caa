package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

// ActivityRepository stores the tenant activity feed.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an entry. Replays of the same id are ignored.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	if len(activity.Metadata) == 0 {
		activity.Metadata = []byte("{}")
	}
	const query = `INSERT INTO activities (id, tenant_id, use_case_id, actor_id, actor_name, type, message, metadata, created_at)
VALUES (:id, :tenant_id, :use_case_id, :actor_id, :actor_name, :type, :message, :metadata, :created_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// List returns the newest entries first together with the total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	var builder strings.Builder
	builder.WriteString(" FROM activities WHERE tenant_id = $1")
	args := []interface{}{filter.TenantID}
	if filter.UseCaseID != "" {
		args = append(args, filter.UseCaseID)
		builder.WriteString(fmt.Sprintf(" AND use_case_id = $%d", len(args)))
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize, 100)
	listQuery := fmt.Sprintf("SELECT id, tenant_id, use_case_id, actor_id, actor_name, type, message, metadata, created_at%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d",
		builder.String(), pageSize, (page-1)*pageSize)

	var items []models.Activity
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+builder.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}
	return items, total, nil
}
