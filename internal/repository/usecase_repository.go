package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

const useCaseColumns = "id, tenant_id, name, description, status, deployment_location, lifecycle_stage, test_plan_ready, testing_complete, version, created_by, created_at, updated_at"

// UseCaseRepository persists use cases. Every query is scoped to a tenant.
type UseCaseRepository struct {
	db *sqlx.DB
}

// NewUseCaseRepository constructs the repository.
func NewUseCaseRepository(db *sqlx.DB) *UseCaseRepository {
	return &UseCaseRepository{db: db}
}

// List returns the page of use cases matching filter and the total count.
func (r *UseCaseRepository) List(ctx context.Context, filter models.UseCaseFilter) ([]models.UseCase, int, error) {
	var builder strings.Builder
	builder.WriteString(" FROM use_cases WHERE tenant_id = $1")
	args := []interface{}{filter.TenantID}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		builder.WriteString(" AND status IN (" + strings.Join(placeholders, ", ") + ")")
	}
	if filter.LifecycleStage != nil {
		args = append(args, *filter.LifecycleStage)
		builder.WriteString(fmt.Sprintf(" AND lifecycle_stage = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		builder.WriteString(fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize, 100)
	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY updated_at DESC, id LIMIT %d OFFSET %d", useCaseColumns, builder.String(), pageSize, (page-1)*pageSize)

	var items []models.UseCase
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list use cases: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+builder.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count use cases: %w", err)
	}
	return items, total, nil
}

// FindByID returns the use case or sql.ErrNoRows when it does not exist in the tenant.
func (r *UseCaseRepository) FindByID(ctx context.Context, tenantID, id string) (*models.UseCase, error) {
	query := `SELECT ` + useCaseColumns + ` FROM use_cases WHERE tenant_id = $1 AND id = $2 LIMIT 1`
	var uc models.UseCase
	if err := r.db.GetContext(ctx, &uc, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find use case: %w", err)
	}
	return &uc, nil
}

// Create inserts a new use case.
func (r *UseCaseRepository) Create(ctx context.Context, uc *models.UseCase) error {
	if uc.ID == "" {
		uc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if uc.CreatedAt.IsZero() {
		uc.CreatedAt = now
	}
	uc.UpdatedAt = now

	const query = `INSERT INTO use_cases (id, tenant_id, name, description, status, deployment_location, lifecycle_stage, test_plan_ready, testing_complete, version, created_by, created_at, updated_at)
VALUES (:id, :tenant_id, :name, :description, :status, :deployment_location, :lifecycle_stage, :test_plan_ready, :testing_complete, :version, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, uc); err != nil {
		return fmt.Errorf("create use case: %w", err)
	}
	return nil
}

// Update writes the editable columns of uc when the stored version equals
// expectedVersion and bumps the version. Status is never touched here.
func (r *UseCaseRepository) Update(ctx context.Context, uc *models.UseCase, expectedVersion int) error {
	uc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE use_cases SET name = $1, description = $2, deployment_location = $3, lifecycle_stage = $4, test_plan_ready = $5, testing_complete = $6, version = version + 1, updated_at = $7
WHERE tenant_id = $8 AND id = $9 AND version = $10`
	res, err := r.db.ExecContext(ctx, query,
		uc.Name, uc.Description, uc.DeploymentLocation, uc.LifecycleStage, uc.TestPlanReady, uc.TestingComplete, uc.UpdatedAt,
		uc.TenantID, uc.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update use case: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	uc.Version = expectedVersion + 1
	return nil
}

// Archive moves the use case to ARCHIVED under the same version precondition.
func (r *UseCaseRepository) Archive(ctx context.Context, tenantID, id string, expectedVersion int, at time.Time) error {
	const query = `UPDATE use_cases SET status = $1, version = version + 1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND version = $5 AND status <> $1`
	res, err := r.db.ExecContext(ctx, query, models.UseCaseStatusArchived, at, tenantID, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("archive use case: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}
