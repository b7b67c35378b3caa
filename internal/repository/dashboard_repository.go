package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

// DashboardRepository exposes grouped counts for the dashboard summary.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// UseCasesByStatus counts use cases per status.
func (r *DashboardRepository) UseCasesByStatus(ctx context.Context, tenantID string) ([]models.StatusCount, error) {
	const query = `SELECT status AS key, COUNT(*) AS count FROM use_cases WHERE tenant_id = $1 GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, tenantID); err != nil {
		return nil, fmt.Errorf("count use cases by status: %w", err)
	}
	return counts, nil
}

// UseCasesByLifecycleStage counts non-archived use cases per stage.
func (r *DashboardRepository) UseCasesByLifecycleStage(ctx context.Context, tenantID string) ([]models.StatusCount, error) {
	const query = `SELECT lifecycle_stage AS key, COUNT(*) AS count FROM use_cases WHERE tenant_id = $1 AND status <> $2 GROUP BY lifecycle_stage`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, tenantID, models.UseCaseStatusArchived); err != nil {
		return nil, fmt.Errorf("count use cases by stage: %w", err)
	}
	return counts, nil
}

// TestCasesByStatus counts test cases of non-archived use cases per status.
func (r *DashboardRepository) TestCasesByStatus(ctx context.Context, tenantID string) ([]models.StatusCount, error) {
	const query = `SELECT tc.status AS key, COUNT(*) AS count
FROM test_cases tc
JOIN use_cases uc ON uc.id = tc.use_case_id
WHERE tc.tenant_id = $1 AND uc.status <> $2
GROUP BY tc.status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, tenantID, models.UseCaseStatusArchived); err != nil {
		return nil, fmt.Errorf("count test cases by status: %w", err)
	}
	return counts, nil
}
