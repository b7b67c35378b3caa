package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

const testCaseColumns = "id, use_case_id, tenant_id, sequence, name, description, priority, status, test_case_doc_url, test_result_url, jira_url, source, created_by, created_at, updated_at"

// TestCaseRepository persists test cases.
type TestCaseRepository struct {
	db *sqlx.DB
}

// NewTestCaseRepository constructs the repository.
func NewTestCaseRepository(db *sqlx.DB) *TestCaseRepository {
	return &TestCaseRepository{db: db}
}

// ListByUseCase returns the test cases of a use case ordered by sequence.
func (r *TestCaseRepository) ListByUseCase(ctx context.Context, tenantID, useCaseID string) ([]models.TestCase, error) {
	query := `SELECT ` + testCaseColumns + ` FROM test_cases WHERE tenant_id = $1 AND use_case_id = $2 ORDER BY sequence`
	var items []models.TestCase
	if err := r.db.SelectContext(ctx, &items, query, tenantID, useCaseID); err != nil {
		return nil, fmt.Errorf("list test cases: %w", err)
	}
	return items, nil
}

// FindByID returns a test case of the given use case or sql.ErrNoRows.
func (r *TestCaseRepository) FindByID(ctx context.Context, tenantID, useCaseID, id string) (*models.TestCase, error) {
	query := `SELECT ` + testCaseColumns + ` FROM test_cases WHERE tenant_id = $1 AND use_case_id = $2 AND id = $3 LIMIT 1`
	var tc models.TestCase
	if err := r.db.GetContext(ctx, &tc, query, tenantID, useCaseID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find test case: %w", err)
	}
	return &tc, nil
}

// Create inserts tc and assigns the next sequence number of its use case.
// A unique (use_case_id, sequence) index rejects a concurrent duplicate.
func (r *TestCaseRepository) Create(ctx context.Context, tc *models.TestCase) error {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tc.CreatedAt.IsZero() {
		tc.CreatedAt = now
	}
	tc.UpdatedAt = now

	const query = `INSERT INTO test_cases (id, use_case_id, tenant_id, sequence, name, description, priority, status, test_case_doc_url, test_result_url, jira_url, source, created_by, created_at, updated_at)
VALUES ($1, $2, $3, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM test_cases WHERE use_case_id = $2), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING sequence`
	err := r.db.QueryRowxContext(ctx, query,
		tc.ID, tc.UseCaseID, tc.TenantID,
		tc.Name, tc.Description, tc.Priority, tc.Status, tc.TestCaseDocURL, tc.TestResultURL, tc.JiraURL,
		tc.Source, tc.CreatedBy, tc.CreatedAt, tc.UpdatedAt,
	).Scan(&tc.Sequence)
	if err != nil {
		return fmt.Errorf("create test case: %w", err)
	}
	return nil
}

// Update writes every editable column of tc.
func (r *TestCaseRepository) Update(ctx context.Context, tc *models.TestCase) error {
	tc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE test_cases SET name = :name, description = :description, priority = :priority, status = :status, test_case_doc_url = :test_case_doc_url, test_result_url = :test_result_url, jira_url = :jira_url, updated_at = :updated_at
WHERE tenant_id = :tenant_id AND use_case_id = :use_case_id AND id = :id`
	res, err := r.db.NamedExecContext(ctx, query, tc)
	if err != nil {
		return fmt.Errorf("update test case: %w", err)
	}
	return rowsOrNotFound(res)
}

// Delete removes a test case. Sequence numbers of the remaining rows are kept.
func (r *TestCaseRepository) Delete(ctx context.Context, tenantID, useCaseID, id string) error {
	const query = `DELETE FROM test_cases WHERE tenant_id = $1 AND use_case_id = $2 AND id = $3`
	res, err := r.db.ExecContext(ctx, query, tenantID, useCaseID, id)
	if err != nil {
		return fmt.Errorf("delete test case: %w", err)
	}
	return rowsOrNotFound(res)
}

func rowsOrNotFound(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
