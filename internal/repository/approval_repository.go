package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/pkg/database"
)

const approvalColumns = "id, use_case_id, tenant_id, action, from_status, to_status, approver_user_id, approver_name, approver_role, comments, created_at"

// ApprovalRepository stores the append-only approval history.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// RecordTransition writes the history record and then moves the use case
// from Record.FromStatus to Record.ToStatus, both in one transaction. The
// status update only applies while the use case still has the expected
// status and version; otherwise nothing is kept and ErrVersionConflict is
// returned.
func (r *ApprovalRepository) RecordTransition(ctx context.Context, t *models.StatusTransition) error {
	rec := &t.Record
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO approval_records (` + approvalColumns + `)
VALUES (:id, :use_case_id, :tenant_id, :action, :from_status, :to_status, :approver_user_id, :approver_name, :approver_role, :comments, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, rec); err != nil {
			return fmt.Errorf("insert approval record: %w", err)
		}

		const update = `UPDATE use_cases SET status = $1, version = version + 1, updated_at = $2
WHERE tenant_id = $3 AND id = $4 AND status = $5 AND version = $6`
		res, err := tx.ExecContext(ctx, update, rec.ToStatus, rec.CreatedAt, rec.TenantID, rec.UseCaseID, rec.FromStatus, t.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("update use case status: %w", err)
		}
		return expectOneRow(res)
	})
}

// ListByUseCase returns the history newest first.
func (r *ApprovalRepository) ListByUseCase(ctx context.Context, tenantID, useCaseID string) ([]models.ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_records WHERE tenant_id = $1 AND use_case_id = $2 ORDER BY created_at DESC, id DESC`
	var records []models.ApprovalRecord
	if err := r.db.SelectContext(ctx, &records, query, tenantID, useCaseID); err != nil {
		return nil, fmt.Errorf("list approval records: %w", err)
	}
	return records, nil
}
