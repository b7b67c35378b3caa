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

const documentColumns = "id, tenant_id, use_case_id, title, kind, file_path, mime_type, size_bytes, uploaded_by, uploaded_at, deleted_at"

// DocumentRepository stores attachment metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts document metadata.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (` + documentColumns + `)
VALUES (:id, :tenant_id, :use_case_id, :title, :kind, :file_path, :mime_type, :size_bytes, :uploaded_by, :uploaded_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns a live document or sql.ErrNoRows.
func (r *DocumentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL LIMIT 1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

// FindByIDAnyTenant resolves a document for signed downloads, where the
// token itself is the authorisation.
func (r *DocumentRepository) FindByIDAnyTenant(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND deleted_at IS NULL LIMIT 1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

// List returns live documents of a use case, newest first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1 AND use_case_id = $2 AND deleted_at IS NULL`
	args := []interface{}{filter.TenantID, filter.UseCaseID}
	if filter.Kind != nil {
		query += " AND kind = $3"
		args = append(args, *filter.Kind)
	}
	query += " ORDER BY uploaded_at DESC, id"

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// SoftDelete stamps deleted_at on a live document.
func (r *DocumentRepository) SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error {
	const query = `UPDATE documents SET deleted_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, tenantID, id, at)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	return rowsOrNotFound(res)
}
