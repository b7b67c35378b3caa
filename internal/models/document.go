package models

import "time"

// DocumentKind categorises an attachment.
type DocumentKind string

const (
	DocumentKindTestPlan      DocumentKind = "TEST_PLAN"
	DocumentKindTestResult    DocumentKind = "TEST_RESULT"
	DocumentKindSpecification DocumentKind = "SPECIFICATION"
	DocumentKindOther         DocumentKind = "OTHER"
)

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentKindTestPlan, DocumentKindTestResult, DocumentKindSpecification, DocumentKindOther:
		return true
	}
	return false
}

// Document is attachment metadata; the bytes live in local storage.
type Document struct {
	ID         string       `db:"id" json:"id"`
	TenantID   string       `db:"tenant_id" json:"tenantId"`
	UseCaseID  string       `db:"use_case_id" json:"useCaseId"`
	Title      string       `db:"title" json:"title"`
	Kind       DocumentKind `db:"kind" json:"kind"`
	FilePath   string       `db:"file_path" json:"-"`
	MimeType   string       `db:"mime_type" json:"mimeType"`
	SizeBytes  int64        `db:"size_bytes" json:"sizeBytes"`
	UploadedBy string       `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt time.Time    `db:"uploaded_at" json:"uploadedAt"`
	DeletedAt  *time.Time   `db:"deleted_at" json:"deletedAt,omitempty"`
}

// DocumentFilter captures list criteria for attachments.
type DocumentFilter struct {
	TenantID  string
	UseCaseID string
	Kind      *DocumentKind
}
