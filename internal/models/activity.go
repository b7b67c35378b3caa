package models

import (
	"encoding/json"
	"time"
)

// ActivityType categorises an activity feed entry.
type ActivityType string

const (
	ActivityUseCaseCreated          ActivityType = "USE_CASE_CREATED"
	ActivityUseCaseUpdated          ActivityType = "USE_CASE_UPDATED"
	ActivityUseCaseArchived         ActivityType = "USE_CASE_ARCHIVED"
	ActivityUseCaseSubmitted        ActivityType = "USE_CASE_SUBMITTED"
	ActivityUseCaseApproved         ActivityType = "USE_CASE_APPROVED"
	ActivityUseCaseChangesRequested ActivityType = "USE_CASE_CHANGES_REQUESTED"
	ActivityTestCaseCreated         ActivityType = "TEST_CASE_CREATED"
	ActivityTestCaseUpdated         ActivityType = "TEST_CASE_UPDATED"
	ActivityTestCaseDeleted         ActivityType = "TEST_CASE_DELETED"
	ActivityTestCasesImported       ActivityType = "TEST_CASES_IMPORTED"
	ActivityDocumentUploaded        ActivityType = "DOCUMENT_UPLOADED"
	ActivityDocumentDeleted         ActivityType = "DOCUMENT_DELETED"
)

// Activity is a tenant-scoped feed entry.
type Activity struct {
	ID        string          `db:"id" json:"id"`
	TenantID  string          `db:"tenant_id" json:"tenantId"`
	UseCaseID *string         `db:"use_case_id" json:"useCaseId,omitempty"`
	ActorID   string          `db:"actor_id" json:"actorId"`
	ActorName string          `db:"actor_name" json:"actorName"`
	Type      ActivityType    `db:"type" json:"type"`
	Message   string          `db:"message" json:"message"`
	Metadata  json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// ActivityFilter captures list criteria for the activity feed.
type ActivityFilter struct {
	TenantID  string
	UseCaseID string
	Page      int
	PageSize  int
}
