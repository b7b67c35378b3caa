package models

import "time"

// UseCaseStatus is the approval lifecycle state of a use case.
type UseCaseStatus string

const (
	UseCaseStatusDraft                   UseCaseStatus = "DRAFT"
	UseCaseStatusPendingLeadApproval     UseCaseStatus = "PENDING_LEAD_APPROVAL"
	UseCaseStatusPendingCustomerApproval UseCaseStatus = "PENDING_CUSTOMER_APPROVAL"
	UseCaseStatusChangesRequested        UseCaseStatus = "CHANGES_REQUESTED"
	UseCaseStatusApproved                UseCaseStatus = "APPROVED"
	UseCaseStatusArchived                UseCaseStatus = "ARCHIVED"
)

// AllUseCaseStatuses lists statuses in lifecycle order.
var AllUseCaseStatuses = []UseCaseStatus{
	UseCaseStatusDraft,
	UseCaseStatusPendingLeadApproval,
	UseCaseStatusPendingCustomerApproval,
	UseCaseStatusChangesRequested,
	UseCaseStatusApproved,
	UseCaseStatusArchived,
}

// Valid reports whether s is a known status.
func (s UseCaseStatus) Valid() bool {
	for _, known := range AllUseCaseStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// LifecycleStage tracks how far a use case has progressed toward production.
type LifecycleStage string

const (
	LifecycleIdeation    LifecycleStage = "IDEATION"
	LifecycleDevelopment LifecycleStage = "DEVELOPMENT"
	LifecycleTesting     LifecycleStage = "TESTING"
	LifecyclePilot       LifecycleStage = "PILOT"
	LifecycleProduction  LifecycleStage = "PRODUCTION"
)

// AllLifecycleStages lists stages in progression order.
var AllLifecycleStages = []LifecycleStage{
	LifecycleIdeation,
	LifecycleDevelopment,
	LifecycleTesting,
	LifecyclePilot,
	LifecycleProduction,
}

// Valid reports whether s is a known stage.
func (s LifecycleStage) Valid() bool {
	for _, known := range AllLifecycleStages {
		if s == known {
			return true
		}
	}
	return false
}

// UseCase is the tracked AI solution rollout.
type UseCase struct {
	ID                 string         `db:"id" json:"id"`
	TenantID           string         `db:"tenant_id" json:"tenantId"`
	Name               string         `db:"name" json:"name"`
	Description        string         `db:"description" json:"description"`
	Status             UseCaseStatus  `db:"status" json:"status"`
	DeploymentLocation string         `db:"deployment_location" json:"deploymentLocation"`
	LifecycleStage     LifecycleStage `db:"lifecycle_stage" json:"lifecycleStage"`
	TestPlanReady      bool           `db:"test_plan_ready" json:"testPlanReady"`
	TestingComplete    bool           `db:"testing_complete" json:"testingComplete"`
	Version            int            `db:"version" json:"version"`
	CreatedBy          string         `db:"created_by" json:"createdBy"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updatedAt"`
}

// NewUseCase builds a draft use case with defaults applied.
func NewUseCase(tenantID, createdBy, name string) *UseCase {
	return &UseCase{
		TenantID:       tenantID,
		Name:           name,
		Status:         UseCaseStatusDraft,
		LifecycleStage: LifecycleIdeation,
		Version:        1,
		CreatedBy:      createdBy,
	}
}

// UseCaseFilter captures list criteria. TenantID is always required.
type UseCaseFilter struct {
	TenantID       string
	Statuses       []UseCaseStatus
	LifecycleStage *LifecycleStage
	Search         string
	Page           int
	PageSize       int
}

// UseCaseUpdate is the allow-listed set of directly editable fields. A nil
// pointer leaves the column untouched.
type UseCaseUpdate struct {
	Name               *string
	Description        *string
	DeploymentLocation *string
	LifecycleStage     *LifecycleStage
	TestPlanReady      *bool
	TestingComplete    *bool
}

// Empty reports whether the delta carries no changes.
func (u UseCaseUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.DeploymentLocation == nil &&
		u.LifecycleStage == nil && u.TestPlanReady == nil && u.TestingComplete == nil
}

// Apply copies the delta onto uc.
func (u UseCaseUpdate) Apply(uc *UseCase) {
	if u.Name != nil {
		uc.Name = *u.Name
	}
	if u.Description != nil {
		uc.Description = *u.Description
	}
	if u.DeploymentLocation != nil {
		uc.DeploymentLocation = *u.DeploymentLocation
	}
	if u.LifecycleStage != nil {
		uc.LifecycleStage = *u.LifecycleStage
	}
	if u.TestPlanReady != nil {
		uc.TestPlanReady = *u.TestPlanReady
	}
	if u.TestingComplete != nil {
		uc.TestingComplete = *u.TestingComplete
	}
}
