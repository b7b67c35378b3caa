package dto

import "github.com/noah-isme/usecase-tracker-api/internal/models"

// CreateUseCaseRequest describes the payload for registering a use case.
type CreateUseCaseRequest struct {
	Name               string                `json:"name" validate:"required,max=200"`
	Description        string                `json:"description" validate:"max=5000"`
	DeploymentLocation string                `json:"deploymentLocation" validate:"max=200"`
	LifecycleStage     models.LifecycleStage `json:"lifecycleStage" validate:"omitempty,oneof=IDEATION DEVELOPMENT TESTING PILOT PRODUCTION"`
}

// UpdateUseCaseRequest is a partial update guarded by the version the client last saw.
// Status is decoded only to reject it: status moves through the approval endpoints.
type UpdateUseCaseRequest struct {
	Version            *int                   `json:"version" validate:"required,min=1"`
	Name               *string                `json:"name" validate:"omitempty,min=1,max=200"`
	Description        *string                `json:"description" validate:"omitempty,max=5000"`
	DeploymentLocation *string                `json:"deploymentLocation" validate:"omitempty,max=200"`
	LifecycleStage     *models.LifecycleStage `json:"lifecycleStage" validate:"omitempty,oneof=IDEATION DEVELOPMENT TESTING PILOT PRODUCTION"`
	TestPlanReady      *bool                  `json:"testPlanReady"`
	TestingComplete    *bool                  `json:"testingComplete"`
	Status             *models.UseCaseStatus  `json:"status,omitempty"`
}

// Delta projects the request onto the allow-listed update.
func (r UpdateUseCaseRequest) Delta() models.UseCaseUpdate {
	return models.UseCaseUpdate{
		Name:               r.Name,
		Description:        r.Description,
		DeploymentLocation: r.DeploymentLocation,
		LifecycleStage:     r.LifecycleStage,
		TestPlanReady:      r.TestPlanReady,
		TestingComplete:    r.TestingComplete,
	}
}

// ArchiveUseCaseRequest carries the version precondition for archival.
type ArchiveUseCaseRequest struct {
	Version *int `json:"version" validate:"required,min=1"`
}

// ListUseCasesQuery captures query string filters.
type ListUseCasesQuery struct {
	Status         []string `form:"status"`
	LifecycleStage string   `form:"lifecycleStage"`
	Search         string   `form:"search"`
	Page           int      `form:"page"`
	PageSize       int      `form:"pageSize"`
}

// ListActivityQuery captures activity feed filters.
type ListActivityQuery struct {
	UseCaseID string `form:"useCaseId"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
