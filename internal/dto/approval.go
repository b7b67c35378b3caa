package dto

import "github.com/noah-isme/usecase-tracker-api/internal/models"

// TransitionRequest is the body of submit, approve and request-changes.
type TransitionRequest struct {
	Comments        string `json:"comments" validate:"max=2000"`
	ExpectedVersion *int   `json:"expectedVersion" validate:"omitempty,min=1"`
}

// TransitionResult returns the updated use case and the history entry written for it.
type TransitionResult struct {
	UseCase  *models.UseCase       `json:"useCase"`
	Approval models.ApprovalRecord `json:"approval"`
}
