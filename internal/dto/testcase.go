package dto

import (
	"strings"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

// CreateTestCaseRequest describes a manually entered test case.
type CreateTestCaseRequest struct {
	Name           string                  `json:"name" validate:"required,max=500"`
	Description    string                  `json:"description" validate:"max=5000"`
	Priority       models.TestCasePriority `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Status         models.TestCaseStatus   `json:"status" validate:"omitempty,oneof=PENDING PASSED FAILED BLOCKED"`
	TestCaseDocURL string                  `json:"testCaseDocUrl" validate:"max=2000"`
	TestResultURL  string                  `json:"testResultUrl" validate:"max=2000"`
	JiraURL        string                  `json:"jiraUrl" validate:"max=2000"`
}

// Canonical applies defaults and trims values.
func (r CreateTestCaseRequest) Canonical() models.CanonicalTestCase {
	tc := models.NewCanonicalTestCase()
	tc.Name = strings.TrimSpace(r.Name)
	tc.Description = strings.TrimSpace(r.Description)
	if r.Priority != "" {
		tc.Priority = r.Priority
	}
	if r.Status != "" {
		tc.Status = r.Status
	}
	tc.TestCaseDocURL = strings.TrimSpace(r.TestCaseDocURL)
	tc.TestResultURL = strings.TrimSpace(r.TestResultURL)
	tc.JiraURL = strings.TrimSpace(r.JiraURL)
	return tc
}

// BatchCreateTestCasesRequest holds many test cases. Items are validated one
// by one so that a bad row only fails itself.
type BatchCreateTestCasesRequest struct {
	Items []CreateTestCaseRequest `json:"items" validate:"required,min=1,max=5000"`
}

// UpdateTestCaseRequest is a partial update of a test case.
type UpdateTestCaseRequest struct {
	Name           *string                  `json:"name" validate:"omitempty,min=1,max=500"`
	Description    *string                  `json:"description" validate:"omitempty,max=5000"`
	Priority       *models.TestCasePriority `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Status         *models.TestCaseStatus   `json:"status" validate:"omitempty,oneof=PENDING PASSED FAILED BLOCKED"`
	TestCaseDocURL *string                  `json:"testCaseDocUrl" validate:"omitempty,max=2000"`
	TestResultURL  *string                  `json:"testResultUrl" validate:"omitempty,max=2000"`
	JiraURL        *string                  `json:"jiraUrl" validate:"omitempty,max=2000"`
}

// Delta projects the request onto the allow-listed update.
func (r UpdateTestCaseRequest) Delta() models.TestCaseUpdate {
	return models.TestCaseUpdate{
		Name:           r.Name,
		Description:    r.Description,
		Priority:       r.Priority,
		Status:         r.Status,
		TestCaseDocURL: r.TestCaseDocURL,
		TestResultURL:  r.TestResultURL,
		JiraURL:        r.JiraURL,
	}
}
