package models

import "time"

// TestCasePriority ranks a test case.
type TestCasePriority string

const (
	PriorityHigh   TestCasePriority = "HIGH"
	PriorityMedium TestCasePriority = "MEDIUM"
	PriorityLow    TestCasePriority = "LOW"
)

// Valid reports whether p is a known priority.
func (p TestCasePriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TestCaseStatus is the execution outcome of a test case.
type TestCaseStatus string

const (
	TestStatusPending TestCaseStatus = "PENDING"
	TestStatusPassed  TestCaseStatus = "PASSED"
	TestStatusFailed  TestCaseStatus = "FAILED"
	TestStatusBlocked TestCaseStatus = "BLOCKED"
)

// AllTestCaseStatuses lists statuses in display order.
var AllTestCaseStatuses = []TestCaseStatus{TestStatusPending, TestStatusPassed, TestStatusFailed, TestStatusBlocked}

// Valid reports whether s is a known status.
func (s TestCaseStatus) Valid() bool {
	switch s {
	case TestStatusPending, TestStatusPassed, TestStatusFailed, TestStatusBlocked:
		return true
	}
	return false
}

// TestCaseSource records how a test case entered the system.
type TestCaseSource string

const (
	TestCaseSourceManual TestCaseSource = "MANUAL"
	TestCaseSourceImport TestCaseSource = "IMPORT"
)

// CanonicalTestCase is the normalized shape shared by imports and manual entry.
type CanonicalTestCase struct {
	Name           string           `db:"name" json:"name"`
	Description    string           `db:"description" json:"description"`
	Priority       TestCasePriority `db:"priority" json:"priority"`
	Status         TestCaseStatus   `db:"status" json:"status"`
	TestCaseDocURL string           `db:"test_case_doc_url" json:"testCaseDocUrl"`
	TestResultURL  string           `db:"test_result_url" json:"testResultUrl"`
	JiraURL        string           `db:"jira_url" json:"jiraUrl"`
}

// NewCanonicalTestCase returns a record with every default applied.
func NewCanonicalTestCase() CanonicalTestCase {
	return CanonicalTestCase{
		Priority: PriorityMedium,
		Status:   TestStatusPending,
	}
}

// TestCase is a persisted test case belonging to a use case.
type TestCase struct {
	ID        string `db:"id" json:"id"`
	UseCaseID string `db:"use_case_id" json:"useCaseId"`
	TenantID  string `db:"tenant_id" json:"tenantId"`
	Sequence  int    `db:"sequence" json:"sequence"`
	CanonicalTestCase
	Source    TestCaseSource `db:"source" json:"source"`
	CreatedBy string         `db:"created_by" json:"createdBy"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// TestCaseUpdate is the allow-listed delta for test case edits.
type TestCaseUpdate struct {
	Name           *string
	Description    *string
	Priority       *TestCasePriority
	Status         *TestCaseStatus
	TestCaseDocURL *string
	TestResultURL  *string
	JiraURL        *string
}

// Empty reports whether the delta carries no changes.
func (u TestCaseUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Priority == nil && u.Status == nil &&
		u.TestCaseDocURL == nil && u.TestResultURL == nil && u.JiraURL == nil
}

// Apply copies the delta onto tc.
func (u TestCaseUpdate) Apply(tc *TestCase) {
	if u.Name != nil {
		tc.Name = *u.Name
	}
	if u.Description != nil {
		tc.Description = *u.Description
	}
	if u.Priority != nil {
		tc.Priority = *u.Priority
	}
	if u.Status != nil {
		tc.Status = *u.Status
	}
	if u.TestCaseDocURL != nil {
		tc.TestCaseDocURL = *u.TestCaseDocURL
	}
	if u.TestResultURL != nil {
		tc.TestResultURL = *u.TestResultURL
	}
	if u.JiraURL != nil {
		tc.JiraURL = *u.JiraURL
	}
}

// BatchItemResult reports the outcome of one row in a batch insert.
type BatchItemResult struct {
	Index    int       `json:"index"`
	Success  bool      `json:"success"`
	TestCase *TestCase `json:"testCase,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// BatchResult summarises a batch insert.
type BatchResult struct {
	Items     []BatchItemResult `json:"items"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}
