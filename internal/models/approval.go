package models

import "time"

// ApprovalAction is the reviewer decision recorded for a transition.
type ApprovalAction string

const (
	ApprovalActionSubmitted        ApprovalAction = "SUBMITTED"
	ApprovalActionApproved         ApprovalAction = "APPROVED"
	ApprovalActionRejected         ApprovalAction = "REJECTED"
	ApprovalActionChangesRequested ApprovalAction = "CHANGES_REQUESTED"
)

// ApprovalRecord is an append-only history entry for a status transition.
type ApprovalRecord struct {
	ID             string         `db:"id" json:"id"`
	UseCaseID      string         `db:"use_case_id" json:"useCaseId"`
	TenantID       string         `db:"tenant_id" json:"tenantId"`
	Action         ApprovalAction `db:"action" json:"action"`
	FromStatus     UseCaseStatus  `db:"from_status" json:"fromStatus"`
	ToStatus       UseCaseStatus  `db:"to_status" json:"toStatus"`
	ApproverUserID string         `db:"approver_user_id" json:"approverUserId"`
	ApproverName   string         `db:"approver_name" json:"approverName"`
	ApproverRole   UserRole       `db:"approver_role" json:"approverRole"`
	Comments       string         `db:"comments" json:"comments"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// StatusTransition is the persisted effect of one approval step: a history
// record plus the conditional status change it justifies.
type StatusTransition struct {
	Record          ApprovalRecord
	ExpectedVersion int
}
