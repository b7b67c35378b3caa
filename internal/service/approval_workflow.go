package service

import (
	"fmt"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

type transitionKey struct {
	from   models.UseCaseStatus
	action models.ApprovalAction
}

type transitionRule struct {
	to models.UseCaseStatus
	// roles allowed to perform the step; empty means any authenticated role.
	roles []models.UserRole
}

var transitionTable = map[transitionKey]transitionRule{
	{models.UseCaseStatusDraft, models.ApprovalActionSubmitted}: {
		to: models.UseCaseStatusPendingLeadApproval,
	},
	{models.UseCaseStatusChangesRequested, models.ApprovalActionSubmitted}: {
		to: models.UseCaseStatusPendingLeadApproval,
	},
	{models.UseCaseStatusPendingLeadApproval, models.ApprovalActionApproved}: {
		to:    models.UseCaseStatusPendingCustomerApproval,
		roles: []models.UserRole{models.RoleTeamLead},
	},
	{models.UseCaseStatusPendingCustomerApproval, models.ApprovalActionApproved}: {
		to:    models.UseCaseStatusApproved,
		roles: []models.UserRole{models.RoleCustomerIncharge},
	},
	{models.UseCaseStatusPendingLeadApproval, models.ApprovalActionChangesRequested}: {
		to:    models.UseCaseStatusChangesRequested,
		roles: []models.UserRole{models.RoleTeamLead},
	},
	{models.UseCaseStatusPendingCustomerApproval, models.ApprovalActionChangesRequested}: {
		to:    models.UseCaseStatusChangesRequested,
		roles: []models.UserRole{models.RoleCustomerIncharge},
	},
}

// ResolveTransition returns the status reached when role performs action on a
// use case in status. It performs no IO. An unknown (status, action) pair is
// INVALID_TRANSITION; a known pair with the wrong role is FORBIDDEN.
func ResolveTransition(status models.UseCaseStatus, action models.ApprovalAction, role models.UserRole) (models.UseCaseStatus, error) {
	rule, ok := transitionTable[transitionKey{from: status, action: action}]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot apply %s to a use case in %s", action, status))
	}
	if len(rule.roles) == 0 {
		if !role.Valid() {
			return "", appErrors.ErrForbidden
		}
		return rule.to, nil
	}
	for _, allowed := range rule.roles {
		if role == allowed {
			return rule.to, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s cannot apply %s in %s", role, action, status))
}

// PendingStatusFor returns the status a role is expected to act on, if any.
func PendingStatusFor(role models.UserRole) (models.UseCaseStatus, bool) {
	switch role {
	case models.RoleTeamLead:
		return models.UseCaseStatusPendingLeadApproval, true
	case models.RoleCustomerIncharge:
		return models.UseCaseStatusPendingCustomerApproval, true
	}
	return "", false
}
