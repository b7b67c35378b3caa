package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

// requireActor rejects calls without an authenticated, tenant-bound caller.
func requireActor(actor models.Actor) error {
	if actor.UserID == "" || actor.TenantID == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

// requireRole checks the caller holds one of roles.
func requireRole(actor models.Actor, roles ...models.UserRole) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}

// lookupError maps a repository read failure onto a typed error.
func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}
