package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

type fakeApprovalSrv struct {
	action models.ApprovalAction
	req    dto.TransitionRequest
	actor  models.Actor
	err    error
}

func (f *fakeApprovalSrv) Transition(_ context.Context, actor models.Actor, useCaseID string, action models.ApprovalAction, req dto.TransitionRequest) (*dto.TransitionResult, error) {
	f.action, f.req, f.actor = action, req, actor
	if f.err != nil {
		return nil, f.err
	}
	return &dto.TransitionResult{
		UseCase:  &models.UseCase{ID: useCaseID, Status: models.UseCaseStatusPendingLeadApproval, Version: 2},
		Approval: models.ApprovalRecord{UseCaseID: useCaseID, Action: action},
	}, nil
}

func (f *fakeApprovalSrv) List(_ context.Context, _ models.Actor, useCaseID string) ([]models.ApprovalRecord, error) {
	return []models.ApprovalRecord{{UseCaseID: useCaseID, Action: models.ApprovalActionSubmitted}}, f.err
}

func TestApprovalHandlerRoutesActions(t *testing.T) {
	srv := &fakeApprovalSrv{}
	handler := NewApprovalHandler(srv)

	c, rec := newContext(http.MethodPost, "/use-cases/uc-1/submit", nil, pathID("uc-1"))
	withRole(c, models.RoleTeamMember)
	handler.Submit(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ApprovalActionSubmitted, srv.action)
	assert.Nil(t, srv.req.ExpectedVersion)

	c, rec = newContext(http.MethodPost, "/use-cases/uc-1/approve", strings.NewReader(`{"comments":"ok","expectedVersion":2}`), pathID("uc-1"))
	withRole(c, models.RoleTeamLead)
	handler.Approve(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ApprovalActionApproved, srv.action)
	assert.Equal(t, "ok", srv.req.Comments)
	require.NotNil(t, srv.req.ExpectedVersion)
	assert.Equal(t, 2, *srv.req.ExpectedVersion)
	assert.Equal(t, models.RoleTeamLead, srv.actor.Role)

	c, rec = newContext(http.MethodPost, "/use-cases/uc-1/request-changes", strings.NewReader(`{"comments":"fix"}`), pathID("uc-1"))
	withRole(c, models.RoleCustomerIncharge)
	handler.RequestChanges(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ApprovalActionChangesRequested, srv.action)
}

func TestApprovalHandlerErrors(t *testing.T) {
	handler := NewApprovalHandler(&fakeApprovalSrv{})
	c, rec := newContext(http.MethodPost, "/use-cases/uc-1/approve", strings.NewReader(`{"comments":`), pathID("uc-1"))
	withRole(c, models.RoleTeamLead)
	handler.Approve(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	handler = NewApprovalHandler(&fakeApprovalSrv{err: appErrors.Clone(appErrors.ErrInvalidTransition, "cannot approve DRAFT")})
	c, rec = newContext(http.MethodPost, "/use-cases/uc-1/approve", nil, pathID("uc-1"))
	withRole(c, models.RoleTeamLead)
	handler.Approve(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, decode(t, rec).Error.Code)

	handler = NewApprovalHandler(&fakeApprovalSrv{err: appErrors.ErrForbidden})
	c, rec = newContext(http.MethodPost, "/use-cases/uc-1/approve", nil, pathID("uc-1"))
	withRole(c, models.RoleViewer)
	handler.Approve(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newContext(http.MethodPost, "/use-cases/uc-1/approve", nil, pathID("uc-1"))
	handler.Approve(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApprovalHandlerList(t *testing.T) {
	handler := NewApprovalHandler(&fakeApprovalSrv{})
	c, rec := newContext(http.MethodGet, "/use-cases/uc-1/approvals", nil, pathID("uc-1"))
	withRole(c, models.RoleViewer)

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"action":"SUBMITTED"`)
}
