package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

type fakeDashboardSrv struct {
	summary *models.DashboardSummary
	hit     bool
	err     error
	actor   models.Actor
}

func (f *fakeDashboardSrv) Summary(_ context.Context, actor models.Actor) (*models.DashboardSummary, bool, error) {
	f.actor = actor
	return f.summary, f.hit, f.err
}

func TestDashboardHandlerRequiresAuth(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := newContext(http.MethodGet, "/dashboard/summary", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerSummary(t *testing.T) {
	srv := &fakeDashboardSrv{
		summary: &models.DashboardSummary{TenantID: "t1", TotalUseCases: 4, PendingMyApproval: 2},
		hit:     true,
	}
	handler := NewDashboardHandler(srv)
	c, rec := newContext(http.MethodGet, "/dashboard/summary", nil)
	withRole(c, models.RoleTeamLead)

	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	var summary models.DashboardSummary
	require.NoError(t, json.Unmarshal(envelope.Data, &summary))
	assert.Equal(t, 2, summary.PendingMyApproval)
	assert.Equal(t, models.RoleTeamLead, srv.actor.Role)
	assert.Equal(t, "t1", srv.actor.TenantID)
}

func TestDashboardHandlerError(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.ErrInternal})
	c, rec := newContext(http.MethodGet, "/dashboard/summary", nil)
	withRole(c, models.RoleViewer)

	handler.Summary(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec).Error.Code)
}
