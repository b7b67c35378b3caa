package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/response"
)

type approvalService interface {
	Transition(ctx context.Context, actor models.Actor, useCaseID string, action models.ApprovalAction, req dto.TransitionRequest) (*dto.TransitionResult, error)
	List(ctx context.Context, actor models.Actor, useCaseID string) ([]models.ApprovalRecord, error)
}

// ApprovalHandler exposes the approval workflow.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// Submit godoc
// @Summary Submit a use case for approval
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.TransitionRequest false "Comments and expected version"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /use-cases/{id}/submit [post]
func (h *ApprovalHandler) Submit(c *gin.Context) {
	h.transition(c, models.ApprovalActionSubmitted)
}

// Approve godoc
// @Summary Approve the current approval stage
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.TransitionRequest false "Comments and expected version"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /use-cases/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.transition(c, models.ApprovalActionApproved)
}

// RequestChanges godoc
// @Summary Send a use case back for changes
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.TransitionRequest false "Comments and expected version"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /use-cases/{id}/request-changes [post]
func (h *ApprovalHandler) RequestChanges(c *gin.Context) {
	h.transition(c, models.ApprovalActionChangesRequested)
}

// List godoc
// @Summary Approval history, newest first
// @Tags Approvals
// @Produce json
// @Param id path string true "Use case ID"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id}/approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.service.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

func (h *ApprovalHandler) transition(c *gin.Context, action models.ApprovalAction) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.TransitionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
		return
	}
	result, err := h.service.Transition(c.Request.Context(), actor, c.Param("id"), action, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
