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

type useCaseService interface {
	List(ctx context.Context, actor models.Actor, query dto.ListUseCasesQuery) ([]models.UseCase, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.UseCase, error)
	Create(ctx context.Context, actor models.Actor, req dto.CreateUseCaseRequest) (*models.UseCase, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateUseCaseRequest) (*models.UseCase, error)
	Archive(ctx context.Context, actor models.Actor, id string, req dto.ArchiveUseCaseRequest) (*models.UseCase, error)
}

// UseCaseHandler exposes use case CRUD endpoints.
type UseCaseHandler struct {
	service useCaseService
}

// NewUseCaseHandler constructs the handler.
func NewUseCaseHandler(service useCaseService) *UseCaseHandler {
	return &UseCaseHandler{service: service}
}

// List godoc
// @Summary List use cases
// @Tags UseCases
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param lifecycleStage query string false "Lifecycle stage"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /use-cases [get]
func (h *UseCaseHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.ListUseCasesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Create a use case
// @Tags UseCases
// @Accept json
// @Produce json
// @Param payload body dto.CreateUseCaseRequest true "Use case payload"
// @Success 201 {object} response.Envelope
// @Router /use-cases [post]
func (h *UseCaseHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateUseCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid use case payload"))
		return
	}
	uc, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, uc)
}

// Get godoc
// @Summary Get a use case
// @Tags UseCases
// @Produce json
// @Param id path string true "Use case ID"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id} [get]
func (h *UseCaseHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	uc, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, uc, nil)
}

// Update godoc
// @Summary Patch a use case
// @Description Applies an allow-listed delta; version is required and status cannot be patched
// @Tags UseCases
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.UpdateUseCaseRequest true "Delta"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /use-cases/{id} [patch]
func (h *UseCaseHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateUseCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid use case payload"))
		return
	}
	uc, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, uc, nil)
}

// Archive godoc
// @Summary Archive a use case
// @Tags UseCases
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.ArchiveUseCaseRequest true "Version precondition"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id}/archive [post]
func (h *UseCaseHandler) Archive(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ArchiveUseCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version is required"))
		return
	}
	uc, err := h.service.Archive(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, uc, nil)
}
