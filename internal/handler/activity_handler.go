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

type activityService interface {
	List(ctx context.Context, actor models.Actor, query dto.ListActivityQuery) ([]models.Activity, *models.Pagination, error)
}

// ActivityHandler serves the tenant activity feed.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service activityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// List godoc
// @Summary Activity feed, newest first
// @Tags Activity
// @Produce json
// @Param useCaseId query string false "Use case filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.ListActivityQuery
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
