package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/internal/service"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/response"
)

type testCaseService interface {
	List(ctx context.Context, actor models.Actor, useCaseID string) ([]models.TestCase, error)
	Create(ctx context.Context, actor models.Actor, useCaseID string, req dto.CreateTestCaseRequest) (*models.TestCase, error)
	BatchCreate(ctx context.Context, actor models.Actor, useCaseID string, req dto.BatchCreateTestCasesRequest) (*models.BatchResult, error)
	Update(ctx context.Context, actor models.Actor, useCaseID, testCaseID string, req dto.UpdateTestCaseRequest) (*models.TestCase, error)
	Delete(ctx context.Context, actor models.Actor, useCaseID, testCaseID string) error
	Export(ctx context.Context, actor models.Actor, useCaseID, format string) (*service.ExportFile, error)
}

// TestCaseHandler exposes test cases nested under a use case.
type TestCaseHandler struct {
	service testCaseService
}

// NewTestCaseHandler constructs the handler.
func NewTestCaseHandler(service testCaseService) *TestCaseHandler {
	return &TestCaseHandler{service: service}
}

// List godoc
// @Summary List test cases ordered by sequence
// @Tags TestCases
// @Produce json
// @Param id path string true "Use case ID"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id}/test-cases [get]
func (h *TestCaseHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create a test case
// @Tags TestCases
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.CreateTestCaseRequest true "Test case"
// @Success 201 {object} response.Envelope
// @Router /use-cases/{id}/test-cases [post]
func (h *TestCaseHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateTestCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid test case payload"))
		return
	}
	tc, err := h.service.Create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tc)
}

// BatchCreate godoc
// @Summary Create many test cases with per-item results
// @Tags TestCases
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.BatchCreateTestCasesRequest true "Items"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id}/test-cases/batch [post]
func (h *TestCaseHandler) BatchCreate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BatchCreateTestCasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid batch payload"))
		return
	}
	result, err := h.service.BatchCreate(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Patch a test case
// @Tags TestCases
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param testCaseId path string true "Test case ID"
// @Param payload body dto.UpdateTestCaseRequest true "Delta"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id}/test-cases/{testCaseId} [patch]
func (h *TestCaseHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateTestCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid test case payload"))
		return
	}
	tc, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), c.Param("testCaseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tc, nil)
}

// Delete godoc
// @Summary Delete a test case
// @Tags TestCases
// @Param id path string true "Use case ID"
// @Param testCaseId path string true "Test case ID"
// @Success 204
// @Router /use-cases/{id}/test-cases/{testCaseId} [delete]
func (h *TestCaseHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id"), c.Param("testCaseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export test cases
// @Tags TestCases
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Use case ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /use-cases/{id}/test-cases/export [get]
func (h *TestCaseHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	file, err := h.service.Export(c.Request.Context(), actor, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
