package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/response"
)

type importService interface {
	Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error)
	Parse(ctx context.Context, filename string, r io.Reader) (*dto.ParseSheetsResponse, error)
	ImportTestCases(ctx context.Context, actor models.Actor, useCaseID string, req dto.ImportTestCasesRequest) (*dto.ImportTestCasesResponse, error)
}

// ImportHandler exposes spreadsheet analysis and import.
type ImportHandler struct {
	service importService
}

// NewImportHandler constructs the handler.
func NewImportHandler(service importService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Analyze godoc
// @Summary Map a sheet onto canonical test cases
// @Description Uses the configured AI provider when available and the local heuristic otherwise
// @Tags Imports
// @Accept json
// @Produce json
// @Param payload body dto.AnalyzeRequest true "Sheet"
// @Success 200 {object} dto.AnalyzeResponse
// @Failure 400 {object} response.Envelope
// @Router /imports/analyze [post]
func (h *ImportHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrImportInput, "invalid sheet payload"))
		return
	}
	result, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Parse godoc
// @Summary Read an uploaded csv or xlsx file into sheets
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /imports/parse [post]
func (h *ImportHandler) Parse(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	result, err := h.service.Parse(c.Request.Context(), fileHeader.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Import godoc
// @Summary Analyze a sheet for a use case and optionally commit it
// @Tags Imports
// @Accept json
// @Produce json
// @Param id path string true "Use case ID"
// @Param payload body dto.ImportTestCasesRequest true "Sheet and commit flag"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id}/test-cases/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ImportTestCasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrImportInput, "invalid sheet payload"))
		return
	}
	result, err := h.service.ImportTestCases(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
