package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/internal/service"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, actor models.Actor, useCaseID string, req dto.UploadDocumentRequest) (*dto.DocumentResponse, error)
	List(ctx context.Context, actor models.Actor, useCaseID, kind string) ([]models.Document, error)
	Get(ctx context.Context, actor models.Actor, id string) (*dto.DocumentResponse, error)
	Open(ctx context.Context, id, token string) (*service.DocumentDownload, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// DocumentHandler manages use case attachments.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload godoc
// @Summary Upload a document to a use case
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Use case ID"
// @Param title formData string true "Title"
// @Param kind formData string true "TEST_PLAN, TEST_RESULT, SPECIFICATION or OTHER"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /use-cases/{id}/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
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

	req := dto.UploadDocumentRequest{
		Title:        c.PostForm("title"),
		Kind:         models.DocumentKind(c.PostForm("kind")),
		FileName:     fileHeader.Filename,
		DeclaredMIME: fileHeader.Header.Get("Content-Type"),
		Content:      src,
	}
	doc, err := h.service.Upload(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List documents of a use case
// @Tags Documents
// @Produce json
// @Param id path string true "Use case ID"
// @Param kind query string false "Kind filter"
// @Success 200 {object} response.Envelope
// @Router /use-cases/{id}/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	docs, err := h.service.List(c.Request.Context(), actor, c.Param("id"), c.Query("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Get godoc
// @Summary Document metadata with a signed download URL
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Download godoc
// @Summary Download a document via signed token
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Open(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}

// Delete godoc
// @Summary Soft delete a document
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
