package dto

import (
	"io"
	"time"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

// UploadDocumentRequest is assembled by the handler from a multipart form.
type UploadDocumentRequest struct {
	Title        string              `validate:"required,max=200"`
	Kind         models.DocumentKind `validate:"required,oneof=TEST_PLAN TEST_RESULT SPECIFICATION OTHER"`
	FileName     string              `validate:"required"`
	DeclaredMIME string
	Content      io.Reader `validate:"-"`
}

// DocumentResponse is document metadata plus a signed download link.
type DocumentResponse struct {
	models.Document
	DownloadURL       string    `json:"downloadUrl,omitempty"`
	DownloadExpiresAt time.Time `json:"downloadExpiresAt,omitempty"`
}
