package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/internal/dto"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/storage"
)

// sniffLen is how much of an upload is buffered for content detection.
const sniffLen = 3072

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, tenantID, id string) (*models.Document, error)
	FindByIDAnyTenant(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error
}

type documentFileStorage interface {
	SaveStream(key string, r io.Reader, maxBytes int64) (int64, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
}

type documentURLSigner interface {
	Generate(resourceID string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// DocumentServiceConfig holds upload limits.
type DocumentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// DocumentDownload is an open stored file ready for streaming.
type DocumentDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// DocumentService stores use case attachments.
type DocumentService struct {
	repo      documentStore
	useCases  useCaseReader
	storage   documentFileStorage
	signer    documentURLSigner
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentServiceConfig
	now       func() time.Time
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentStore, useCases useCaseReader, fileStorage documentFileStorage, signer documentURLSigner, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if activity == nil {
		activity = noopActivity{}
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "text/plain"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &DocumentService{
		repo:      repo,
		useCases:  useCases,
		storage:   fileStorage,
		signer:    signer,
		activity:  activity,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the file and its metadata. The MIME type is detected from
// the content; the type declared by the client is ignored.
func (s *DocumentService) Upload(ctx context.Context, actor models.Actor, useCaseID string, req dto.UploadDocumentRequest) (*dto.DocumentResponse, error) {
	if err := requireRole(actor, models.EditorRoles...); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Kind = models.DocumentKind(strings.ToUpper(strings.TrimSpace(string(req.Kind))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	if req.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}

	uc, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID)
	if err != nil {
		return nil, lookupError(err, "use case")
	}
	if uc.Status == models.UseCaseStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "archived use cases are read-only")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(req.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if n == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	head = head[:n]
	mimeType, ok := s.allowedMIME(mimetype.Detect(head))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}

	doc := &models.Document{
		ID:         uuid.NewString(),
		TenantID:   actor.TenantID,
		UseCaseID:  uc.ID,
		Title:      req.Title,
		Kind:       req.Kind,
		MimeType:   mimeType,
		UploadedBy: actor.UserID,
		UploadedAt: s.now(),
	}
	doc.FilePath = storageKey(doc, req.FileName)
	size, err := s.storage.SaveStream(doc.FilePath, io.MultiReader(bytes.NewReader(head), req.Content), s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	doc.SizeBytes = size

	if err := s.repo.Create(ctx, doc); err != nil {
		if rmErr := s.storage.Delete(doc.FilePath); rmErr != nil {
			s.logger.Warn("orphaned document file", zap.String("path", doc.FilePath), zap.Error(rmErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document metadata")
	}

	s.activity.Record(ctx, newActivity(actor, uc.ID, models.ActivityDocumentUploaded,
		fmt.Sprintf("%s uploaded %q", actor.FullName, doc.Title),
		map[string]interface{}{"documentId": doc.ID, "kind": doc.Kind}))
	return s.withDownloadURL(doc), nil
}

// List returns live documents of a use case, optionally filtered by kind.
func (s *DocumentService) List(ctx context.Context, actor models.Actor, useCaseID, kind string) ([]models.Document, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.useCases.FindByID(ctx, actor.TenantID, useCaseID); err != nil {
		return nil, lookupError(err, "use case")
	}
	filter := models.DocumentFilter{TenantID: actor.TenantID, UseCaseID: useCaseID}
	if kind != "" {
		k := models.DocumentKind(strings.ToUpper(strings.TrimSpace(kind)))
		if !k.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document kind %q", kind))
		}
		filter.Kind = &k
	}
	docs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Get returns metadata and a fresh signed download URL.
func (s *DocumentService) Get(ctx context.Context, actor models.Actor, id string) (*dto.DocumentResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, lookupError(err, "document")
	}
	return s.withDownloadURL(doc), nil
}

// Open validates a download token for document id and opens the file.
func (s *DocumentService) Open(ctx context.Context, id, token string) (*DocumentDownload, error) {
	resourceID, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	if resourceID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}

	doc, err := s.repo.FindByIDAnyTenant(ctx, id)
	if err != nil {
		return nil, lookupError(err, "document")
	}
	file, err := s.storage.Open(doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return &DocumentDownload{
		File:      file,
		Filename:  downloadName(doc),
		MimeType:  doc.MimeType,
		SizeBytes: doc.SizeBytes,
	}, nil
}

// Delete soft-deletes a document. Admins may delete any document, others
// only their own uploads.
func (s *DocumentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	doc, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return lookupError(err, "document")
	}
	if actor.Role != models.RoleAdmin && doc.UploadedBy != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an admin can delete this document")
	}
	if err := s.repo.SoftDelete(ctx, actor.TenantID, id, s.now()); err != nil {
		return lookupError(err, "document")
	}
	s.activity.Record(ctx, newActivity(actor, doc.UseCaseID, models.ActivityDocumentDeleted,
		fmt.Sprintf("%s deleted %q", actor.FullName, doc.Title),
		map[string]interface{}{"documentId": doc.ID}))
	return nil
}

func (s *DocumentService) allowedMIME(detected *mimetype.MIME) (string, bool) {
	for _, allowed := range s.cfg.AllowedMIMEs {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return detected.String(), false
}

func (s *DocumentService) withDownloadURL(doc *models.Document) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{Document: *doc}
	token, expiresAt, err := s.signer.Generate(doc.ID)
	if err != nil {
		s.logger.Warn("failed to sign document url", zap.String("document_id", doc.ID), zap.Error(err))
		return resp
	}
	resp.DownloadURL = fmt.Sprintf("%s/documents/%s/download?token=%s", s.cfg.APIPrefix, doc.ID, url.QueryEscape(token))
	resp.DownloadExpiresAt = expiresAt
	return resp
}

func storageKey(doc *models.Document, fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return filepath.ToSlash(filepath.Join(doc.TenantID, doc.UseCaseID, doc.ID+ext))
}

func downloadName(doc *models.Document) string {
	name := strings.Map(func(r rune) rune {
		if r == '"' || r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, doc.Title)
	if ext := filepath.Ext(doc.FilePath); ext != "" && !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}
