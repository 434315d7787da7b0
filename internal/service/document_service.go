package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/dto"
	"github.com/noah-isme/enroll-portal-api/internal/models"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/imaging"
)

var extMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type documentStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

type previewSigner interface {
	Generate(refID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (refID, relPath string, expiresAt time.Time, err error)
}

type uploadMetrics interface {
	RecordUploadSize(bytes int64)
}

// DocumentService stores certification documents for step 3: it validates
// the upload, compresses images to the configured budget and hands back a
// signed preview token in place of a direct file path.
type DocumentService struct {
	drafts       draftStore
	storage      documentStorage
	signer       previewSigner
	compressor   *imaging.Compressor
	metrics      uploadMetrics
	logger       *zap.Logger
	maxPhotoSize int64
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(drafts draftStore, storage documentStorage, signer previewSigner, compressor *imaging.Compressor, metrics uploadMetrics, logger *zap.Logger, maxPhotoSize int64) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPhotoSize <= 0 {
		maxPhotoSize = 5 << 20
	}
	return &DocumentService{
		drafts:       drafts,
		storage:      storage,
		signer:       signer,
		compressor:   compressor,
		metrics:      metrics,
		logger:       logger,
		maxPhotoSize: maxPhotoSize,
	}
}

// Store validates and persists one uploaded document, replacing whatever the
// slot held before. The draft session records the slot so a resumed wizard
// shows the upload as done.
func (s *DocumentService) Store(ctx context.Context, sessionID string, kind models.DocumentKind, header *multipart.FileHeader) (*dto.DocumentUploadResponse, error) {
	session, err := s.drafts.Load(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment session")
	}
	if session == nil || !session.TermsAccepted {
		return nil, appErrors.ErrTermsNotAccepted
	}
	if !session.Step1Saved || !session.Step2Saved {
		return nil, appErrors.ErrStepIncomplete
	}

	slot := session.Draft.Certification.Slot(kind)
	if slot == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown document kind")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mime, ok := extMIME[ext]
	if !ok {
		return nil, appErrors.ErrUnsupportedFile
	}
	if kind == models.DocIDPicture && header.Size > s.maxPhotoSize {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge,
			fmt.Sprintf("photo exceeds the %dMB limit", s.maxPhotoSize>>20))
	}

	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}

	result, err := s.compressor.Compress(data, mime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFile.Code, appErrors.ErrUnsupportedFile.Status, "file is not a readable image")
	}

	relPath := filepath.Join(sessionID, string(kind)+ext)
	if _, err := s.storage.Save(relPath, result.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}

	token, _, err := s.signer.Generate(sessionID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign preview token")
	}

	// Replacing an upload with a different extension leaves the old file
	// behind otherwise.
	if slot.StoredPath != "" && slot.StoredPath != relPath {
		if err := s.storage.Delete(slot.StoredPath); err != nil {
			s.logger.Warn("failed to remove replaced document", zap.String("path", slot.StoredPath), zap.Error(err))
		}
	}

	slot.StoredPath = relPath
	slot.FileName = header.Filename
	slot.PreviewToken = token

	if err := s.drafts.Save(ctx, sessionID, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment session")
	}

	if s.metrics != nil {
		s.metrics.RecordUploadSize(int64(len(result.Data)))
	}

	s.logger.Info("document stored",
		zap.String("enrollment_id", sessionID),
		zap.String("kind", string(kind)),
		zap.Int("stored_bytes", len(result.Data)),
		zap.Int64("uploaded_bytes", header.Size))

	return &dto.DocumentUploadResponse{
		Kind:         kind,
		FileName:     header.Filename,
		PreviewToken: token,
		SizeBytes:    int64(len(result.Data)),
	}, nil
}

// Remove clears one document slot and deletes its stored file.
func (s *DocumentService) Remove(ctx context.Context, sessionID string, kind models.DocumentKind) error {
	session, err := s.drafts.Load(ctx, sessionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment session")
	}
	if session == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no enrollment in progress")
	}

	slot := session.Draft.Certification.Slot(kind)
	if slot == nil {
		return appErrors.Clone(appErrors.ErrValidation, "unknown document kind")
	}
	if slot.Empty() {
		return nil
	}

	if slot.StoredPath != "" {
		if err := s.storage.Delete(slot.StoredPath); err != nil {
			s.logger.Warn("failed to delete document", zap.String("path", slot.StoredPath), zap.Error(err))
		}
	}
	*slot = models.DocumentSlot{}

	if err := s.drafts.Save(ctx, sessionID, session); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment session")
	}
	return nil
}

// ResolvePreview validates a preview token and returns the file path to
// stream, with its MIME type. Tokens are bound to the enrollment they were
// issued for.
func (s *DocumentService) ResolvePreview(token string) (path, mime string, err error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrForbidden, "preview link is invalid or expired")
	}
	mime, ok := extMIME[strings.ToLower(filepath.Ext(relPath))]
	if !ok {
		return "", "", appErrors.Clone(appErrors.ErrForbidden, "preview link is invalid or expired")
	}
	return s.storage.Path(relPath), mime, nil
}
