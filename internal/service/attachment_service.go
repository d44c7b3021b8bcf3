package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
)

type fileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type downloadSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (ownerID, relPath string, expiresAt time.Time, err error)
}

// DocumentUpload carries an inbound identity-document file.
type DocumentUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// AttachmentServiceConfig holds upload validation parameters.
type AttachmentServiceConfig struct {
	AllowedExts []string
	MaxFileSize int64
}

// AttachmentService turns uploaded identity documents into durably
// stored, uniquely named files and removes them when their owning
// record is permanently deleted.
type AttachmentService struct {
	storage fileStorage
	signer  downloadSigner
	logger  *zap.Logger
	cfg     AttachmentServiceConfig
	extSet  map[string]struct{}
	now     func() time.Time
}

// NewAttachmentService constructs the service with defaults.
func NewAttachmentService(storage fileStorage, signer downloadSigner, logger *zap.Logger, cfg AttachmentServiceConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedExts) == 0 {
		cfg.AllowedExts = []string{"png", "jpg", "jpeg", "gif", "webp"}
	}
	extSet := make(map[string]struct{}, len(cfg.AllowedExts))
	for _, ext := range cfg.AllowedExts {
		extSet[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &AttachmentService{
		storage: storage,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		extSet:  extSet,
		now:     time.Now,
	}
}

// Store validates and persists an upload, returning the stored
// reference. The name is a timestamp prefix plus the sanitized
// original filename.
func (s *AttachmentService) Store(upload *DocumentUpload) (string, error) {
	if upload == nil || upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(upload.Filename), "."))
	if _, allowed := s.extSet[ext]; !allowed {
		return "", appErrors.Clone(appErrors.ErrUnsupportedFile, fmt.Sprintf("extension %q not allowed", ext))
	}

	name := strconv.FormatInt(s.now().UnixNano(), 10) + "_" + sanitizeFilename(upload.Filename)
	reference, err := s.storage.SaveStream(name, upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save uploaded document")
	}
	return reference, nil
}

// Remove deletes a stored document. Failures are swallowed so that
// record deletion never fails on a missing or locked file.
func (s *AttachmentService) Remove(reference string) {
	if reference == "" {
		return
	}
	if err := s.storage.Delete(reference); err != nil {
		s.logger.Warn("failed to remove attachment file", zap.String("reference", reference), zap.Error(err))
	}
}

// DownloadToken returns a signed token for serving the document.
func (s *AttachmentService) DownloadToken(studentID int64, reference string) (string, error) {
	token, _, err := s.signer.Generate(strconv.FormatInt(studentID, 10), reference)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return token, nil
}

// Resolve validates a download token and opens the referenced file.
func (s *AttachmentService) Resolve(token string) (*os.File, string, error) {
	_, reference, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(reference)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return file, reference, nil
}

// sanitizeFilename strips path separators and anything outside a
// conservative character set from the original name.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	sanitized := strings.Trim(b.String(), "._")
	if sanitized == "" {
		sanitized = "document"
	}
	return sanitized
}
