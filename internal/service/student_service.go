package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pustak-labs/library-admin-api/internal/models"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByNaturalKey(ctx context.Context, phone, aadhaarNo string) (*models.Student, error)
	Insert(ctx context.Context, student *models.Student) error
	Overwrite(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type documentStore interface {
	Store(upload *DocumentUpload) (string, error)
	Remove(reference string)
}

// UpsertStudentRequest holds the admission form payload. The fee is
// submitted as text and parsed according to the configured leniency.
type UpsertStudentRequest struct {
	Name           string `form:"name" validate:"required"`
	GuardianName   string `form:"guardian_name" validate:"required"`
	Phone          string `form:"phone" validate:"required"`
	Address        string `form:"address"`
	Shift          string `form:"shift"`
	SheetNo        string `form:"sheet_no"`
	AdmissionMonth string `form:"admission_month"`
	Fee            string `form:"fee"`
	AadhaarNo      string `form:"aadhaar_no"`
}

// UpsertResult reports the affected row and whether an inactive
// duplicate was restored instead of a new row being created.
type UpsertResult struct {
	Student  *models.Student `json:"student"`
	Restored bool            `json:"restored"`
}

// StudentServiceConfig tunes record-store leniency.
type StudentServiceConfig struct {
	StrictFees bool
}

// StudentService enforces the active/inactive lifecycle and the
// natural-key duplicate rules over the student table.
type StudentService struct {
	repo      studentRepository
	documents documentStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudentServiceConfig
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, documents documentStore, validate *validator.Validate, logger *zap.Logger, cfg StudentServiceConfig) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, documents: documents, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Get returns a single student by identifier.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Upsert admits a student. When the phone or Aadhaar number matches a
// previously removed row, that row is reactivated and overwritten in
// place; otherwise a fresh row is inserted. A match on an active row
// still inserts a new, unrelated row (observed legacy behavior, kept).
func (s *StudentService) Upsert(ctx context.Context, req UpsertStudentRequest, upload *DocumentUpload) (*UpsertResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	fee, err := s.parseFee(req.Fee)
	if err != nil {
		return nil, err
	}

	match, err := s.repo.FindByNaturalKey(ctx, req.Phone, req.AadhaarNo)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve duplicate candidate")
	}

	reference := ""
	if upload != nil {
		reference, err = s.documents.Store(upload)
		if err != nil {
			return nil, err
		}
	}

	if match != nil && !match.Active {
		restored := *match
		applyFields(&restored, req, fee)
		restored.AdmissionDate = s.now().UTC()
		restored.Active = true
		if reference != "" {
			restored.DocumentFile = reference
		}
		if err := s.repo.Overwrite(ctx, &restored); err != nil {
			if reference != "" {
				s.documents.Remove(reference)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore student")
		}
		s.logger.Info("restored removed student on matching admission",
			zap.Int64("student_id", restored.ID),
			zap.String("phone", restored.Phone))
		return &UpsertResult{Student: &restored, Restored: true}, nil
	}

	if match != nil && match.Active {
		// Ambiguous by design: an admission matching an active row is
		// admitted as an unrelated new record. Logged so operators can
		// spot the duplicate pair.
		s.logger.Warn("admission matches an active student, inserting duplicate row",
			zap.Int64("existing_id", match.ID),
			zap.String("phone", req.Phone))
	}

	student := &models.Student{
		Active:        true,
		AdmissionDate: s.now().UTC(),
		DocumentFile:  reference,
	}
	applyFields(student, req, fee)
	if err := s.repo.Insert(ctx, student); err != nil {
		if reference != "" {
			s.documents.Remove(reference)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return &UpsertResult{Student: student, Restored: false}, nil
}

// Edit mutates the editable fields of an existing student. The
// identifier, admission date and active flag never change here; the
// document reference is replaced only when a new upload accompanies
// the call.
func (s *StudentService) Edit(ctx context.Context, id int64, req UpsertStudentRequest, upload *DocumentUpload) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	fee, err := s.parseFee(req.Fee)
	if err != nil {
		return nil, err
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if upload != nil {
		reference, err := s.documents.Store(upload)
		if err != nil {
			return nil, err
		}
		student.DocumentFile = reference
	}

	applyFields(student, req, fee)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// SoftDelete marks a student as removed. Re-applying to an already
// removed student is a no-op, not an error.
func (s *StudentService) SoftDelete(ctx context.Context, id int64) error {
	if _, err := s.findExisting(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	return nil
}

// Restore reactivates a removed student without altering other fields.
func (s *StudentService) Restore(ctx context.Context, id int64) error {
	if _, err := s.findExisting(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore student")
	}
	return nil
}

// PermanentDelete erases the row and its attachment irrecoverably.
func (s *StudentService) PermanentDelete(ctx context.Context, id int64) error {
	student, err := s.findExisting(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if student.DocumentFile != "" {
		s.documents.Remove(student.DocumentFile)
	}
	return nil
}

func (s *StudentService) findExisting(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// parseFee applies the fee leniency policy: unparseable or negative
// values become 0 unless strict fees are configured.
func (s *StudentService) parseFee(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	fee, err := strconv.ParseFloat(raw, 64)
	if err != nil || fee < 0 {
		if s.cfg.StrictFees {
			return 0, appErrors.Clone(appErrors.ErrValidation, "fee must be a non-negative number")
		}
		return 0, nil
	}
	return fee, nil
}

func applyFields(student *models.Student, req UpsertStudentRequest, fee float64) {
	student.Name = req.Name
	student.GuardianName = req.GuardianName
	student.Phone = req.Phone
	student.Address = req.Address
	student.Shift = req.Shift
	student.SheetNo = req.SheetNo
	student.AdmissionMonth = canonicalMonth(req.AdmissionMonth)
	student.FeeAmount = fee
	student.AadhaarNo = req.AadhaarNo
}

// canonicalMonth normalizes a month name to its calendar spelling.
// Free-text values that match no month are stored as given.
func canonicalMonth(raw string) string {
	for _, month := range models.AdmissionMonths {
		if strings.EqualFold(strings.TrimSpace(raw), month) {
			return month
		}
	}
	return raw
}
