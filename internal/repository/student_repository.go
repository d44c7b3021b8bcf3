package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pustak-labs/library-admin-api/internal/models"
)

const studentColumns = "id, name, guardian_name, phone, address, shift, sheet_no, admission_month, fee_amount, aadhaar_no, admission_date, active, document_file, created_at, updated_at"

// StudentRepository manages persistence for student records. It is
// the only mutation surface over the students table.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters. Filtered
// listings order by sheet number ascending; the unfiltered path keeps
// the legacy identifier-descending presentation.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Active != nil {
		conditions = append(conditions, "active = ?")
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(guardian_name) LIKE ?)")
		needle := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, needle, needle)
	}
	if filter.SheetNo != "" {
		conditions = append(conditions, "sheet_no LIKE ?")
		args = append(args, filter.SheetNo+"%")
	}
	if filter.AdmissionMonth != "" {
		conditions = append(conditions, "admission_month LIKE ?")
		args = append(args, filter.AdmissionMonth+"%")
	}

	order := "id DESC"
	if filter.Filtered() {
		order = "sheet_no ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY %s", studentColumns, strings.Join(conditions, " AND "), order)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID. Returns sql.ErrNoRows when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = ?", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByNaturalKey returns the best duplicate candidate for the given
// phone or Aadhaar number: the most recently created row wins ties.
// Returns sql.ErrNoRows when nothing matches.
func (r *StudentRepository) FindByNaturalKey(ctx context.Context, phone, aadhaarNo string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE phone = ? OR aadhaar_no = ? ORDER BY id DESC LIMIT 1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, phone, aadhaarNo); err != nil {
		return nil, err
	}
	return &student, nil
}

// Insert creates a new student row and assigns its identifier.
func (r *StudentRepository) Insert(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (name, guardian_name, phone, address, shift, sheet_no, admission_month, fee_amount, aadhaar_no, admission_date, active, document_file, created_at, updated_at)
        VALUES (:name, :guardian_name, :phone, :address, :shift, :sheet_no, :admission_month, :fee_amount, :aadhaar_no, :admission_date, :active, :document_file, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert student id: %w", err)
	}
	student.ID = id
	return nil
}

// Overwrite replaces every mutable field on the row, including the
// admission date, active flag and document reference. Used by the
// restore-on-conflict path of upsert.
func (r *StudentRepository) Overwrite(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, guardian_name = :guardian_name, phone = :phone, address = :address, shift = :shift, sheet_no = :sheet_no, admission_month = :admission_month, fee_amount = :fee_amount, aadhaar_no = :aadhaar_no, admission_date = :admission_date, active = :active, document_file = :document_file, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("overwrite student: %w", err)
	}
	return nil
}

// Update modifies the editable fields of an existing student. The
// identifier, admission date and active flag are left untouched.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, guardian_name = :guardian_name, phone = :phone, address = :address, shift = :shift, sheet_no = :sheet_no, admission_month = :admission_month, fee_amount = :fee_amount, aadhaar_no = :aadhaar_no, document_file = :document_file, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetActive flips the soft-delete flag without touching other fields.
func (r *StudentRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE students SET active = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set student active: %w", err)
	}
	return nil
}

// Delete removes the row permanently. Irreversible.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM students WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// Counters derives the reporting aggregates from current table state.
func (r *StudentRepository) Counters(ctx context.Context) (*models.ReportSummary, error) {
	const query = `SELECT
        COUNT(CASE WHEN active THEN 1 END) AS active_students,
        COUNT(CASE WHEN NOT active THEN 1 END) AS inactive_students,
        COALESCE(SUM(CASE WHEN active THEN fee_amount ELSE 0 END), 0) AS total_fees
        FROM students`
	var summary models.ReportSummary
	if err := r.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("student counters: %w", err)
	}
	summary.GeneratedAt = time.Now().UTC()
	return &summary, nil
}

// DocumentReferences returns every stored document filename still
// referenced by a row, active or not.
func (r *StudentRepository) DocumentReferences(ctx context.Context) ([]string, error) {
	const query = `SELECT document_file FROM students WHERE document_file != ''`
	refs := make([]string, 0)
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list document references: %w", err)
	}
	return refs, nil
}
