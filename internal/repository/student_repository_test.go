package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustak-labs/library-admin-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "guardian_name", "phone", "address", "shift", "sheet_no", "admission_month", "fee_amount", "aadhaar_no", "admission_date", "active", "document_file", "created_at", "updated_at"}).
		AddRow(1, "Ravi", "Mohan", "9990001111", "Street 1", "Morning", "A-12", "January", 500.0, "1234-5678-9012", now, true, "", now, now)
}

func TestStudentRepositoryListUnfilteredOrdersByIDDesc(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE 1=1 ORDER BY id DESC")).
		WillReturnRows(studentRows())

	students, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFilteredOrdersBySheetNo(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	active := true
	mock.ExpectQuery(regexp.QuoteMeta("sheet_no LIKE ? ORDER BY sheet_no ASC")).
		WithArgs(true, "A-").
		WillReturnRows(studentRows())

	students, err := repo.List(context.Background(), models.StudentFilter{Active: &active, SheetNo: "A-"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByNaturalKey(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE phone = ? OR aadhaar_no = ? ORDER BY id DESC LIMIT 1")).
		WithArgs("9990001111", "1234-5678-9012").
		WillReturnRows(studentRows())

	student, err := repo.FindByNaturalKey(context.Background(), "9990001111", "1234-5678-9012")
	require.NoError(t, err)
	assert.Equal(t, int64(1), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByNaturalKeyNoMatch(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC LIMIT 1")).
		WithArgs("000", "").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByNaturalKey(context.Background(), "000", "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(7, 1))

	student := &models.Student{Name: "Ravi", GuardianName: "Mohan", Phone: "9990001111", AdmissionDate: time.Now(), Active: true}
	err := repo.Insert(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, int64(7), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET active = ?, updated_at = ? WHERE id = ?")).
		WithArgs(false, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), 1, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = ?")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCounters(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"active_students", "inactive_students", "total_fees"}).AddRow(3, 1, 1500.0)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	summary, err := repo.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ActiveStudents)
	assert.Equal(t, 1, summary.InactiveStudents)
	assert.Equal(t, 1500.0, summary.TotalFees)
	assert.False(t, summary.GeneratedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDocumentReferences(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"document_file"}).
		AddRow("1701_aadhaar.png").
		AddRow("1702_card.jpg")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT document_file FROM students WHERE document_file != ''")).
		WillReturnRows(rows)

	refs, err := repo.DocumentReferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1701_aadhaar.png", "1702_card.jpg"}, refs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
