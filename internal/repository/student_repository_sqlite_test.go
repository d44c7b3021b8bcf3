package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustak-labs/library-admin-api/internal/models"
	"github.com/pustak-labs/library-admin-api/pkg/config"
	"github.com/pustak-labs/library-admin-api/pkg/database"
)

func newSQLiteRepo(t *testing.T) *StudentRepository {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "students.db"),
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStudentRepository(db)
}

func seedStudent(t *testing.T, repo *StudentRepository, name, phone string, fee float64, active bool) *models.Student {
	t.Helper()
	student := &models.Student{
		Name:          name,
		GuardianName:  "Mohan",
		Phone:         phone,
		AdmissionDate: time.Now().UTC(),
		FeeAmount:     fee,
		Active:        active,
	}
	require.NoError(t, repo.Insert(context.Background(), student))
	return student
}

func TestStudentRepositoryCountersEmptyTableSQLite(t *testing.T) {
	repo := newSQLiteRepo(t)

	summary, err := repo.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ActiveStudents)
	assert.Equal(t, 0, summary.InactiveStudents)
	assert.Equal(t, 0.0, summary.TotalFees)
	assert.False(t, summary.GeneratedAt.IsZero())
}

func TestStudentRepositoryCountersAggregatesSQLite(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	seedStudent(t, repo, "Ravi", "9990001111", 500, true)
	seedStudent(t, repo, "Sita", "9990002222", 700, true)
	gone := seedStudent(t, repo, "Gone", "9990003333", 900, true)
	require.NoError(t, repo.SetActive(ctx, gone.ID, false))

	summary, err := repo.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ActiveStudents)
	assert.Equal(t, 1, summary.InactiveStudents)
	assert.Equal(t, 1200.0, summary.TotalFees)
}

func TestStudentRepositoryCountersAllInactiveSQLite(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	gone := seedStudent(t, repo, "Gone", "9990003333", 900, true)
	require.NoError(t, repo.SetActive(ctx, gone.ID, false))

	summary, err := repo.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ActiveStudents)
	assert.Equal(t, 1, summary.InactiveStudents)
	assert.Equal(t, 0.0, summary.TotalFees)
}

func TestStudentRepositoryFindByNaturalKeyNewestWinsSQLite(t *testing.T) {
	repo := newSQLiteRepo(t)

	first := seedStudent(t, repo, "Ravi", "9990001111", 500, true)
	second := seedStudent(t, repo, "Ravi Again", "9990001111", 600, true)
	require.Greater(t, second.ID, first.ID)

	found, err := repo.FindByNaturalKey(context.Background(), "9990001111", "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
	assert.Equal(t, "Ravi Again", found.Name)
}
