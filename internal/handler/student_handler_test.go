package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pustak-labs/library-admin-api/internal/models"
	"github.com/pustak-labs/library-admin-api/internal/service"
)

type fakeStudentRepo struct {
	students   map[int64]models.Student
	nextID     int64
	lastFilter models.StudentFilter
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: make(map[int64]models.Student), nextID: 1}
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	f.lastFilter = filter
	out := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		if filter.Active != nil && s.Active != *filter.Active {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByNaturalKey(ctx context.Context, phone, aadhaarNo string) (*models.Student, error) {
	for id := range f.students {
		s := f.students[id]
		if s.Phone == phone || (aadhaarNo != "" && s.AadhaarNo == aadhaarNo) {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) Insert(ctx context.Context, student *models.Student) error {
	student.ID = f.nextID
	f.nextID++
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Overwrite(ctx context.Context, student *models.Student) error {
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) SetActive(ctx context.Context, id int64, active bool) error {
	if s, ok := f.students[id]; ok {
		s.Active = active
		f.students[id] = s
	}
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id int64) error {
	delete(f.students, id)
	return nil
}

func newStudentRouter(t *testing.T) (*gin.Engine, *fakeStudentRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newFakeStudentRepo()
	students := service.NewStudentService(repo, nil, validator.New(), zap.NewNop(), service.StudentServiceConfig{})
	exports := service.NewExportService(students, zap.NewNop())
	handler := NewStudentHandler(students, exports)

	router := gin.New()
	router.GET("/students", handler.List)
	router.GET("/students/removed", handler.Removed)
	router.GET("/students/export", handler.Export)
	router.GET("/students/:id", handler.Get)
	router.POST("/students", handler.Upsert)
	router.PUT("/students/:id", handler.Edit)
	router.DELETE("/students/:id", handler.SoftDelete)
	router.POST("/students/:id/restore", handler.Restore)
	router.DELETE("/students/:id/permanent", handler.PermanentDelete)
	return router, repo
}

func admissionForm(fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()
	return body, w.FormDataContentType()
}

func admissionFields() map[string]string {
	return map[string]string{
		"name":          "Ravi",
		"guardian_name": "Mohan",
		"phone":         "9990001111",
		"shift":         "Morning",
		"sheet_no":      "A-12",
		"fee":           "500",
	}
}

func TestStudentHandlerUpsertCreates(t *testing.T) {
	router, repo := newStudentRouter(t)

	body, contentType := admissionForm(admissionFields())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.students, 1)
}

func TestStudentHandlerUpsertRestoreReturnsOK(t *testing.T) {
	router, repo := newStudentRouter(t)

	body, contentType := admissionForm(admissionFields())
	req := httptest.NewRequest(http.MethodPost, "/students", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/students/1", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	body, contentType = admissionForm(admissionFields())
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/students", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, repo.students, 1)
	assert.True(t, repo.students[1].Active)

	var envelope struct {
		Data struct {
			Restored bool `json:"restored"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Restored)
}

func TestStudentHandlerUpsertValidationError(t *testing.T) {
	router, _ := newStudentRouter(t)

	body, contentType := admissionForm(map[string]string{"name": "Ravi"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerListFiltersActive(t *testing.T) {
	router, repo := newStudentRouter(t)
	repo.students[1] = models.Student{ID: 1, Name: "Ravi", Active: true}
	repo.students[2] = models.Student{ID: 2, Name: "Gone", Active: false}
	repo.nextID = 3

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students?search=ra", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.lastFilter.Active)
	assert.True(t, *repo.lastFilter.Active)
	assert.Equal(t, "ra", repo.lastFilter.Search)
	assert.NotContains(t, rec.Body.String(), "Gone")
}

func TestStudentHandlerRemovedFiltersInactive(t *testing.T) {
	router, repo := newStudentRouter(t)
	repo.students[1] = models.Student{ID: 1, Name: "Ravi", Active: true}
	repo.students[2] = models.Student{ID: 2, Name: "Gone", Active: false}
	repo.nextID = 3

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/removed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.lastFilter.Active)
	assert.False(t, *repo.lastFilter.Active)
	assert.Contains(t, rec.Body.String(), "Gone")
}

func TestStudentHandlerGetInvalidID(t *testing.T) {
	router, _ := newStudentRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	router, _ := newStudentRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/77", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerEditUrlencodedForm(t *testing.T) {
	router, repo := newStudentRouter(t)
	repo.students[1] = models.Student{ID: 1, Name: "Ravi", Phone: "9990001111", Active: true}
	repo.nextID = 2

	form := url.Values{}
	for k, v := range admissionFields() {
		form.Set(k, v)
	}
	form.Set("name", "Ravi Kumar")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/students/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ravi Kumar", repo.students[1].Name)
}

func TestStudentHandlerExportCSV(t *testing.T) {
	router, repo := newStudentRouter(t)
	repo.students[1] = models.Student{ID: 1, Name: "Ravi", Active: true}
	repo.nextID = 2

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/export?format=csv", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "student_register_")
	assert.Contains(t, rec.Body.String(), "Ravi")
}
