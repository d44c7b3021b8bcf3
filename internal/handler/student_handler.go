package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pustak-labs/library-admin-api/internal/models"
	"github.com/pustak-labs/library-admin-api/internal/service"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
	"github.com/pustak-labs/library-admin-api/pkg/response"
)

// StudentHandler exposes student admission endpoints.
type StudentHandler struct {
	students *service.StudentService
	exports  *service.ExportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, exports *service.ExportService) *StudentHandler {
	return &StudentHandler{students: students, exports: exports}
}

// List godoc
// @Summary List active students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or guardian"
// @Param sheet_no query string false "Sheet number prefix"
// @Param admission_month query string false "Admission month prefix"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := listFilter(c)
	active := true
	filter.Active = &active

	students, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Removed godoc
// @Summary List removed students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or guardian"
// @Success 200 {object} response.Envelope
// @Router /students/removed [get]
func (h *StudentHandler) Removed(c *gin.Context) {
	filter := listFilter(c)
	active := false
	filter.Active = &active

	students, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Upsert godoc
// @Summary Admit a student
// @Description Creates a new row, or restores and overwrites a previously removed row matching on phone or Aadhaar number
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param guardian_name formData string true "Guardian name"
// @Param phone formData string true "Phone"
// @Param fee formData string false "Monthly fee"
// @Param document formData file false "Identity document"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Upsert(c *gin.Context) {
	var req service.UpsertStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admission payload"))
		return
	}

	upload, closeUpload, err := formUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	result, err := h.students.Upsert(c.Request.Context(), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Restored {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Created(c, result)
}

// Edit godoc
// @Summary Edit a student
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Edit(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.UpsertStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	upload, closeUpload, err := formUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	student, err := h.students.Edit(c.Request.Context(), id, req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SoftDelete godoc
// @Summary Remove a student
// @Description Marks the row inactive; the row and its document are kept
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) SoftDelete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.SoftDelete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore a removed student
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204 {object} response.Envelope
// @Router /students/{id}/restore [post]
func (h *StudentHandler) Restore(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Restore(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PermanentDelete godoc
// @Summary Permanently delete a student
// @Description Removes the row and its stored identity document
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204 {object} response.Envelope
// @Router /students/{id}/permanent [delete]
func (h *StudentHandler) PermanentDelete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.PermanentDelete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the active register
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	out, err := h.exports.Register(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func listFilter(c *gin.Context) models.StudentFilter {
	return models.StudentFilter{
		Search:         strings.TrimSpace(c.Query("search")),
		SheetNo:        strings.TrimSpace(c.Query("sheet_no")),
		AdmissionMonth: strings.TrimSpace(c.Query("admission_month")),
	}
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid student id")
	}
	return id, nil
}

// formUpload extracts the optional "document" multipart file. The
// returned closer is safe to defer even when no file was sent.
func formUpload(c *gin.Context) (*service.DocumentUpload, func(), error) {
	header, err := c.FormFile("document")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document upload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document upload")
	}
	return uploadFromHeader(header, file), func() { file.Close() }, nil
}

func uploadFromHeader(header *multipart.FileHeader, file multipart.File) *service.DocumentUpload {
	return &service.DocumentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
}
