package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pustak-labs/library-admin-api/internal/service"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
	"github.com/pustak-labs/library-admin-api/pkg/response"
)

// DocumentHandler serves identity documents through signed tokens so
// the uploads directory is never exposed directly.
type DocumentHandler struct {
	students    *service.StudentService
	attachments *service.AttachmentService
	apiPrefix   string
}

// NewDocumentHandler constructs the handler. apiPrefix is the route
// group prefix the download endpoint is mounted under, so issued
// links resolve to the registered route.
func NewDocumentHandler(students *service.StudentService, attachments *service.AttachmentService, apiPrefix string) *DocumentHandler {
	return &DocumentHandler{
		students:    students,
		attachments: attachments,
		apiPrefix:   strings.TrimRight(apiPrefix, "/"),
	}
}

// Link godoc
// @Summary Issue a signed download link for a student's document
// @Tags Documents
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/document [get]
func (h *DocumentHandler) Link(c *gin.Context) {
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
	if student.DocumentFile == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student has no document on file"))
		return
	}
	token, err := h.attachments.DownloadToken(student.ID, student.DocumentFile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"url": h.apiPrefix + "/documents/download?token=" + url.QueryEscape(token)}, nil)
}

// Download godoc
// @Summary Download a document by signed token
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, reference, err := h.attachments.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.FileAttachment(file.Name(), reference)
}
