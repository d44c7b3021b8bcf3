package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pustak-labs/library-admin-api/internal/models"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
	"github.com/pustak-labs/library-admin-api/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context) (*models.ReportSummary, error)
}

// ReportHandler serves the dashboard and reports pages. Both read the
// same freshly computed counters.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Dashboard godoc
// @Summary Dashboard summary
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	h.serve(c)
}

// Reports godoc
// @Summary Aggregate report
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) Reports(c *gin.Context) {
	h.serve(c)
}

func (h *ReportHandler) serve(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"processing_time_ms": time.Since(start).Milliseconds()}
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
