package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pustak-labs/library-admin-api/internal/models"
)

type fakeReportSrv struct {
	summary *models.ReportSummary
	err     error
}

func (f *fakeReportSrv) Summary(context.Context) (*models.ReportSummary, error) {
	return f.summary, f.err
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func TestReportHandlerDashboardSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{
		summary: &models.ReportSummary{ActiveStudents: 10, InactiveStudents: 2, TotalFees: 5200},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Dashboard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, float64(10), envelope.Data["active_students"])
	assert.Equal(t, float64(2), envelope.Data["inactive_students"])
	assert.Equal(t, float64(5200), envelope.Data["total_fees"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestReportHandlerReportsServesSameCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{
		summary: &models.ReportSummary{ActiveStudents: 1},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports", nil)

	handler.Reports(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, float64(1), envelope.Data["active_students"])
}

func TestReportHandlerServiceFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{err: errors.New("database is locked")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Dashboard(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
