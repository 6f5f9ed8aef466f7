package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/reports"
	"github.com/medivuno/telehealth-server/internal/reports/reporttest"
	"github.com/medivuno/telehealth-server/internal/scheduling/schedtest"
)

func newReportRouter(t *testing.T) (*gin.Engine, *reporttest.Store) {
	t.Helper()
	files, err := reports.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	st := reporttest.NewStore()
	users := schedtest.NewUsers(schedtest.Doctor("doc-1"), schedtest.Patient("pat-1"), schedtest.Patient("pat-2"))
	h := NewReportHandler(reports.NewService(st, users, schedtest.NewAppointments(), files, nil, logger.Discard()), logger.Discard())

	r := newRouter()
	r.POST("/reports", h.CreateReport)
	r.GET("/reports", h.GetReports)
	r.GET("/reports/:id", h.GetReportByID)
	r.GET("/reports/:id/pdf", h.DownloadReportPDF)
	r.PATCH("/reports/:id/review", h.MarkReportReviewed)
	return r, st
}

func createReport(t *testing.T, r *gin.Engine) models.Report {
	t.Helper()
	w, resp := do(t, r, doctor, http.MethodPost, "/reports", CreateReportRequest{
		PatientID: "pat-1",
		Type:      "Radiology",
		Title:     "Chest X-ray",
		Date:      time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		Findings:  "No acute findings.",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Error)
	var report models.Report
	decode(t, resp.Data, &report)
	return report
}

func TestReportCreateAndDownload(t *testing.T) {
	r, _ := newReportRouter(t)
	report := createReport(t, r)

	w, _ := do(t, r, patient, http.MethodGet, "/reports/"+report.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), report.ID)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w, _ = do(t, r, stranger, http.MethodGet, "/reports/"+report.ID+"/pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportCreateValidation(t *testing.T) {
	r, st := newReportRouter(t)

	w, resp := do(t, r, doctor, http.MethodPost, "/reports", CreateReportRequest{PatientID: "pat-1", Type: "Lab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, resp.Field)

	w, _ = do(t, r, patient, http.MethodPost, "/reports", CreateReportRequest{PatientID: "pat-1", Type: "Lab", Title: "x", Findings: "y"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, st.Len())
}

func TestReportListAndReview(t *testing.T) {
	r, _ := newReportRouter(t)
	report := createReport(t, r)

	w, resp := do(t, r, patient, http.MethodGet, "/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Report
	decode(t, resp.Data, &list)
	require.Len(t, list, 1)

	w, resp = do(t, r, stranger, http.MethodGet, "/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &list)
	assert.Empty(t, list)

	w, _ = do(t, r, doctor, http.MethodPatch, "/reports/"+report.ID+"/review", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	for i := 0; i < 2; i++ {
		w, resp = do(t, r, patient, http.MethodPatch, "/reports/"+report.ID+"/review", nil)
		require.Equal(t, http.StatusOK, w.Code, resp.Error)
	}
	var reviewed models.Report
	decode(t, resp.Data, &reviewed)
	assert.Equal(t, models.ReportReviewed, reviewed.Status)
}
