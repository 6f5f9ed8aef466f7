package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/reports"
	"github.com/medivuno/telehealth-server/internal/utils"
)

// ReportHandler handles medical report requests.
type ReportHandler struct {
	Reports *reports.Service
	Log     *logger.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc *reports.Service, log *logger.Logger) *ReportHandler {
	return &ReportHandler{Reports: svc, Log: log}
}

// CreateReportRequest represents the request body for creating a report.
type CreateReportRequest struct {
	PatientID       string    `json:"patientId"`
	AppointmentID   *string   `json:"appointmentId"`
	Type            string    `json:"type"`
	Title           string    `json:"title"`
	Date            time.Time `json:"date"`
	Findings        string    `json:"findings"`
	Recommendations string    `json:"recommendations"`
}

// CreateReport renders and stores a new report. Doctors only.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateReportRequest
	if !utils.BindJSON(c, h.Log, &req, "date") {
		return
	}

	report, err := h.Reports.Create(c.Request.Context(), actor, reports.NewReport{
		PatientID:       req.PatientID,
		AppointmentID:   req.AppointmentID,
		Type:            req.Type,
		Title:           req.Title,
		Date:            req.Date,
		Findings:        req.Findings,
		Recommendations: req.Recommendations,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Report created successfully", report)
}

// GetReports lists the caller's reports. Admins and doctors may narrow by
// ?patientId=, admins also by ?doctorId=.
func (h *ReportHandler) GetReports(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	filter := models.ReportFilter{
		PatientID: c.Query("patientId"),
		DoctorID:  c.Query("doctorId"),
	}
	list, err := h.Reports.List(c.Request.Context(), actor, filter)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Reports fetched successfully", list)
}

func (h *ReportHandler) GetReportByID(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	report, err := h.Reports.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Report fetched successfully", report)
}

// DownloadReportPDF streams the generated PDF.
func (h *ReportHandler) DownloadReportPDF(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	report, rc, err := h.Reports.OpenPDF(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="report-%s.pdf"`, report.ID),
	})
}

// MarkReportReviewed lets the patient acknowledge a report.
func (h *ReportHandler) MarkReportReviewed(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	report, err := h.Reports.MarkReviewed(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Report marked as reviewed", report)
}
