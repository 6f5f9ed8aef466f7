package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/scheduling"
	"github.com/medivuno/telehealth-server/internal/utils"
)

const dateLayout = "2006-01-02"

// AppointmentHandler handles slot lookups and the appointment lifecycle.
type AppointmentHandler struct {
	Scheduling *scheduling.Service
	Log        *logger.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *scheduling.Service, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{Scheduling: svc, Log: log}
}

// GetAvailableSlots lists free start times for a provider on one day.
// Query: date=YYYY-MM-DD (required), duration in minutes (default 30).
func (h *AppointmentHandler) GetAvailableSlots(c *gin.Context) {
	rawDate := c.Query("date")
	if rawDate == "" {
		utils.RespondError(c, h.Log, apperr.Invalid("date", "is required"))
		return
	}
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		utils.RespondError(c, h.Log, apperr.Invalid("date", "must be formatted as YYYY-MM-DD"))
		return
	}

	duration := 30
	if raw := c.Query("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, h.Log, apperr.Invalid("duration", "must be a whole number of minutes"))
			return
		}
	}

	slots, err := h.Scheduling.AvailableSlots(c.Request.Context(), c.Param("id"), date, duration)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Available slots fetched successfully", slots)
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	DoctorID  string    `json:"doctorId"`
	PatientID string    `json:"patientId"`
	DateTime  time.Time `json:"dateTime"`
	Duration  int       `json:"duration"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	Symptoms  string    `json:"symptoms"`
	Notes     string    `json:"notes"`
}

// CreateAppointment books an appointment. Field-level checks happen in the
// scheduling service so the response names the offending field.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindJSON(c, h.Log, &req, "dateTime") {
		return
	}

	appt, err := h.Scheduling.CreateAppointment(c.Request.Context(), actor, scheduling.CreateAppointmentRequest{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		DateTime:  req.DateTime,
		Duration:  req.Duration,
		Type:      req.Type,
		Reason:    req.Reason,
		Symptoms:  req.Symptoms,
		Notes:     req.Notes,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Appointment created successfully", appt)
}

// GetAppointmentsForUser lists the caller's appointments.
// Optional query: status, from, to (RFC 3339 or YYYY-MM-DD).
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var filter models.AppointmentFilter
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseAppointmentStatus(raw)
		if !ok {
			utils.RespondError(c, h.Log, apperr.Invalid("status", "unknown status %q", raw))
			return
		}
		filter.Status = status
	}
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	appts, err := h.Scheduling.List(c.Request.Context(), actor, filter)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID fetches one appointment the caller takes part in.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Scheduling.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// UpdateAppointmentStatusRequest represents the request body for a status change.
type UpdateAppointmentStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	DoctorNotes  string `json:"doctorNotes"`
	CancelReason string `json:"cancelReason"`
}

// UpdateAppointmentStatus moves an appointment one step through its lifecycle.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Scheduling.UpdateStatus(c.Request.Context(), actor, c.Param("id"), scheduling.StatusUpdate{
		Status:       req.Status,
		DoctorNotes:  req.DoctorNotes,
		CancelReason: req.CancelReason,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", appt)
}

// RescheduleAppointmentRequest represents the request body for rescheduling.
type RescheduleAppointmentRequest struct {
	DateTime time.Time `json:"dateTime"`
	Duration int       `json:"duration"`
}

// RescheduleAppointment moves an open appointment to a new free slot.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req RescheduleAppointmentRequest
	if !utils.BindJSON(c, h.Log, &req, "dateTime") {
		return
	}

	appt, err := h.Scheduling.Reschedule(c.Request.Context(), actor, c.Param("id"), scheduling.RescheduleRequest{
		DateTime: req.DateTime,
		Duration: req.Duration,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", appt)
}

// parseTimeQuery reads an optional RFC 3339 timestamp or calendar date.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, nil
	}
	return nil, apperr.Invalid(name, "must be an RFC 3339 timestamp or YYYY-MM-DD")
}
