package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/availability"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/scheduling"
	"github.com/medivuno/telehealth-server/internal/utils"
)

// WorkingHoursHandler reads and edits a provider's weekly schedule.
type WorkingHoursHandler struct {
	Hours *availability.Store
	Users scheduling.UserLookup
	Log   *logger.Logger
}

// NewWorkingHoursHandler creates a new WorkingHoursHandler.
func NewWorkingHoursHandler(hours *availability.Store, users scheduling.UserLookup, log *logger.Logger) *WorkingHoursHandler {
	return &WorkingHoursHandler{Hours: hours, Users: users, Log: log}
}

// UpdateWorkingHoursRequest represents the request body for replacing a schedule.
type UpdateWorkingHoursRequest struct {
	Timezone string                           `json:"timezone"`
	Weekly   map[string][]availability.Window `json:"weekly" binding:"required"`
}

// GetWorkingHours returns the stored schedule, or the default calendar.
func (h *WorkingHoursHandler) GetWorkingHours(c *gin.Context) {
	providerID := c.Param("id")
	if err := h.requireProvider(c.Request.Context(), providerID); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	sched, err := h.Hours.Get(c.Request.Context(), providerID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Working hours fetched successfully", sched)
}

// UpdateWorkingHours replaces a provider's schedule.
func (h *WorkingHoursHandler) UpdateWorkingHours(c *gin.Context) {
	providerID, ok := h.authorizeEdit(c)
	if !ok {
		return
	}

	var req UpdateWorkingHoursRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	sched := &availability.Schedule{ProviderID: providerID, Timezone: req.Timezone, Weekly: req.Weekly}
	if err := h.Hours.Set(c.Request.Context(), sched); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	middleware.LogEntry(c, h.Log).WithFields(logrus.Fields{
		"provider_id": providerID,
		"timezone":    sched.Timezone,
	}).Info("Working hours updated")
	utils.Success(c, "Working hours updated successfully", sched)
}

// ResetWorkingHours drops a stored schedule so the default calendar applies.
func (h *WorkingHoursHandler) ResetWorkingHours(c *gin.Context) {
	providerID, ok := h.authorizeEdit(c)
	if !ok {
		return
	}

	if err := h.Hours.Reset(c.Request.Context(), providerID); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	sched, err := h.Hours.Get(c.Request.Context(), providerID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Working hours reset to default", sched)
}

// authorizeEdit allows the provider themselves or an admin.
func (h *WorkingHoursHandler) authorizeEdit(c *gin.Context) (string, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return "", false
	}

	providerID := c.Param("id")
	if actor.Role != models.RoleAdmin && actor.UserID != providerID {
		utils.RespondError(c, h.Log, apperr.ErrForbidden)
		return "", false
	}
	if err := h.requireProvider(c.Request.Context(), providerID); err != nil {
		utils.RespondError(c, h.Log, err)
		return "", false
	}
	return providerID, true
}

func (h *WorkingHoursHandler) requireProvider(ctx context.Context, id string) error {
	user, err := h.Users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role != models.RoleDoctor {
		return apperr.NotFound("provider")
	}
	return nil
}
