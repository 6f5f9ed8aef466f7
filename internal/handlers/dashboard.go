package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/dashboard"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/scheduling"
	"github.com/medivuno/telehealth-server/internal/utils"
)

// DashboardHandler serves the doctor dashboard and task endpoints.
type DashboardHandler struct {
	Dashboard *dashboard.Service
	Users     scheduling.UserLookup
	Log       *logger.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *dashboard.Service, users scheduling.UserLookup, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{Dashboard: svc, Users: users, Log: log}
}

// GetCounts returns today's appointments, patient count, completion rate and
// unread messages.
func (h *DashboardHandler) GetCounts(c *gin.Context) {
	providerID, ok := h.provider(c)
	if !ok {
		return
	}
	counts, err := h.Dashboard.Counts(c.Request.Context(), providerID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Dashboard counts fetched successfully", counts)
}

// GetWeeklySummary returns completed and open appointment counts for Mon-Fri
// of the current week.
func (h *DashboardHandler) GetWeeklySummary(c *gin.Context) {
	providerID, ok := h.provider(c)
	if !ok {
		return
	}
	summary, err := h.Dashboard.WeeklySummary(c.Request.Context(), providerID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Weekly summary fetched successfully", summary)
}

func (h *DashboardHandler) GetDemographics(c *gin.Context) {
	providerID, ok := h.provider(c)
	if !ok {
		return
	}
	demographics, err := h.Dashboard.Demographics(c.Request.Context(), providerID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Patient demographics fetched successfully", demographics)
}

func (h *DashboardHandler) GetPendingTasks(c *gin.Context) {
	providerID, ok := h.provider(c)
	if !ok {
		return
	}
	tasks, err := h.Dashboard.PendingTasks(c.Request.Context(), providerID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Pending tasks fetched successfully", tasks)
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Description string    `json:"description" binding:"required"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
	PatientID   *string   `json:"patientId"`
}

// CreateTask adds a follow-up task for the authenticated doctor.
func (h *DashboardHandler) CreateTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateTaskRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	task, err := h.Dashboard.CreateTask(c.Request.Context(), actor.UserID, dashboard.NewTask{
		Description: req.Description,
		DueDate:     req.DueDate,
		PatientID:   req.PatientID,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Task created successfully", task)
}

func (h *DashboardHandler) CompleteTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	task, err := h.Dashboard.CompleteTask(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Task completed successfully", task)
}

// provider resolves whose dashboard is requested. Doctors always see their
// own; admins name a doctor with ?providerId=.
func (h *DashboardHandler) provider(c *gin.Context) (string, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return "", false
	}

	switch actor.Role {
	case models.RoleDoctor:
		return actor.UserID, true
	case models.RoleAdmin:
		providerID := c.Query("providerId")
		if providerID == "" {
			utils.RespondError(c, h.Log, apperr.Invalid("providerId", "is required for admins"))
			return "", false
		}
		user, err := h.Users.GetUser(c.Request.Context(), providerID)
		if err == nil && user.Role != models.RoleDoctor {
			err = apperr.NotFound("provider")
		}
		if err != nil {
			utils.RespondError(c, h.Log, err)
			return "", false
		}
		return providerID, true
	default:
		utils.RespondError(c, h.Log, apperr.ErrForbidden)
		return "", false
	}
}
