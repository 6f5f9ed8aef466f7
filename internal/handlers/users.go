package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/store"
	"github.com/medivuno/telehealth-server/internal/utils"
)

// UserHandler handles user-related requests (typically admin operations).
type UserHandler struct {
	Users *store.UserStore
	Log   *logger.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *store.UserStore, log *logger.Logger) *UserHandler {
	return &UserHandler{Users: users, Log: log}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required"`
	Gender    string `json:"gender"`
	Specialty string `json:"specialty"`
}

// CreateUser handles creating a new user of any role (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		utils.RespondError(c, h.Log, apperr.Invalid("role", "must be admin, doctor or patient"))
		return
	}
	gender, err := parseOptionalGender(req.Gender)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := h.Users.EmailTaken(ctx, email, "")
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if taken {
		utils.RespondError(c, h.Log, apperr.Invalid("email", "is already registered"))
		return
	}

	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
		Role:      role,
		Gender:    gender,
		Specialty: req.Specialty,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if err := h.Users.Create(ctx, &user); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers lists users (admin). Optional ?role= narrows the list.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var role models.Role
	if raw := c.Query("role"); raw != "" {
		var ok bool
		if role, ok = models.ParseRole(raw); !ok {
			utils.RespondError(c, h.Log, apperr.Invalid("role", "unknown role %q", raw))
			return
		}
	}

	users, err := h.Users.List(c.Request.Context(), role)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Users fetched successfully", models.SanitizeAll(users))
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.Users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
// Passwords change through a separate flow.
type UpdateUserRequest struct {
	UpdateProfileRequest
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateUser handles updating a user by ID (admin).
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindJSON(c, h.Log, &req, "dateOfBirth") {
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.GetUser(ctx, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	if req.Role != "" {
		role, ok := models.ParseRole(req.Role)
		if !ok {
			utils.RespondError(c, h.Log, apperr.Invalid("role", "unknown role %q", req.Role))
			return
		}
		user.Role = role
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		taken, err := h.Users.EmailTaken(ctx, email, user.ID)
		if err != nil {
			utils.RespondError(c, h.Log, err)
			return
		}
		if taken {
			utils.RespondError(c, h.Log, apperr.Invalid("email", "is already in use"))
			return
		}
		user.Email = email
	}
	if err := applyProfile(user, req.UpdateProfileRequest); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	if err := h.Users.Save(ctx, user); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles deleting a user by ID (admin).
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "User deleted successfully", nil)
}

// GetDoctors lists every doctor so patients can pick one to book with.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Users.List(c.Request.Context(), models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", models.SanitizeAll(doctors))
}

// GetDoctorPatients lists a doctor's patients: everyone with at least one
// appointment with them. Admins get every patient.
func (h *UserHandler) GetDoctorPatients(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var (
		patients []models.User
		err      error
	)
	switch actor.Role {
	case models.RoleDoctor:
		patients, err = h.Users.PatientsOfDoctor(c.Request.Context(), actor.UserID)
	case models.RoleAdmin:
		patients, err = h.Users.List(c.Request.Context(), models.RolePatient)
	default:
		err = apperr.ErrForbidden
	}
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Patients fetched successfully", models.SanitizeAll(patients))
}
