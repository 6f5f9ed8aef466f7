package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/config"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/store"
	"github.com/medivuno/telehealth-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Users  *store.UserStore
	Tokens *store.TokenStore
	Cfg    *config.Config
	Log    *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *store.UserStore, tokens *store.TokenStore, cfg *config.Config, log *logger.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, Cfg: cfg, Log: log}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required"`
	Gender    string `json:"gender"`
	Specialty string `json:"specialty"`
}

// Register handles self-service sign-up for patients and doctors. Admin
// accounts are created through the user management endpoints.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok || role == models.RoleAdmin {
		utils.RespondError(c, h.Log, apperr.Invalid("role", "must be patient or doctor"))
		return
	}
	gender, err := parseOptionalGender(req.Gender)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      role,
		Gender:    gender,
		Specialty: req.Specialty,
	}
	if err := h.createUser(c, &user, req.Password); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	middleware.LogEntry(c, h.Log).WithField("user_id", user.ID).Info("User registered")
	utils.Created(c, "User registered successfully", user.Sanitize())
}

// createUser hashes password and inserts user, rejecting duplicate emails.
func (h *AuthHandler) createUser(c *gin.Context, user *models.User, password string) error {
	taken, err := h.Users.EmailTaken(c.Request.Context(), user.Email, "")
	if err != nil {
		return apperr.Storage("check email", err)
	}
	if taken {
		return apperr.Invalid("email", "is already registered")
	}
	if err := user.SetPassword(password); err != nil {
		return &apperr.StorageError{Op: "hash password", Err: err}
	}
	return apperr.Storage("create user", h.Users.Create(c.Request.Context(), user))
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Users.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			utils.Unauthorized(c, "Invalid email or password")
			return
		}
		utils.RespondError(c, h.Log, err)
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token: the presented one is revoked and a
// new pair is issued. The token is read from the cookie, then the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Tokens.FindActive(ctx, presented, claims.UserID, time.Now()); err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
			return
		}
		utils.RespondError(c, h.Log, err)
		return
	}

	user, err := h.Users.GetUser(ctx, claims.UserID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if _, err := h.Tokens.Revoke(ctx, presented, time.Now()); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// issueTokens signs a new token pair, stores the refresh token and sets it as
// an HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, error) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", &apperr.StorageError{Op: "sign tokens", Err: err}
	}

	rt := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().UTC().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := h.Tokens.Create(c.Request.Context(), &rt); err != nil {
		return "", "", apperr.Storage("store refresh token", err)
	}

	c.SetCookie(refreshCookie, refreshToken, h.Cfg.JWTRefreshExpirationHours*60*60,
		"/", "", h.Cfg.Environment != "development", true)
	return accessToken, refreshToken, nil
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the refresh token and clears its cookie. Unknown tokens are
// not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookie)
	}
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	if _, err := h.Tokens.Revoke(c.Request.Context(), token, time.Now()); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", h.Cfg.Environment != "development", true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile returns the authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	user, err := h.Users.GetUser(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
// Empty fields are left unchanged; email is not editable here.
type UpdateProfileRequest struct {
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Gender       string     `json:"gender"`
	PhoneNumber  string     `json:"phoneNumber"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	Address      string     `json:"address"`
	Specialty    string     `json:"specialty"`
	ProfileImage string     `json:"profileImage"`
}

// UpdateProfile updates the authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if !utils.BindJSON(c, h.Log, &req, "dateOfBirth") {
		return
	}

	user, err := h.Users.GetUser(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if err := applyProfile(user, req); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if err := h.Users.Save(c.Request.Context(), user); err != nil {
		utils.RespondError(c, h.Log, apperr.Storage("update profile", err))
		return
	}
	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

func applyProfile(user *models.User, req UpdateProfileRequest) error {
	if req.Gender != "" {
		gender, err := parseOptionalGender(req.Gender)
		if err != nil {
			return err
		}
		user.Gender = gender
	}
	if req.DateOfBirth != nil {
		if req.DateOfBirth.After(time.Now()) {
			return apperr.Invalid("dateOfBirth", "must be in the past")
		}
		dob := req.DateOfBirth.UTC()
		user.DateOfBirth = &dob
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.Specialty != "" {
		user.Specialty = req.Specialty
	}
	if req.ProfileImage != "" {
		user.ProfileImage = req.ProfileImage
	}
	return nil
}

// parseOptionalGender maps "" to no gender and rejects unknown values.
func parseOptionalGender(raw string) (models.Gender, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	gender, ok := models.ParseGender(raw)
	if !ok {
		return "", apperr.Invalid("gender", "must be one of Male, Female, Other")
	}
	return gender, nil
}
