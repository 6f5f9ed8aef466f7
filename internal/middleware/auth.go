package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/utils"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
)

// AuthMiddleware authenticates the bearer access token and stores the caller
// under UserIDKey and UserRoleKey.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			utils.Unauthorized(c, msg)
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(token, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserRoleKey, claims.Role)
		if entry, ok := c.Get(logEntryKey); ok {
			if le, ok := entry.(*logrus.Entry); ok {
				c.Set(logEntryKey, le.WithField("user_id", claims.UserID))
			}
		}

		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header. On failure it
// returns "" and the message to send back.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Authorization header required"
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

// RoleAuthMiddleware lets through only callers whose role is in allowed.
// It must run after AuthMiddleware.
func RoleAuthMiddleware(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.InternalServerError(c, "User role missing from request context")
			c.Abort()
			return
		}
		if !slices.Contains(allowed, role) {
			utils.Forbidden(c, "You do not have permission to access this resource.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserIDFromContext returns the authenticated user's ID.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}

// GetUserRoleFromContext returns the authenticated user's role.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	v, ok := c.Get(UserRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(models.Role)
	return role, ok
}

// ActorFromContext returns the authenticated caller set by AuthMiddleware.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		return models.Actor{}, false
	}
	role, ok := GetUserRoleFromContext(c)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{UserID: userID, Role: role}, true
}
