package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medivuno/telehealth-server/internal/config"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/store"
)

func newAuthRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Environment:               "development",
		JWTSecret:                 "access",
		JWTRefreshSecret:          "refresh",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
	users := store.NewUserStore(db)
	h := NewAuthHandler(users, store.NewTokenStore(db), cfg, logger.Discard())

	r := newRouter()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.PUT("/auth/profile", h.UpdateProfile)
	return r, mock
}

func TestRegisterRejectsAdminAndUnknownGender(t *testing.T) {
	r, mock := newAuthRouter(t)
	base := RegisterRequest{FirstName: "Ada", LastName: "L", Email: "ada@example.com", Password: "longenough"}

	req := base
	req.Role = "admin"
	w, resp := do(t, r, models.Actor{}, http.MethodPost, "/auth/register", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "role", resp.Field)

	req = base
	req.Role = "Patient"
	req.Gender = "unknown"
	w, resp = do(t, r, models.Actor{}, http.MethodPost, "/auth/register", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "gender", resp.Field)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE email = \\?").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	w, resp := do(t, r, models.Actor{}, http.MethodPost, "/auth/register", RegisterRequest{
		FirstName: "Ada", LastName: "L", Email: "Ada@Example.com", Password: "longenough", Role: "patient",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", resp.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	r, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w, _ := do(t, r, models.Actor{}, http.MethodPost, "/auth/login", LoginRequest{Email: "ghost@example.com", Password: "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApplyProfile(t *testing.T) {
	user := &models.User{FirstName: "Ada", Gender: models.GenderFemale}

	require.NoError(t, applyProfile(user, UpdateProfileRequest{PhoneNumber: "+44 20 7946 0000", Gender: "other"}))
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, models.GenderOther, user.Gender)
	assert.Equal(t, "+44 20 7946 0000", user.PhoneNumber)

	err := applyProfile(user, UpdateProfileRequest{Gender: "n/a"})
	assert.Error(t, err)
	assert.Equal(t, models.GenderOther, user.Gender)
}

func TestCanMessage(t *testing.T) {
	assert.True(t, canMessage(models.RolePatient, models.RoleDoctor))
	assert.True(t, canMessage(models.RoleDoctor, models.RolePatient))
	assert.True(t, canMessage(models.RoleAdmin, models.RolePatient))
	assert.False(t, canMessage(models.RolePatient, models.RolePatient))
	assert.False(t, canMessage(models.RoleDoctor, models.RoleDoctor))
}
