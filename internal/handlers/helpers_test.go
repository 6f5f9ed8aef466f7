package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// response mirrors utils.ResponseData with a raw payload.
type response struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Field   string          `json:"field"`
}

// asActor stands in for AuthMiddleware: it takes the caller from test headers.
func asActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(middleware.UserIDKey, id)
			c.Set(middleware.UserRoleKey, models.Role(c.GetHeader("X-Test-Role")))
		}
		c.Next()
	}
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(asActor())
	return r
}

func do(t *testing.T, r http.Handler, actor models.Actor, method, path string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor.UserID != "" {
		req.Header.Set("X-Test-User", actor.UserID)
		req.Header.Set("X-Test-Role", string(actor.Role))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	if w.Header().Get("Content-Type") != "application/pdf" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

var (
	doctor   = models.Actor{UserID: "doc-1", Role: models.RoleDoctor}
	patient  = models.Actor{UserID: "pat-1", Role: models.RolePatient}
	stranger = models.Actor{UserID: "pat-2", Role: models.RolePatient}
	admin    = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)
