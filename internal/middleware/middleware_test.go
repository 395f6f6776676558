package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/pkg/auth"
	apperrors "github.com/jwalitptl/uhcare-api/pkg/errors"
	"github.com/jwalitptl/uhcare-api/pkg/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func authRouter(tokens auth.JWTService) *gin.Engine {
	m := NewAuthMiddleware(tokens)
	r := gin.New()
	r.Use(m.Authenticate())
	r.GET("/me", func(c *gin.Context) {
		actor, _ := CurrentActor(c)
		c.JSON(http.StatusOK, actor)
	})
	r.GET("/admin", m.RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewJWTService("test-secret", "uhcare-api", time.Hour)
	r := authRouter(tokens)
	userID := uuid.New()
	token, err := tokens.GenerateAccessToken(userID, auth.RoleCustomer)
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/me", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, decode(t, w).Success)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Token " + token})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + token})
		require.Equal(t, http.StatusOK, w.Code)
		var actor model.Actor
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actor))
		assert.Equal(t, userID, actor.UserID)
		assert.Equal(t, model.RoleCustomer, actor.Role)
	})

	t.Run("role required", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusForbidden, w.Code)

		adminToken, err := tokens.GenerateAccessToken(uuid.New(), auth.RoleAdmin)
		require.NoError(t, err)
		w = perform(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + adminToken})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRateLimit_PerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", nil).Code)
	w := perform(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.ErrTooManyRequests, decode(t, w).Error.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	known := uuid.NewString()
	w := perform(r, http.MethodGet, "/", map[string]string{HeaderXRequestID: known})
	assert.Equal(t, known, w.Header().Get(HeaderXRequestID))
	assert.Equal(t, known, w.Body.String())

	w = perform(r, http.MethodGet, "/", map[string]string{HeaderXRequestID: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(HeaderXRequestID))
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w).Error.Message)
}

func TestErrorHandler_WritesUnhandledErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("order", nil))
	})

	w := perform(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "order not found", decode(t, w).Error.Message)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig([]string{"https://uhcare.example.org"})))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodOptions, "/", map[string]string{"Origin": "https://uhcare.example.org"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://uhcare.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	w = perform(r, http.MethodOptions, "/", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
