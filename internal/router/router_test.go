package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/uhcare-api/internal/handler/health"
	promhandler "github.com/jwalitptl/uhcare-api/internal/handler/prometheus"
	"github.com/jwalitptl/uhcare-api/internal/middleware"
	"github.com/jwalitptl/uhcare-api/pkg/auth"
)

type stubOrders struct{}

func (stubOrders) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/things", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func (stubOrders) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/things", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

type stubInbox struct{}

func (stubInbox) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/notifications", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func TestSetup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := auth.NewJWTService("secret", "uhcare-api", time.Hour)
	r := NewRouter(
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(nil),
		promhandler.New("uhcare", prometheus.NewRegistry()),
		stubInbox{},
		[]OrderHandler{stubOrders{}},
		RouterConfig{
			CORSConfig:  middleware.DefaultCORSConfig([]string{"*"}),
			RateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 1000, Burst: 1000}),
			MetricsPath: "/metrics",
		},
	)
	r.Setup()

	customer, err := tokens.GenerateAccessToken(uuid.New(), auth.RoleCustomer)
	require.NoError(t, err)
	admin, err := tokens.GenerateAccessToken(uuid.New(), auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"health is public", "/health/live", "", http.StatusOK},
		{"metrics are public", "/metrics", "", http.StatusOK},
		{"api requires a token", "/api/v1/things", "", http.StatusUnauthorized},
		{"customer route", "/api/v1/things", customer, http.StatusOK},
		{"inbox route", "/api/v1/notifications", customer, http.StatusOK},
		{"admin route rejects customers", "/api/v1/admin/things", customer, http.StatusForbidden},
		{"admin route", "/api/v1/admin/things", admin, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.Engine().ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
