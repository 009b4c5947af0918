package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseAllowlist(t *testing.T) {
	prefixes := ParseAllowlist([]string{"10.0.0.0/8", " 192.168.1.10 ", "not-an-ip", "::1"})
	assert.Len(t, prefixes, 3)
	assert.Equal(t, "192.168.1.10/32", prefixes[1].String())
	assert.Equal(t, "::1/128", prefixes[2].String())
}

func TestSwaggerProtection(t *testing.T) {
	jwtService := newTestJWTService()
	token, _ := newTestToken(t, jwtService)

	newRouter := func(cfg config.SwaggerConfig) *gin.Engine {
		router := gin.New()
		router.GET("/swagger/index.html", SwaggerProtection(cfg, JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: jwtService})),
			func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	serve := func(router *gin.Engine, remoteAddr, authHeader string) int {
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		req.RemoteAddr = remoteAddr
		if authHeader != "" {
			req.Header.Set(AuthHeaderKey, authHeader)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	tests := []struct {
		name   string
		cfg    config.SwaggerConfig
		remote string
		header string
		want   int
	}{
		{"disabled", config.SwaggerConfig{}, "10.1.2.3:5000", "", http.StatusNotFound},
		{"open", config.SwaggerConfig{Enabled: true}, "203.0.113.9:5000", "", http.StatusOK},
		{"allowed network", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "10.1.2.3:5000", "", http.StatusOK},
		{"outside network", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "203.0.113.9:5000", "", http.StatusForbidden},
		{"auth required without token", config.SwaggerConfig{Enabled: true, RequireAuth: true}, "10.1.2.3:5000", "", http.StatusUnauthorized},
		{"auth required with token", config.SwaggerConfig{Enabled: true, RequireAuth: true}, "10.1.2.3:5000", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(newRouter(tt.cfg), tt.remote, tt.header))
		})
	}
}
