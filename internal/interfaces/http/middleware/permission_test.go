package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/auth"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func setupPermissionRouter(claims *auth.Claims, mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(JWTClaimsKey, claims)
		}
		c.Next()
	})
	router.Use(mw)
	router.GET("/cash", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		claims     *auth.Claims
		mw         gin.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{
			name:       "collector reaches collector route",
			claims:     &auth.Claims{Permissions: []string{auth.PermCollector}},
			mw:         RequirePermission(auth.PermCollector),
			wantStatus: http.StatusOK,
		},
		{
			name:       "cashier is denied collector route",
			claims:     &auth.Claims{Permissions: []string{auth.PermCashIssue}},
			mw:         RequirePermission(auth.PermCollector),
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrCodeForbidden,
		},
		{
			name:       "any of issue or manage",
			claims:     &auth.Claims{Permissions: []string{auth.PermCashManage}},
			mw:         RequireAnyPermission(auth.PermCashIssue, auth.PermCashManage),
			wantStatus: http.StatusOK,
		},
		{
			name:       "no permissions",
			claims:     &auth.Claims{},
			mw:         RequireAnyPermission(auth.PermCashIssue, auth.PermCashManage),
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrCodeForbidden,
		},
		{
			name:       "unauthenticated",
			mw:         RequirePermission(auth.PermCashRead),
			wantStatus: http.StatusUnauthorized,
			wantCode:   dto.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			setupPermissionRouter(tt.claims, tt.mw).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cash", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec))
			}
		})
	}
}

func TestRequireAnyPermissionWithConfig_LogsDenial(t *testing.T) {
	claims := &auth.Claims{UserID: "u-1", TenantID: "t-1"}
	mw := RequireAnyPermissionWithConfig(PermissionConfig{Logger: zaptest.NewLogger(t)}, auth.PermCashManage)

	rec := httptest.NewRecorder()
	setupPermissionRouter(claims, mw).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cash", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHasPermission(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, HasPermission(c, auth.PermCashRead))
	assert.False(t, HasAnyPermission(c, auth.PermCashRead, auth.PermCashManage))

	c.Set(JWTClaimsKey, &auth.Claims{Permissions: []string{auth.PermCashRead}})
	assert.True(t, HasPermission(c, auth.PermCashRead))
	assert.False(t, HasPermission(c, auth.PermCashManage))
	assert.True(t, HasAnyPermission(c, auth.PermCashManage, auth.PermCashRead))
}
