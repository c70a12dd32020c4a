package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/service"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type tokenStub struct {
	claims map[string]*models.JWTClaims
}

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newProtectedRouter(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := tokenStub{claims: map[string]*models.JWTClaims{
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		"teacher": {UserID: "teacher-1", Role: models.RoleTeacher},
		"student": {UserID: "stu-1", Role: models.RoleStudent},
	}}
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/students/:id/report-card", JWT(tokens), guard, ok)
	r.GET("/classes/:id/students/:studentId/final-grade", JWT(tokens), guard, ok)
	return r
}

func call(r http.Handler, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newProtectedRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, call(r, "/students/stu-1/report-card", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, "/students/stu-1/report-card", "forged"))

	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/report-card", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "invalid authorization header"))
}

func TestRBACRoles(t *testing.T) {
	r := newProtectedRouter(RequireRoles(models.RoleAdmin, models.RoleTeacher))
	assert.Equal(t, http.StatusOK, call(r, "/students/stu-1/report-card", "admin"))
	assert.Equal(t, http.StatusOK, call(r, "/students/stu-1/report-card", "teacher"))
	assert.Equal(t, http.StatusForbidden, call(r, "/students/stu-1/report-card", "student"))
}

func TestRBACSelf(t *testing.T) {
	r := newProtectedRouter(RBAC(string(models.RoleAdmin), string(models.RoleTeacher), Self))
	assert.Equal(t, http.StatusOK, call(r, "/students/stu-1/report-card", "student"))
	assert.Equal(t, http.StatusForbidden, call(r, "/students/stu-2/report-card", "student"))
	assert.Equal(t, http.StatusOK, call(r, "/classes/class-1/students/stu-1/final-grade", "student"))
	assert.Equal(t, http.StatusForbidden, call(r, "/classes/stu-1/students/stu-2/final-grade", "student"))
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/classes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	call(r, "/classes/abc", "")
	call(r, "/nowhere", "")
	require.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `path="/classes/:id"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, `path="/nowhere"`)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/x", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))
	assert.Equal(t, true, meta["cacheHit"])
	assert.Contains(t, meta, "processingTimeMs")
}
