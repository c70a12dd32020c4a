package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type fakeDashboardSrv struct {
	overview    *dto.InstitutionDashboard
	overviewHit bool
	class       *dto.ClassDashboard
	classHit    bool
	err         error
	lastClass   string
}

func (f *fakeDashboardSrv) Overview(context.Context) (*dto.InstitutionDashboard, bool, error) {
	return f.overview, f.overviewHit, f.err
}

func (f *fakeDashboardSrv) Class(_ context.Context, classID string) (*dto.ClassDashboard, bool, error) {
	f.lastClass = classID
	return f.class, f.classHit, f.err
}

func TestDashboardHandlerOverviewCached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		overview:    &dto.InstitutionDashboard{AveragePercentage: 67.3, PassRate: 67},
		overviewHit: true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	middleware.WithResponseMeta()(c)

	handler.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cacheHit"])
	assert.Contains(t, envelope.Meta, "processingTimeMs")
	assert.Equal(t, 67.3, envelope.Data["averagePercentage"])
}

func TestDashboardHandlerOverviewError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.Internal(assert.AnError, "failed to list classes")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardHandlerClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{class: &dto.ClassDashboard{ClassID: "class-1", Students: 3}}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/classes/class-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.Class(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "class-1", service.lastClass)
	assert.Equal(t, "MISS", rec.Header().Get(middleware.CacheHeader))
}

func TestDashboardHandlerNilService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
