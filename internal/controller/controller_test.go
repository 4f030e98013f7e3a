package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"breeze-gateway/internal/breeze"
	"breeze-gateway/internal/catalog"
	"breeze-gateway/internal/middleware"
	"breeze-gateway/internal/model"
	"breeze-gateway/internal/repository"
	"breeze-gateway/internal/service"
	"breeze-gateway/internal/utils"
	"breeze-gateway/pkg/response"
)

type fakeMetadataService struct {
	doc         *service.Document
	metadataErr error
	publishErr  error
	invalidated []string
	snapshots   *service.ListSnapshotsResponse
	snapshot    *model.MetadataSnapshot
	snapshotErr error
	lastListReq *service.ListSnapshotsRequest
}

func (f *fakeMetadataService) Metadata(ctx context.Context, name string) (*service.Document, error) {
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	return f.doc, nil
}

func (f *fakeMetadataService) Publish(ctx context.Context, name string) error {
	return f.publishErr
}

func (f *fakeMetadataService) Invalidate(name string) error {
	if f.metadataErr != nil {
		return f.metadataErr
	}
	f.invalidated = append(f.invalidated, name)
	return nil
}

func (f *fakeMetadataService) Services() []service.ServiceInfo {
	return []service.ServiceInfo{{Name: "NorthBreeze", ModelCount: 14}}
}

func (f *fakeMetadataService) ListSnapshots(ctx context.Context, req *service.ListSnapshotsRequest) (*service.ListSnapshotsResponse, error) {
	f.lastListReq = req
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshots, nil
}

func (f *fakeMetadataService) GetSnapshot(ctx context.Context, id string) (*model.MetadataSnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeMetadataService) Stats() *service.StatsResponse {
	return &service.StatsResponse{Builds: map[string]interface{}{"summary": map[string]interface{}{}}}
}

func newRouter(svc service.MetadataService) *gin.Engine {
	return newRouterWithLimiter(svc, nil)
}

func newRouterWithLimiter(svc service.MetadataService, limiter RateLimitStatsProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())

	bc := NewBreezeController(svc)
	mc := NewMetadataController(svc, limiter)
	r.GET("/breeze/:service/Metadata", bc.GetMetadata)
	api := r.Group("/api/v1")
	api.GET("/services", mc.ListServices)
	api.GET("/metadata/stats", mc.Stats)
	api.POST("/metadata/:service/invalidate", mc.Invalidate)
	api.POST("/metadata/:service/publish", mc.Publish)
	api.GET("/snapshots", mc.ListSnapshots)
	api.GET("/snapshots/:id", mc.GetSnapshot)
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.StandardResponse {
	t.Helper()
	var body response.StandardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, w.Header().Get(middleware.CorrelationIDHeader), body.CorrelationID)
	return body
}

func testDocument() *service.Document {
	return &service.Document{
		Service: "NorthBreeze",
		Version: "0123456789abcdef",
		Body:    []byte(`{"localQueryComparisonOptions":"caseInsensitiveSQL","structuralTypes":[]}`),
	}
}

func TestGetMetadata(t *testing.T) {
	r := newRouter(&fakeMetadataService{doc: testDocument()})

	w := do(r, http.MethodGet, "/breeze/NorthBreeze/Metadata", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"0123456789abcdef"`, w.Header().Get("ETag"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, string(testDocument().Body), w.Body.String())
}

func TestGetMetadataNotModified(t *testing.T) {
	r := newRouter(&fakeMetadataService{doc: testDocument()})

	w := do(r, http.MethodGet, "/breeze/NorthBreeze/Metadata", map[string]string{"If-None-Match": `W/"0123456789abcdef"`})
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, http.MethodGet, "/breeze/NorthBreeze/Metadata", map[string]string{"If-None-Match": `"other"`})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetMetadataUnknownService(t *testing.T) {
	err := fmt.Errorf("%w: Nope", catalog.ErrServiceNotFound)
	r := newRouter(&fakeMetadataService{metadataErr: err})

	w := do(r, http.MethodGet, "/breeze/Nope/Metadata", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, utils.ErrCodeServiceNotFound, body.Error.Code)
}

func TestGetMetadataBuildFailure(t *testing.T) {
	err := fmt.Errorf("%w for NorthBreeze: %w", service.ErrBuildFailed, breeze.ErrUnmatchedForeignKey)
	r := newRouter(&fakeMetadataService{metadataErr: err})

	w := do(r, http.MethodGet, "/breeze/NorthBreeze/Metadata", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, utils.ErrCodeMetadataBuildFailed, body.Error.Code)
	assert.Contains(t, body.Error.Details, breeze.ErrUnmatchedForeignKey.Error())
}

func TestEtagMatches(t *testing.T) {
	assert.False(t, etagMatches("", `"a"`))
	assert.True(t, etagMatches(`"a"`, `"a"`))
	assert.True(t, etagMatches(`"b", W/"a"`, `"a"`))
	assert.True(t, etagMatches("*", `"a"`))
	assert.False(t, etagMatches(`"b"`, `"a"`))
}

func TestListServicesAndStats(t *testing.T) {
	r := newRouter(&fakeMetadataService{})

	w := do(r, http.MethodGet, "/api/v1/services", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.True(t, body.Success)
	services := body.Data.([]interface{})
	require.Len(t, services, 1)
	assert.Equal(t, "NorthBreeze", services[0].(map[string]interface{})["name"])

	w = do(r, http.MethodGet, "/api/v1/metadata/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Contains(t, data, "cache")
	assert.Contains(t, data, "builds")
	assert.NotContains(t, data, "rateLimit")
}

func TestStatsIncludeRateLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{RPM: 30, Burst: 5})
	limited := gin.New()
	limited.Use(limiter.RateLimit())
	limited.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusOK, do(limited, http.MethodGet, "/ping", nil).Code)

	r := newRouterWithLimiter(&fakeMetadataService{}, limiter)
	w := do(r, http.MethodGet, "/api/v1/metadata/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Contains(t, data, "cache")
	limits := data["rateLimit"].(map[string]interface{})
	assert.Equal(t, float64(1), limits["activeClients"])
	assert.Equal(t, float64(30), limits["config"].(map[string]interface{})["rpm"])
}

func TestInvalidate(t *testing.T) {
	fake := &fakeMetadataService{}
	r := newRouter(fake)

	w := do(r, http.MethodPost, "/api/v1/metadata/NorthBreeze/invalidate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"NorthBreeze"}, fake.invalidated)

	fake.metadataErr = catalog.ErrServiceNotFound
	w = do(r, http.MethodPost, "/api/v1/metadata/Nope/invalidate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublish(t *testing.T) {
	fake := &fakeMetadataService{}
	r := newRouter(fake)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/metadata/NorthBreeze/publish", nil).Code)

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrPublishingDisabled, http.StatusConflict, utils.ErrCodePublishingDisabled},
		{fmt.Errorf("%w for NorthBreeze: %w", service.ErrPublishFailed, errors.New("s3 down")), http.StatusBadGateway, utils.ErrCodePublishFailed},
		{catalog.ErrServiceNotFound, http.StatusNotFound, utils.ErrCodeServiceNotFound},
		{service.ErrBuildFailed, http.StatusInternalServerError, utils.ErrCodeMetadataBuildFailed},
	}
	for _, tt := range tests {
		fake.publishErr = tt.err
		w := do(r, http.MethodPost, "/api/v1/metadata/NorthBreeze/publish", nil)
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
		assert.Equal(t, tt.code, decode(t, w).Error.Code)
	}
}

func TestListSnapshots(t *testing.T) {
	fake := &fakeMetadataService{snapshots: &service.ListSnapshotsResponse{
		Snapshots: []*model.MetadataSnapshot{{ID: uuid.New().String(), Service: "NorthBreeze", Version: "v1", CreatedAt: time.Now()}},
		Total:     1,
		Limit:     5,
	}}
	r := newRouter(fake)

	w := do(r, http.MethodGet, "/api/v1/snapshots?service=NorthBreeze&limit=5&offset=0", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NorthBreeze", fake.lastListReq.Service)
	assert.Equal(t, 5, fake.lastListReq.Limit)

	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, 1.0, data["total"])

	w = do(r, http.MethodGet, "/api/v1/snapshots?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.ErrCodeInvalidParameters, decode(t, w).Error.Code)

	w = do(r, http.MethodGet, "/api/v1/snapshots?limit=1000", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	fake.snapshotErr = service.ErrSnapshotsDisabled
	w = do(r, http.MethodGet, "/api/v1/snapshots", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetSnapshot(t *testing.T) {
	id := uuid.New().String()
	fake := &fakeMetadataService{snapshot: &model.MetadataSnapshot{
		ID:       id,
		Service:  "NorthBreeze",
		Document: model.Document(`{"fkMap":{}}`),
	}}
	r := newRouter(fake)

	w := do(r, http.MethodGet, "/api/v1/snapshots/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, id, data["id"])
	assert.Equal(t, map[string]interface{}{"fkMap": map[string]interface{}{}}, data["document"])

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{repository.ErrInvalidUUID, http.StatusBadRequest, utils.ErrCodeInvalidUUID},
		{fmt.Errorf("failed to get snapshot: %w", repository.ErrSnapshotNotFound), http.StatusNotFound, utils.ErrCodeSnapshotNotFound},
		{errors.New("connection refused"), http.StatusInternalServerError, utils.ErrCodeDatabaseError},
	}
	for _, tt := range tests {
		fake.snapshotErr = tt.err
		w := do(r, http.MethodGet, "/api/v1/snapshots/"+id, nil)
		assert.Equal(t, tt.status, w.Code)
		assert.Equal(t, tt.code, decode(t, w).Error.Code)
	}
}

func TestHealthWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", NewHealthController(nil, "test").HealthCheck)

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "disabled", body.Database.Status)
	assert.Equal(t, "test", body.Version)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestHealthWithDatabase(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("gone away"))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", NewHealthController(db, "test").HealthCheck)

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connected", body.Database.Status)
	assert.Contains(t, body.Connections, "database_open_connections")

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Database.Message, "gone away")

	assert.NoError(t, mock.ExpectationsWereMet())
}
