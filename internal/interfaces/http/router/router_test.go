package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/dto"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type registrarFunc func(rg *gin.RouterGroup)

func (f registrarFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

func pingRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func serve(engine http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))
	r.Register(registrarFunc(pingRoutes)).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/ping", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/ping", nil).Code)
}

func TestRouterSetup_RootRoutesMountedTwice(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).RegisterRoot(registrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	})).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/health", nil).Code)
}

func TestRouterSetup_APIMiddlewareSkipsRootRoutes(t *testing.T) {
	engine := gin.New()
	NewRouter(engine, WithAPIMiddleware(middleware.Actor(middleware.DefaultActorConfig()))).
		RegisterRoot(registrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		})).
		Register(registrarFunc(pingRoutes)).
		Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(engine, http.MethodGet, "/api/v1/ping", nil).Code)

	header := http.Header{}
	header.Set(middleware.OrganizationHeader, "0b7e2b0e-5d3c-4f7a-9a51-7d1f0e6c2a11")
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/ping", header).Code)
}

func TestRouterSetup_NoRoute(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	NewRouter(engine).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/unknown", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRouteNotFound, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestNewEngine(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	engine, err := NewEngine(EngineConfig{
		MaxBodySize: 16,
		Tracing:     middleware.TracingConfig{Enabled: false},
		Meter:       provider.Meter("test"),
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	engine.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(engine, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64)))
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Equal(t, http.StatusInternalServerError, serve(engine, http.MethodGet, "/panic", nil).Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	assert.Contains(t, names, "recon_http_requests_total")
}

func TestNewEngine_BadTrustedProxy(t *testing.T) {
	_, err := NewEngine(EngineConfig{TrustedProxies: []string{"not-an-ip"}, Logger: zap.NewNop()})
	assert.Error(t, err)
}
