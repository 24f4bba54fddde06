package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testConfig struct{}

func (testConfig) GetHTTPAddr() string           { return ":0" }
func (testConfig) GetCORSAllowAll() bool         { return true }
func (testConfig) GetCORSOrigins() []string      { return nil }
func (testConfig) GetTriggerRatePerMinute() int { return 0 }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "echo") })
}

func serve(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthReflectsDatabasePing(t *testing.T) {
	healthy := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Health: pinger{}})
	if w := serve(healthy, "/api/health"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	down := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Health: pinger{err: errors.New("db down")}})
	if w := serve(down, "/api/health"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestModulesAndMetricsAreMounted(t *testing.T) {
	engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Modules: []apphttp.Module{echoModule{}}})

	w := serve(engine, "/api/v1/echo")
	if w.Code != http.StatusOK || w.Body.String() != "echo" {
		t.Fatalf("module route not mounted: %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
	if w := serve(engine, "/metrics"); w.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", w.Code)
	}
}
