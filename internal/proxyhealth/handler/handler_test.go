package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadflow_backend/internal/proxyhealth/domain"
	"leadflow_backend/internal/proxyhealth/service"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHealth struct {
	err        error
	lastWindow time.Duration
	lastKey    domain.ProxyKey
}

func (f *fakeHealth) PoolHealth(_ context.Context, window time.Duration) (service.PoolReport, error) {
	f.lastWindow = window
	if f.err != nil {
		return service.PoolReport{}, f.err
	}
	return service.PoolReport{Window: window.String(), ProxyCount: 1, HealthPercentage: 50}, nil
}

func (f *fakeHealth) ProxyHealth(_ context.Context, key domain.ProxyKey, window time.Duration) (service.ProxyReport, error) {
	f.lastKey = key
	f.lastWindow = window
	if f.err != nil {
		return service.ProxyReport{}, f.err
	}
	return service.ProxyReport{Host: key.Host, Port: key.Port, Class: service.ClassHealthy}, nil
}

type fakeRecorder struct {
	signals []domain.SignalEntry
	heals   []domain.HealCheckEntry
	err     error
}

func (f *fakeRecorder) RecordSignal(_ context.Context, e domain.SignalEntry) (domain.SignalEntry, error) {
	if f.err != nil {
		return domain.SignalEntry{}, f.err
	}
	e.ID = uuid.New()
	f.signals = append(f.signals, e)
	return e, nil
}

func (f *fakeRecorder) RecordHealCheck(_ context.Context, e domain.HealCheckEntry) (domain.HealCheckEntry, error) {
	if f.err != nil {
		return domain.HealCheckEntry{}, f.err
	}
	e.ID = uuid.New()
	f.heals = append(f.heals, e)
	return e, nil
}

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	h.RegisterRoutes(r.Group("/proxies"))
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPoolHealthDefaultsTo24Hours(t *testing.T) {
	health := &fakeHealth{}
	r := newRouter(New(health, &fakeRecorder{}, validator.New()))

	w := do(r, http.MethodGet, "/proxies/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 24*time.Hour, health.lastWindow)

	var report service.PoolReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.ProxyCount)
}

func TestPoolHealthWindowParsing(t *testing.T) {
	health := &fakeHealth{}
	r := newRouter(New(health, &fakeRecorder{}, validator.New()))

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/proxies/health?window=all", nil).Code)
	assert.Equal(t, time.Duration(0), health.lastWindow)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/proxies/health?window=7d", nil).Code)
	assert.Equal(t, 7*24*time.Hour, health.lastWindow)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/proxies/health?window=90m", nil).Code)
	assert.Equal(t, 90*time.Minute, health.lastWindow)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/proxies/health?window=soon", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/proxies/health?window=-1h", nil).Code)
}

func TestPoolHealthUnavailableIs503(t *testing.T) {
	health := &fakeHealth{err: apperr.Unavailable("proxy signal log unavailable", errors.New("conn refused"))}
	r := newRouter(New(health, &fakeRecorder{}, validator.New()))

	w := do(r, http.MethodGet, "/proxies/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "conn refused")
}

func TestProxyHealthNormalizesHost(t *testing.T) {
	health := &fakeHealth{}
	r := newRouter(New(health, &fakeRecorder{}, validator.New()))

	w := do(r, http.MethodGet, "/proxies/health/Proxy-1.Example/8080", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ProxyKey{Host: "proxy-1.example", Port: 8080}, health.lastKey)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/proxies/health/h/0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/proxies/health/h/http", nil).Code)
}

func TestRecordSignal(t *testing.T) {
	rec := &fakeRecorder{}
	r := newRouter(New(&fakeHealth{}, rec, validator.New()))

	w := do(r, http.MethodPost, "/proxies/signals", map[string]any{
		"source": "maps-scraper", "host": "10.0.0.1", "port": 8080, "ip": "203.0.113.7", "outcome": "banned",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, rec.signals, 1)
	assert.Equal(t, domain.SignalBanned, rec.signals[0].Outcome)
	assert.Equal(t, "maps-scraper", rec.signals[0].Source)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])
}

func TestRecordSignalRejectsBadInput(t *testing.T) {
	rec := &fakeRecorder{}
	r := newRouter(New(&fakeHealth{}, rec, validator.New()))

	cases := map[string]map[string]any{
		"unknown outcome": {"host": "h", "port": 80, "outcome": "exploded"},
		"missing host":    {"port": 80, "outcome": "success"},
		"bad port":        {"host": "h", "port": 70000, "outcome": "success"},
		"bad ip":          {"host": "h", "port": 80, "ip": "nope", "outcome": "success"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/proxies/signals", body).Code)
		})
	}
	assert.Empty(t, rec.signals)
}

func TestRecordHealCheck(t *testing.T) {
	rec := &fakeRecorder{}
	r := newRouter(New(&fakeHealth{}, rec, validator.New()))

	w := do(r, http.MethodPost, "/proxies/heal-checks", map[string]any{
		"host": "10.0.0.1", "port": 8080, "outcome": "success", "durationMs": 140,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, rec.heals, 1)
	assert.Equal(t, 140, rec.heals[0].DurationMs)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/proxies/heal-checks", map[string]any{
		"host": "10.0.0.1", "port": 8080, "outcome": "banned",
	}).Code)
}
