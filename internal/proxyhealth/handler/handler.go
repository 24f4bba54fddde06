package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"leadflow_backend/internal/proxyhealth/domain"
	"leadflow_backend/internal/proxyhealth/service"
	"leadflow_backend/internal/proxyhealth/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	// DefaultWindow applies when the window query parameter is omitted.
	DefaultWindow = 24 * time.Hour
)

// HealthReader answers pool and per-proxy health queries.
type HealthReader interface {
	PoolHealth(ctx context.Context, window time.Duration) (service.PoolReport, error)
	ProxyHealth(ctx context.Context, key domain.ProxyKey, window time.Duration) (service.ProxyReport, error)
}

// LogRecorder appends to the proxy logs.
type LogRecorder interface {
	RecordSignal(ctx context.Context, e domain.SignalEntry) (domain.SignalEntry, error)
	RecordHealCheck(ctx context.Context, e domain.HealCheckEntry) (domain.HealCheckEntry, error)
}

type Handler struct {
	health   HealthReader
	recorder LogRecorder
	val      *validator.Validator
}

func New(health HealthReader, recorder LogRecorder, val *validator.Validator) *Handler {
	return &Handler{health: health, recorder: recorder, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signals", h.RecordSignal)
	rg.POST("/heal-checks", h.RecordHealCheck)
	rg.GET("/health", h.PoolHealth)
	rg.GET("/health/:host/:port", h.ProxyHealth)
}

func (h *Handler) RecordSignal(c *gin.Context) {
	var req transport.RecordSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	entry, err := h.recorder.RecordSignal(c.Request.Context(), req.Entry())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.RecordedResponse{ID: entry.ID.String(), OccurredAt: entry.OccurredAt})
}

func (h *Handler) RecordHealCheck(c *gin.Context) {
	var req transport.RecordHealCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	entry, err := h.recorder.RecordHealCheck(c.Request.Context(), req.Entry())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.RecordedResponse{ID: entry.ID.String(), OccurredAt: entry.OccurredAt})
}

func (h *Handler) PoolHealth(c *gin.Context) {
	window, err := ParseWindow(c.Query("window"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(err.Error()))
		return
	}

	report, err := h.health.PoolHealth(c.Request.Context(), window)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) ProxyHealth(c *gin.Context) {
	window, err := ParseWindow(c.Query("window"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(err.Error()))
		return
	}
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil || port < 1 || port > 65535 {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	key := domain.ProxyKey{Host: strings.ToLower(strings.TrimSpace(c.Param("host"))), Port: port}

	report, err := h.health.ProxyHealth(c.Request.Context(), key, window)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

// ParseWindow reads the window query value. Empty means DefaultWindow, "all"
// means no lower bound (zero). Go durations and whole days ("7d") are accepted.
func ParseWindow(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch raw {
	case "":
		return DefaultWindow, nil
	case "all":
		return 0, nil
	}

	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid window %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid window %q", raw)
	}
	return d, nil
}
