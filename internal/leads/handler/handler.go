package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgLeadNotFound     = "lead not found"
	msgNoTick           = "no dispatch tick recorded"
)

// LeadStore is the slice of the repository the handler needs.
type LeadStore interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// Ticker runs one dispatcher tick.
type Ticker interface {
	Tick(ctx context.Context) pipeline.TickResult
}

// TickLog records and reads tick results.
type TickLog interface {
	Save(ctx context.Context, result pipeline.TickResult) error
	Last(ctx context.Context) (pipeline.TickResult, bool, error)
}

// TickEnqueuer hands a tick to the background worker.
type TickEnqueuer interface {
	EnqueueDispatchTick(ctx context.Context, trigger string) error
}

type Handler struct {
	store    LeadStore
	ticker   Ticker
	ticks    TickLog
	enqueuer TickEnqueuer
	val      *validator.Validator
	log      *logger.Logger
}

// New creates the handler. ticks and enqueuer may be nil when Redis is not configured.
func New(store LeadStore, ticker Ticker, ticks TickLog, enqueuer TickEnqueuer, val *validator.Validator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{store: store, ticker: ticker, ticks: ticks, enqueuer: enqueuer, val: val, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
}

// RegisterJobRoutes mounts the dispatcher trigger. guard runs before the trigger only.
func (h *Handler) RegisterJobRoutes(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	trigger := append(append([]gin.HandlerFunc{}, guard...), h.TriggerTick)
	rg.POST("/enrich-leads", trigger...)
	rg.GET("/enrich-leads/last", h.LastTick)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}
	if len(req.ScrapInfo) > 0 {
		if _, err := domain.ParseScrapInfo(req.ScrapInfo); err != nil {
			httpkit.HandleError(c, apperr.BadRequest("scrapInfo must be valid JSON"))
			return
		}
	}

	lead, err := h.store.Create(c.Request.Context(), repository.CreateLeadParams{
		UserID:    req.UserID,
		SourceURL: strings.TrimSpace(req.SourceURL),
		Status:    domain.Status(req.Status),
		ScrapInfo: req.ScrapInfo,
	})
	if err != nil {
		h.log.DatabaseError("create lead", err)
		httpkit.HandleError(c, apperr.Internal("could not store lead", err).WithOp("leads.Create"))
		return
	}

	httpkit.Created(c, transport.ToLeadResponse(lead))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}

	lead, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.HandleError(c, apperr.NotFound(msgLeadNotFound))
			return
		}
		h.log.DatabaseError("get lead", err)
		httpkit.HandleError(c, apperr.Internal("could not load lead", err).WithOp("leads.GetByID"))
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// TriggerTick runs one tick inline and answers with its result: 200 when the
// tick ran, 500 when it could not. With ?async=true the tick is queued instead.
func (h *Handler) TriggerTick(c *gin.Context) {
	if strings.EqualFold(c.Query("async"), "true") {
		h.enqueueTick(c)
		return
	}

	result := h.ticker.Tick(c.Request.Context())
	if h.ticks != nil {
		if err := h.ticks.Save(c.Request.Context(), result); err != nil {
			h.log.Warn("failed to record dispatch tick", "error", err, "tickId", result.TickID)
		}
	}

	if !result.OK {
		httpkit.JSON(c, http.StatusInternalServerError, result)
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) enqueueTick(c *gin.Context) {
	if h.enqueuer == nil {
		httpkit.HandleError(c, apperr.Unavailable("background dispatch not configured", nil))
		return
	}
	if err := h.enqueuer.EnqueueDispatchTick(c.Request.Context(), "api"); err != nil {
		h.log.Error("failed to enqueue dispatch tick", "error", err)
		httpkit.HandleError(c, apperr.Unavailable("could not enqueue dispatch tick", err))
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.EnqueuedResponse{Queued: true})
}

func (h *Handler) LastTick(c *gin.Context) {
	if h.ticks == nil {
		httpkit.HandleError(c, apperr.NotFound(msgNoTick))
		return
	}
	result, ok, err := h.ticks.Last(c.Request.Context())
	if err != nil {
		h.log.Error("failed to read dispatch tick", "error", err)
		httpkit.HandleError(c, apperr.Unavailable("tick log unavailable", err))
		return
	}
	if !ok {
		httpkit.HandleError(c, apperr.NotFound(msgNoTick))
		return
	}
	httpkit.OK(c, result)
}
