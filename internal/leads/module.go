// Package leads provides the lead pipeline bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leadflow_backend/internal/adapters"
	"leadflow_backend/internal/enrichment"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/verification"
	"leadflow_backend/platform/ai/moonshot"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the leads module reads.
type ModuleConfig interface {
	config.DispatcherConfig
	config.EnrichmentConfig
	config.VerificationConfig
}

// Dependencies that live outside the module. TickLog and Enqueuer need Redis
// and may be nil.
type Dependencies struct {
	Pool      *pgxpool.Pool
	EventBus  events.Bus
	Validator *validator.Validator
	TickLog   handler.TickLog
	Enqueuer  handler.TickEnqueuer
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	dispatcher *pipeline.Dispatcher
	sweeper    *pipeline.StaleClaimSweeper
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(deps Dependencies, cfg ModuleConfig, log *logger.Logger) *Module {
	repo := repository.New(deps.Pool)

	dispatcher := pipeline.NewDispatcher(
		repo,
		newEnricher(cfg, deps.Validator, log),
		newVerifier(cfg, log),
		deps.EventBus,
		pipeline.Config{
			Workers:     cfg.GetDispatchWorkers(),
			PhoneRegion: cfg.GetPhoneDefaultRegion(),
		},
		log,
	)
	sweeper := pipeline.NewStaleClaimSweeper(repo, deps.EventBus, log, cfg.GetStaleSweepInterval(), cfg.GetLeadClaimLease())

	return &Module{
		handler:    handler.New(repo, dispatcher, deps.TickLog, deps.Enqueuer, deps.Validator, log),
		repo:       repo,
		dispatcher: dispatcher,
		sweeper:    sweeper,
	}
}

// newEnricher returns nil when no model key is configured; the dispatcher
// then releases every claimed lead for retry.
func newEnricher(cfg config.EnrichmentConfig, val *validator.Validator, log *logger.Logger) ports.LeadEnricher {
	if !cfg.IsEnrichmentEnabled() {
		log.Warn("enrichment disabled: MOONSHOT_API_KEY not set")
		return nil
	}
	llm := moonshot.NewModel(moonshot.Config{
		APIKey:  cfg.GetMoonshotAPIKey(),
		BaseURL: cfg.GetMoonshotBaseURL(),
		Model:   cfg.GetEnrichmentModel(),
	})
	svc := enrichment.New(llm, val, cfg.GetEnrichmentTimeout(), log)
	return adapters.NewLeadEnricherAdapter(svc)
}

// newVerifier returns nil when no endpoint is configured; verification is then skipped.
func newVerifier(cfg config.VerificationConfig, log *logger.Logger) ports.EmailVerifier {
	if !cfg.IsEmailVerifyEnabled() {
		log.Warn("email verification disabled: EMAIL_VERIFY_API_URL not set")
		return nil
	}
	client := verification.NewClient(cfg.GetEmailVerifyAPIURL(), cfg.GetEmailVerifyAPIKey(), cfg.GetEmailVerifyTimeout())
	return adapters.NewEmailVerifierAdapter(verification.New(client, log))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Dispatcher returns the tick dispatcher for the scheduler worker.
func (m *Module) Dispatcher() *pipeline.Dispatcher {
	return m.dispatcher
}

// Sweeper returns the stale claim sweeper.
func (m *Module) Sweeper() *pipeline.StaleClaimSweeper {
	return m.sweeper
}

// Repository returns the lead repository for external use.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads and job trigger routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))

	var guard []gin.HandlerFunc
	if ctx.TriggerRateLimiter != nil {
		guard = append(guard, ctx.TriggerRateLimiter.RateLimit())
	}
	m.handler.RegisterJobRoutes(ctx.V1.Group("/jobs"), guard...)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
