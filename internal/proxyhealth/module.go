// Package proxyhealth provides the proxy pool health bounded context module.
package proxyhealth

import (
	"fmt"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/proxyhealth/handler"
	"leadflow_backend/internal/proxyhealth/prober"
	"leadflow_backend/internal/proxyhealth/repository"
	"leadflow_backend/internal/proxyhealth/service"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the proxy health bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	aggregator *service.Aggregator
	prober     *prober.Prober
}

// NewModule wires the log repository, aggregator, recorder and prober.
// The prober reads its pool from the configured YAML file, falling back to
// proxies already seen in the signal log.
func NewModule(pool *pgxpool.Pool, cfg config.ProxyHealthConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	policy := service.Policy{
		HealthyThreshold:  cfg.GetProxyHealthyThreshold(),
		DegradedThreshold: cfg.GetProxyDegradedThreshold(),
		TopPerformers:     cfg.GetProxyTopPerformers(),
	}
	aggregator := service.NewAggregator(repo, policy, log)
	recorder := service.NewRecorder(repo)

	var targets []prober.Target
	if path := cfg.GetProxyPoolFile(); path != "" {
		loaded, err := prober.LoadPool(path)
		if err != nil {
			return nil, fmt.Errorf("proxy pool: %w", err)
		}
		targets = loaded
	}
	p := prober.New(repo, repo, targets, prober.Config{
		URL:     cfg.GetProxyHealCheckURL(),
		Timeout: cfg.GetProxyHealCheckTimeout(),
		Workers: cfg.GetProxyHealCheckWorkers(),
	}, log)

	return &Module{
		handler:    handler.New(aggregator, recorder, val),
		aggregator: aggregator,
		prober:     p,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "proxyhealth"
}

// Aggregator returns the health aggregator for external use.
func (m *Module) Aggregator() *service.Aggregator {
	return m.aggregator
}

// Prober returns the heal-check prober for the scheduler.
func (m *Module) Prober() *prober.Prober {
	return m.prober
}

// RegisterRoutes mounts proxy health routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/proxies"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
