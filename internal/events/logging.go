package events

import (
	"context"

	"leadflow_backend/platform/logger"
)

// SubscribePipelineLogging logs every lead pipeline event published on bus.
func SubscribePipelineLogging(bus Bus, log *logger.Logger) {
	bus.Subscribe(LeadEnriched{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(LeadEnriched); ok {
			log.Info("lead enriched", "leadId", e.LeadID, "userId", e.UserID, "titleGuess", e.TitleGuess)
		}
		return nil
	}))
	bus.Subscribe(LeadEnrichmentFailed{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(LeadEnrichmentFailed); ok {
			log.Info("lead released for retry", "leadId", e.LeadID, "userId", e.UserID, "reason", e.Reason)
		}
		return nil
	}))
	bus.Subscribe(LeadEmailVerified{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(LeadEmailVerified); ok {
			log.Info("lead email verified", "leadId", e.LeadID, "userId", e.UserID, "outcome", e.Outcome, "status", e.Status)
		}
		return nil
	}))
	bus.Subscribe(StaleClaimsRequeued{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(StaleClaimsRequeued); ok {
			log.Info("stale lead claims requeued", "count", e.Count)
		}
		return nil
	}))
}
