// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Pipeline Events
// =============================================================================

// LeadEnriched is published after a lead moved from enriching to enriched.
type LeadEnriched struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	UserID     uuid.UUID `json:"userId"`
	TitleGuess string    `json:"titleGuess"`
}

func (e LeadEnriched) EventName() string { return "leads.lead.enriched" }

// LeadEnrichmentFailed is published when a claimed lead was released back to scraped.
type LeadEnrichmentFailed struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	UserID uuid.UUID `json:"userId"`
	Reason string    `json:"reason"`
}

func (e LeadEnrichmentFailed) EventName() string { return "leads.lead.enrichment_failed" }

// LeadEmailVerified is published once a verification outcome has been persisted.
type LeadEmailVerified struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	UserID  uuid.UUID `json:"userId"`
	Email   string    `json:"email"`
	Outcome string    `json:"outcome"`
	Status  string    `json:"status"`
}

func (e LeadEmailVerified) EventName() string { return "leads.lead.email_verified" }

// StaleClaimsRequeued is published when the sweeper released leads whose claim lease expired.
type StaleClaimsRequeued struct {
	BaseEvent
	Count int64 `json:"count"`
}

func (e StaleClaimsRequeued) EventName() string { return "leads.claims.requeued" }
