package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the pipeline lifecycle state of a lead.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScraped   Status = "scraped"
	StatusEnriching Status = "enriching"
	StatusEnriched  Status = "enriched"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScraped, StatusEnriching, StatusEnriched, StatusFailed:
		return true
	default:
		return false
	}
}

// IsEligible reports whether a lead in this state may be claimed by the dispatcher.
func (s Status) IsEligible() bool {
	return s == StatusScraped
}

// VerifyEmailStatus is the persisted email verification state.
type VerifyEmailStatus string

const (
	VerifyEmailPending  VerifyEmailStatus = "pending"
	VerifyEmailVerified VerifyEmailStatus = "verified"
	VerifyEmailFailed   VerifyEmailStatus = "failed"
)

// VerificationOutcome is the verifier result before it is persisted.
// OutcomeInvalid is kept apart from OutcomeFailed in verify_email_info
// but shares the failed status column value.
type VerificationOutcome string

const (
	OutcomeVerified VerificationOutcome = "verified"
	OutcomeInvalid  VerificationOutcome = "invalid"
	OutcomeFailed   VerificationOutcome = "failed"
)

// Persisted maps an outcome to the stored verify_email_status value.
func (o VerificationOutcome) Persisted() VerifyEmailStatus {
	if o == OutcomeVerified {
		return VerifyEmailVerified
	}
	return VerifyEmailFailed
}

// pipelineTransitions lists the edges the pipeline itself may take.
// pending -> scraped belongs to the scraper.
var pipelineTransitions = map[Status][]Status{
	StatusScraped:   {StatusEnriching},
	StatusEnriching: {StatusEnriched, StatusScraped},
}

// CanTransition reports whether the pipeline may move a lead from one state to another.
func CanTransition(from, to Status) bool {
	for _, next := range pipelineTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EnrichInfo is the structured output of the enrichment step.
type EnrichInfo struct {
	Summary    string `json:"summary" validate:"required"`
	TitleGuess string `json:"title_guess" validate:"required"`
}

// VerifyEmailInfo is the audit payload stored next to verify_email_status.
// Exactly one of Verdicts or Error is set.
type VerifyEmailInfo struct {
	Outcome   VerificationOutcome `json:"outcome"`
	Email     string              `json:"email"`
	Verdicts  json.RawMessage     `json:"verdicts,omitempty"`
	Error     string              `json:"error,omitempty"`
	CheckedAt time.Time           `json:"checked_at"`
}

// Lead is a prospective contact moving through the pipeline.
type Lead struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"userId"`
	SourceURL         string            `json:"sourceUrl"`
	Status            Status            `json:"status"`
	VerifyEmailStatus VerifyEmailStatus `json:"verifyEmailStatus"`
	ScrapInfo         ScrapInfo         `json:"scrapInfo"`
	EnrichInfo        *EnrichInfo       `json:"enrichInfo"`
	VerifyEmailInfo   json.RawMessage   `json:"verifyEmailInfo,omitempty"`
	ClaimedAt         *time.Time        `json:"claimedAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}
