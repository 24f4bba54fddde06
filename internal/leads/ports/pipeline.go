// Package ports defines the interfaces the leads pipeline depends on.
// Implementations live in internal/adapters and internal/leads/repository.
package ports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ErrClaimLost means the lead was no longer in enriching when a terminal
// write ran, typically because the stale-claim sweep released it.
var ErrClaimLost = errors.New("lead claim no longer held")

// LeadStore is the slice of the lead repository the dispatcher uses.
type LeadStore interface {
	ListUsersWithScrapedLeads(ctx context.Context) ([]uuid.UUID, error)
	// ClaimNextScraped moves the user's oldest scraped lead to enriching.
	// ok is false when there was nothing left to claim.
	ClaimNextScraped(ctx context.Context, userID uuid.UUID) (lead domain.Lead, ok bool, err error)
	MarkEnriched(ctx context.Context, leadID uuid.UUID, info domain.EnrichInfo) error
	ReleaseForRetry(ctx context.Context, leadID uuid.UUID) error
	SaveVerification(ctx context.Context, leadID uuid.UUID, status domain.VerifyEmailStatus, info json.RawMessage) error
}

// StaleClaimStore releases claims whose lease has expired.
type StaleClaimStore interface {
	RequeueStale(ctx context.Context, claimedBefore time.Time) (int64, error)
}

// EnrichmentRequest is what the enricher sees of a lead.
type EnrichmentRequest struct {
	LeadID    uuid.UUID
	SourceURL string
	ScrapInfo domain.ScrapInfo
	Phone     string
}

// LeadEnricher turns a raw scrap payload into a summary and title guess.
type LeadEnricher interface {
	EnrichLead(ctx context.Context, req EnrichmentRequest) (domain.EnrichInfo, error)
}

// EmailVerification is a verifier result ready to be persisted.
type EmailVerification struct {
	Outcome domain.VerificationOutcome
	Info    domain.VerifyEmailInfo
}

// EmailVerifier checks deliverability of a single address. It never returns
// an error; call failures come back as OutcomeFailed with Info.Error set.
type EmailVerifier interface {
	VerifyEmail(ctx context.Context, email string) EmailVerification
}
