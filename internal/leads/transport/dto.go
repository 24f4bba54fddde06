package transport

import (
	"encoding/json"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// CreateLeadRequest is a scraper deposit.
type CreateLeadRequest struct {
	UserID    uuid.UUID       `json:"userId" validate:"required"`
	SourceURL string          `json:"sourceUrl" validate:"omitempty,url,max=2048"`
	Status    string          `json:"status" validate:"omitempty,oneof=pending scraped"`
	ScrapInfo json.RawMessage `json:"scrapInfo" validate:"-"`
}

type LeadResponse struct {
	ID                uuid.UUID          `json:"id"`
	UserID            uuid.UUID          `json:"userId"`
	SourceURL         string             `json:"sourceUrl,omitempty"`
	Status            string             `json:"status"`
	VerifyEmailStatus string             `json:"verifyEmailStatus"`
	ScrapInfo         domain.ScrapInfo   `json:"scrapInfo"`
	EnrichInfo        *domain.EnrichInfo `json:"enrichInfo"`
	VerifyEmailInfo   json.RawMessage    `json:"verifyEmailInfo"`
	ClaimedAt         *time.Time         `json:"claimedAt,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

func ToLeadResponse(l domain.Lead) LeadResponse {
	verify := l.VerifyEmailInfo
	if len(verify) == 0 {
		verify = json.RawMessage("null")
	}
	return LeadResponse{
		ID:                l.ID,
		UserID:            l.UserID,
		SourceURL:         l.SourceURL,
		Status:            string(l.Status),
		VerifyEmailStatus: string(l.VerifyEmailStatus),
		ScrapInfo:         l.ScrapInfo,
		EnrichInfo:        l.EnrichInfo,
		VerifyEmailInfo:   verify,
		ClaimedAt:         l.ClaimedAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

// EnqueuedResponse acknowledges a tick handed to the worker pool.
type EnqueuedResponse struct {
	Queued bool `json:"queued"`
}
