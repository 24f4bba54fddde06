package transport

import (
	"time"

	"leadflow_backend/internal/proxyhealth/domain"
)

// RecordSignalRequest is one live-traffic observation reported by a scraper.
type RecordSignalRequest struct {
	Source     string     `json:"source" validate:"max=100"`
	Host       string     `json:"host" validate:"required,max=255"`
	Port       int        `json:"port" validate:"required,min=1,max=65535"`
	IP         string     `json:"ip" validate:"omitempty,ip"`
	Outcome    string     `json:"outcome" validate:"required,oneof=success failed banned timeout pending"`
	Error      string     `json:"error" validate:"max=2000"`
	OccurredAt *time.Time `json:"occurredAt"`
}

func (r RecordSignalRequest) Entry() domain.SignalEntry {
	e := domain.SignalEntry{
		Source:  r.Source,
		Proxy:   domain.ProxyKey{Host: r.Host, Port: r.Port},
		IP:      r.IP,
		Outcome: domain.SignalOutcome(r.Outcome),
		Error:   r.Error,
	}
	if r.OccurredAt != nil {
		e.OccurredAt = *r.OccurredAt
	}
	return e
}

// RecordHealCheckRequest is the result of one externally run probe.
type RecordHealCheckRequest struct {
	Host       string     `json:"host" validate:"required,max=255"`
	Port       int        `json:"port" validate:"required,min=1,max=65535"`
	IP         string     `json:"ip" validate:"omitempty,ip"`
	Outcome    string     `json:"outcome" validate:"required,oneof=success failed"`
	DurationMs int        `json:"durationMs" validate:"min=0"`
	Error      string     `json:"error" validate:"max=2000"`
	OccurredAt *time.Time `json:"occurredAt"`
}

func (r RecordHealCheckRequest) Entry() domain.HealCheckEntry {
	e := domain.HealCheckEntry{
		Proxy:      domain.ProxyKey{Host: r.Host, Port: r.Port},
		IP:         r.IP,
		Outcome:    domain.HealCheckOutcome(r.Outcome),
		DurationMs: r.DurationMs,
		Error:      r.Error,
	}
	if r.OccurredAt != nil {
		e.OccurredAt = *r.OccurredAt
	}
	return e
}

// RecordedResponse acknowledges an appended log entry.
type RecordedResponse struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
}
