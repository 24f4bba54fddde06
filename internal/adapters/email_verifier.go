package adapters

import (
	"context"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/verification"
)

// EmailVerifierAdapter adapts the verification service for the leads pipeline.
type EmailVerifierAdapter struct {
	svc *verification.Service
}

func NewEmailVerifierAdapter(svc *verification.Service) *EmailVerifierAdapter {
	return &EmailVerifierAdapter{svc: svc}
}

func (a *EmailVerifierAdapter) VerifyEmail(ctx context.Context, email string) ports.EmailVerification {
	out := a.svc.Verify(ctx, email)

	outcome := domain.OutcomeFailed
	switch out.Status {
	case verification.StatusVerified:
		outcome = domain.OutcomeVerified
	case verification.StatusInvalid:
		outcome = domain.OutcomeInvalid
	}

	return ports.EmailVerification{
		Outcome: outcome,
		Info: domain.VerifyEmailInfo{
			Outcome:   outcome,
			Email:     out.Email,
			Verdicts:  out.Verdicts,
			Error:     out.Error,
			CheckedAt: out.CheckedAt,
		},
	}
}

// Compile-time check.
var _ ports.EmailVerifier = (*EmailVerifierAdapter)(nil)
