package verification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"leadflow_backend/platform/logger"
)

// Status is the local verification outcome. StatusInvalid means the service
// answered with a verdict other than "valid"; StatusFailed means the call
// itself did not succeed.
type Status string

const (
	StatusVerified Status = "verified"
	StatusInvalid  Status = "invalid"
	StatusFailed   Status = "failed"
)

const verdictValid = "valid"

// Checker is the transport used by Service.
type Checker interface {
	Check(ctx context.Context, emails []string) (Response, error)
}

// Outcome is the result of verifying one address, with either the raw
// verdicts or an error marker.
type Outcome struct {
	Status    Status
	Email     string
	Verdicts  json.RawMessage
	Error     string
	CheckedAt time.Time
}

type Service struct {
	checker Checker
	log     *logger.Logger
	now     func() time.Time
}

func New(checker Checker, log *logger.Logger) *Service {
	return &Service{checker: checker, log: log, now: time.Now}
}

// Verify checks a single address. The first returned verdict decides.
func (s *Service) Verify(ctx context.Context, email string) Outcome {
	out := Outcome{Email: strings.TrimSpace(email), CheckedAt: s.now().UTC()}

	if s.checker == nil {
		out.Status = StatusFailed
		out.Error = "verification service not configured"
		return out
	}

	resp, err := s.checker.Check(ctx, []string{out.Email})
	if err != nil {
		if s.log != nil {
			s.log.Warn("email verification call failed", "error", err)
		}
		out.Status = StatusFailed
		out.Error = err.Error()
		return out
	}
	if len(resp.Verdicts) == 0 {
		out.Status = StatusFailed
		out.Error = ErrEmptyResponse.Error()
		return out
	}

	out.Verdicts = resp.Raw
	if strings.EqualFold(strings.TrimSpace(resp.Verdicts[0].Status), verdictValid) {
		out.Status = StatusVerified
	} else {
		out.Status = StatusInvalid
	}
	return out
}
