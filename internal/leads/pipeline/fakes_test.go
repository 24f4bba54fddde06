package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// memoryStore mirrors the repository's compare-and-set semantics under a mutex.
type memoryStore struct {
	mu        sync.Mutex
	leads     map[uuid.UUID]*domain.Lead
	listErr   error
	claimErr  map[uuid.UUID]error
	writes    int
	failMark  bool
	claimHook func(domain.Lead)
	listGate  func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{leads: make(map[uuid.UUID]*domain.Lead), claimErr: make(map[uuid.UUID]error)}
}

func (s *memoryStore) add(userID uuid.UUID, status domain.Status, scrap string, createdAt time.Time) uuid.UUID {
	info, err := domain.ParseScrapInfo([]byte(scrap))
	if err != nil {
		panic(err)
	}
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[id] = &domain.Lead{
		ID:                id,
		UserID:            userID,
		Status:            status,
		VerifyEmailStatus: domain.VerifyEmailPending,
		ScrapInfo:         info,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	return id
}

func (s *memoryStore) get(id uuid.UUID) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.leads[id]
}

func (s *memoryStore) ListUsersWithScrapedLeads(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	if s.listErr != nil {
		s.mu.Unlock()
		return nil, s.listErr
	}
	seen := make(map[uuid.UUID]bool)
	users := make([]uuid.UUID, 0)
	for _, l := range s.leads {
		if l.Status == domain.StatusScraped && !seen[l.UserID] {
			seen[l.UserID] = true
			users = append(users, l.UserID)
		}
	}
	gate := s.listGate
	s.mu.Unlock()

	if gate != nil {
		gate()
	}
	return users, nil
}

func (s *memoryStore) ClaimNextScraped(ctx context.Context, userID uuid.UUID) (domain.Lead, bool, error) {
	s.mu.Lock()
	if err := s.claimErr[userID]; err != nil {
		s.mu.Unlock()
		return domain.Lead{}, false, err
	}

	candidates := make([]*domain.Lead, 0)
	for _, l := range s.leads {
		if l.UserID == userID && l.Status == domain.StatusScraped {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		s.mu.Unlock()
		return domain.Lead{}, false, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	lead := candidates[0]
	now := time.Now()
	lead.Status = domain.StatusEnriching
	lead.ClaimedAt = &now
	s.writes++
	claimed := *lead
	hook := s.claimHook
	s.mu.Unlock()

	if hook != nil {
		hook(claimed)
	}
	return claimed, true, nil
}

func (s *memoryStore) MarkEnriched(ctx context.Context, id uuid.UUID, info domain.EnrichInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMark {
		return errors.New("write failed")
	}
	l := s.leads[id]
	if l == nil || l.Status != domain.StatusEnriching {
		return ports.ErrClaimLost
	}
	l.Status = domain.StatusEnriched
	l.EnrichInfo = &info
	l.ClaimedAt = nil
	s.writes++
	return nil
}

func (s *memoryStore) ReleaseForRetry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.leads[id]
	if l == nil || l.Status != domain.StatusEnriching {
		return ports.ErrClaimLost
	}
	l.Status = domain.StatusScraped
	l.EnrichInfo = nil
	l.ClaimedAt = nil
	s.writes++
	return nil
}

func (s *memoryStore) SaveVerification(ctx context.Context, id uuid.UUID, status domain.VerifyEmailStatus, info json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.leads[id]
	if l == nil {
		return errors.New("lead not found")
	}
	l.VerifyEmailStatus = status
	l.VerifyEmailInfo = info
	s.writes++
	return nil
}

func (s *memoryStore) RequeueStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.leads {
		if l.Status == domain.StatusEnriching && l.ClaimedAt != nil && l.ClaimedAt.Before(claimedBefore) {
			l.Status = domain.StatusScraped
			l.ClaimedAt = nil
			l.EnrichInfo = nil
			n++
		}
	}
	return n, nil
}

type enricherFunc func(ctx context.Context, req ports.EnrichmentRequest) (domain.EnrichInfo, error)

func (f enricherFunc) EnrichLead(ctx context.Context, req ports.EnrichmentRequest) (domain.EnrichInfo, error) {
	return f(ctx, req)
}

type recordingVerifier struct {
	mu      sync.Mutex
	calls   []string
	outcome domain.VerificationOutcome
}

func (v *recordingVerifier) VerifyEmail(ctx context.Context, email string) ports.EmailVerification {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, email)
	return ports.EmailVerification{
		Outcome: v.outcome,
		Info:    domain.VerifyEmailInfo{Outcome: v.outcome, Email: email, CheckedAt: time.Now()},
	}
}

func (v *recordingVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.calls)
}
