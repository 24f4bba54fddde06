// Package pipeline advances scraped leads through enrichment and email
// verification, one claimed lead per user per tick.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers = 8
	// terminalWriteTimeout bounds the writes that end a claim. They run on a
	// detached context so a cancelled trigger does not strand a lead in enriching.
	terminalWriteTimeout = 10 * time.Second
)

// Config tunes the dispatcher.
type Config struct {
	// Workers caps how many users are processed in parallel within one tick.
	Workers int
	// PhoneRegion is used to normalize phone numbers without a country prefix.
	PhoneRegion string
}

// TickResult summarizes one dispatcher run.
type TickResult struct {
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	TickID     string    `json:"tickId"`
	Users      int       `json:"users"`
	Claimed    int       `json:"claimed"`
	Enriched   int       `json:"enriched"`
	Retried    int       `json:"retried"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Verified   int       `json:"verified"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

type tickCounters struct {
	claimed, enriched, retried, skipped, failed, verified atomic.Int64
}

// Dispatcher runs ticks. It holds no per-tick state, so overlapping ticks are
// safe; the claim compare-and-set in the store keeps them apart.
type Dispatcher struct {
	store       ports.LeadStore
	enricher    ports.LeadEnricher
	verifier    ports.EmailVerifier
	bus         events.Bus
	log         *logger.Logger
	workers     int
	phoneRegion string
	now         func() time.Time
}

func NewDispatcher(store ports.LeadStore, enricher ports.LeadEnricher, verifier ports.EmailVerifier, bus events.Bus, cfg Config, log *logger.Logger) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{
		store:       store,
		enricher:    enricher,
		verifier:    verifier,
		bus:         bus,
		log:         log,
		workers:     workers,
		phoneRegion: cfg.PhoneRegion,
		now:         time.Now,
	}
}

// Tick lists every user with a scraped lead and processes one lead per user.
// Per-user failures are logged and counted; only a failure to list users
// makes the tick itself fail.
func (d *Dispatcher) Tick(ctx context.Context) (result TickResult) {
	started := d.now()
	result = TickResult{TickID: uuid.NewString(), StartedAt: started.UTC()}
	ctx = context.WithValue(ctx, logger.TickIDKey, result.TickID)
	log := d.log.WithContext(ctx)

	defer func() {
		duration := d.now().Sub(started)
		result.DurationMs = duration.Milliseconds()
		metrics.RecordTick(result.OK, duration)
	}()

	users, err := d.store.ListUsersWithScrapedLeads(ctx)
	if err != nil {
		log.DatabaseError("list users with scraped leads", err)
		result.Error = fmt.Sprintf("list users: %v", err)
		return result
	}
	result.Users = len(users)

	var counters tickCounters
	g := new(errgroup.Group)
	g.SetLimit(d.workers)
	for _, userID := range users {
		g.Go(func() error {
			d.runUser(ctx, userID, &counters)
			return nil
		})
	}
	_ = g.Wait()

	result.OK = true
	result.Claimed = int(counters.claimed.Load())
	result.Enriched = int(counters.enriched.Load())
	result.Retried = int(counters.retried.Load())
	result.Skipped = int(counters.skipped.Load())
	result.Failed = int(counters.failed.Load())
	result.Verified = int(counters.verified.Load())

	log.Info("dispatch tick finished",
		"users", result.Users,
		"claimed", result.Claimed,
		"enriched", result.Enriched,
		"retried", result.Retried,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result
}

// runUser claims at most one lead for userID and advances it.
func (d *Dispatcher) runUser(ctx context.Context, userID uuid.UUID, c *tickCounters) {
	ctx = context.WithValue(ctx, logger.UserIDKey, userID.String())
	log := d.log.WithContext(ctx)

	var (
		claimed  *domain.Lead
		released bool
	)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		c.failed.Add(1)
		log.Error("lead dispatch panicked", "panic", r)
		if claimed != nil && !released {
			d.release(ctx, log.WithLeadID(claimed.ID.String()), *claimed, fmt.Sprintf("panic: %v", r))
		}
	}()

	lead, ok, err := d.store.ClaimNextScraped(ctx, userID)
	if err != nil {
		// Nothing was claimed, so there is nothing to undo.
		c.failed.Add(1)
		log.Warn("lead claim failed", "error", err)
		return
	}
	if !ok {
		c.skipped.Add(1)
		return
	}
	claimed = &lead
	c.claimed.Add(1)
	metrics.RecordTransition(string(domain.StatusScraped), string(domain.StatusEnriching))

	leadLog := log.WithLeadID(lead.ID.String())
	switch d.enrich(ctx, leadLog, lead) {
	case enrichDone:
		c.enriched.Add(1)
	case enrichReleased:
		c.retried.Add(1)
	case enrichStuck:
		c.failed.Add(1)
	}
	released = true

	if d.verify(ctx, leadLog, lead) {
		c.verified.Add(1)
	}
}

type enrichOutcome int

const (
	enrichDone enrichOutcome = iota
	enrichReleased
	// enrichStuck means the lead could not be moved out of enriching; the
	// stale-claim sweep picks it up once its lease expires.
	enrichStuck
)

func (d *Dispatcher) enrich(ctx context.Context, log *logger.Logger, lead domain.Lead) enrichOutcome {
	if d.enricher == nil {
		return d.release(ctx, log, lead, "enrichment not configured")
	}
	info, err := d.enricher.EnrichLead(ctx, ports.EnrichmentRequest{
		LeadID:    lead.ID,
		SourceURL: lead.SourceURL,
		ScrapInfo: lead.ScrapInfo,
		Phone:     lead.ScrapInfo.NormalizedPhone(d.phoneRegion),
	})
	if err != nil {
		log.JobEvent("enrich_lead", "failed", "error", err.Error())
		return d.release(ctx, log, lead, err.Error())
	}

	writeCtx, cancel := terminalContext(ctx)
	defer cancel()
	if err := d.store.MarkEnriched(writeCtx, lead.ID, info); err != nil {
		if errors.Is(err, ports.ErrClaimLost) {
			log.Warn("lead claim lost before enrichment was saved")
			return enrichStuck
		}
		log.DatabaseError("mark lead enriched", err)
		return d.release(ctx, log, lead, "save enrichment: "+err.Error())
	}

	metrics.RecordTransition(string(domain.StatusEnriching), string(domain.StatusEnriched))
	log.JobEvent("enrich_lead", "enriched", "title_guess", info.TitleGuess)
	d.publish(ctx, events.LeadEnriched{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		UserID:     lead.UserID,
		TitleGuess: info.TitleGuess,
	})
	return enrichDone
}

// release returns a claimed lead to scraped with enrich_info cleared.
func (d *Dispatcher) release(ctx context.Context, log *logger.Logger, lead domain.Lead, reason string) enrichOutcome {
	writeCtx, cancel := terminalContext(ctx)
	defer cancel()

	if err := d.store.ReleaseForRetry(writeCtx, lead.ID); err != nil {
		if errors.Is(err, ports.ErrClaimLost) {
			return enrichReleased
		}
		log.DatabaseError("release lead for retry", err)
		return enrichStuck
	}

	metrics.RecordTransition(string(domain.StatusEnriching), string(domain.StatusScraped))
	d.publish(ctx, events.LeadEnrichmentFailed{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    lead.UserID,
		Reason:    reason,
	})
	return enrichReleased
}

// verify checks the first scraped email, whatever enrichment did.
// A lead without emails is left untouched.
func (d *Dispatcher) verify(ctx context.Context, log *logger.Logger, lead domain.Lead) bool {
	email := lead.ScrapInfo.FirstEmail()
	if email == "" || d.verifier == nil {
		return false
	}

	res := d.verifier.VerifyEmail(ctx, email)
	status := res.Outcome.Persisted()
	metrics.RecordVerification(string(res.Outcome))

	payload, err := json.Marshal(res.Info)
	if err != nil {
		log.Error("encode verification info", "error", err)
		return false
	}

	writeCtx, cancel := terminalContext(ctx)
	defer cancel()
	if err := d.store.SaveVerification(writeCtx, lead.ID, status, payload); err != nil {
		log.DatabaseError("save email verification", err)
		return false
	}

	log.JobEvent("verify_email", string(res.Outcome), "status", string(status))
	d.publish(ctx, events.LeadEmailVerified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    lead.UserID,
		Email:     email,
		Outcome:   string(res.Outcome),
		Status:    string(status),
	})
	return res.Outcome == domain.OutcomeVerified
}

func (d *Dispatcher) publish(ctx context.Context, event events.Event) {
	if d.bus != nil {
		d.bus.Publish(ctx, event)
	}
}

func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}
