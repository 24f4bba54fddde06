package pipeline

import (
	"context"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultClaimLease    = 15 * time.Minute
)

// StaleClaimSweeper periodically returns leads stuck in enriching to scraped
// once their claim is older than the lease.
type StaleClaimSweeper struct {
	store    ports.StaleClaimStore
	bus      events.Bus
	log      *logger.Logger
	interval time.Duration
	lease    time.Duration
	now      func() time.Time
}

func NewStaleClaimSweeper(store ports.StaleClaimStore, bus events.Bus, log *logger.Logger, interval, lease time.Duration) *StaleClaimSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if lease <= 0 {
		lease = defaultClaimLease
	}
	if log == nil {
		log = logger.Discard()
	}
	return &StaleClaimSweeper{
		store:    store,
		bus:      bus,
		log:      log,
		interval: interval,
		lease:    lease,
		now:      time.Now,
	}
}

func (s *StaleClaimSweeper) Run(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}

	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

// Sweep releases every claim older than the lease and returns how many.
func (s *StaleClaimSweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.RequeueStale(ctx, s.now().Add(-s.lease))
	if err != nil {
		return 0, err
	}
	metrics.RecordRequeued(n)
	if n > 0 && s.bus != nil {
		s.bus.Publish(ctx, events.StaleClaimsRequeued{BaseEvent: events.NewBaseEvent(), Count: n})
	}
	return n, nil
}

func (s *StaleClaimSweeper) sweepAndLog(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		s.log.Warn("stale claim sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("stale claim sweep requeued leads", "requeued", n)
	}
}
