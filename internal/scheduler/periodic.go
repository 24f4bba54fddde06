package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the recurring tasks. Run exactly one per deployment.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// Intervals for the recurring tasks. A zero interval disables that task.
type Intervals struct {
	DispatchTick   time.Duration
	ProxyHealCheck time.Duration
}

func NewPeriodic(cfg config.SchedulerConfig, intervals Intervals, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	queue := asynq.Queue(queueName(cfg))

	if intervals.DispatchTick > 0 {
		task, err := NewDispatchTickTask(DispatchTickPayload{Trigger: "periodic"})
		if err != nil {
			return nil, err
		}
		// Unique keeps a slow tick from piling up duplicates behind it.
		if _, err := s.Register(everySpec(intervals.DispatchTick), task, queue, asynq.MaxRetry(0), asynq.Unique(intervals.DispatchTick)); err != nil {
			return nil, fmt.Errorf("register dispatch tick: %w", err)
		}
	}
	if intervals.ProxyHealCheck > 0 {
		task, err := NewProxyHealCheckTask(ProxyHealCheckPayload{})
		if err != nil {
			return nil, err
		}
		if _, err := s.Register(everySpec(intervals.ProxyHealCheck), task, queue, asynq.MaxRetry(0), asynq.Unique(intervals.ProxyHealCheck)); err != nil {
			return nil, fmt.Errorf("register proxy heal check: %w", err)
		}
	}

	return &Periodic{scheduler: s, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}

func everySpec(d time.Duration) string {
	return "@every " + d.String()
}
