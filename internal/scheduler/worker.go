package scheduler

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/proxyhealth/prober"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Ticker runs one dispatcher tick.
type Ticker interface {
	Tick(ctx context.Context) pipeline.TickResult
}

// HealChecker probes the proxy pool once.
type HealChecker interface {
	RunOnce(ctx context.Context) (prober.Summary, error)
}

// TickRecorder persists tick results for the status endpoint.
type TickRecorder interface {
	Save(ctx context.Context, result pipeline.TickResult) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	ticker   Ticker
	healer   HealChecker
	recorder TickRecorder
	log      *logger.Logger
}

// NewWorker builds the asynq server. healer and recorder may be nil.
func NewWorker(cfg config.SchedulerConfig, ticker Ticker, healer HealChecker, recorder TickRecorder, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(ticker, healer, recorder, log)
	w.server = server
	return w, nil
}

func newWorker(ticker Ticker, healer HealChecker, recorder TickRecorder, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:      mux,
		ticker:   ticker,
		healer:   healer,
		recorder: recorder,
		log:      log,
	}

	mux.HandleFunc(TaskDispatchTick, w.handleDispatchTick)
	mux.HandleFunc(TaskProxyHealCheck, w.handleProxyHealCheck)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleDispatchTick never asks asynq to retry: the next periodic tick is the retry.
func (w *Worker) handleDispatchTick(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDispatchTickPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if w.ticker == nil {
		return nil
	}

	result := w.ticker.Tick(ctx)
	if w.recorder != nil {
		if err := w.recorder.Save(ctx, result); err != nil {
			w.log.Warn("failed to record dispatch tick", "error", err, "tickId", result.TickID)
		}
	}

	w.log.JobEvent("dispatch_tick", outcomeOf(result.OK),
		"trigger", payload.Trigger,
		"tickId", result.TickID,
		"claimed", result.Claimed,
		"enriched", result.Enriched,
		"durationMs", result.DurationMs,
	)
	if !result.OK {
		return fmt.Errorf("dispatch tick failed: %s: %w", result.Error, asynq.SkipRetry)
	}
	return nil
}

func (w *Worker) handleProxyHealCheck(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseProxyHealCheckPayload(task); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if w.healer == nil {
		return nil
	}

	summary, err := w.healer.RunOnce(ctx)
	if err != nil {
		w.log.JobEvent("proxy_heal_check", "failed", "error", err)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	w.log.JobEvent("proxy_heal_check", "succeeded", "probed", summary.Probed, "failed", summary.Failed)
	return nil
}

func outcomeOf(ok bool) string {
	if ok {
		return "succeeded"
	}
	return "failed"
}
