package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

func main() {
	olderThan := flag.Duration("older-than", 0, "requeue enriching leads claimed longer ago than this (default LEAD_CLAIM_LEASE)")
	dryRun := flag.Bool("dry-run", false, "only count the leads that would be requeued")
	runTick := flag.Bool("tick", false, "run one dispatch tick after requeueing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewWithWriter(cfg.Env, os.Stderr)
	log.Info("starting lead requeue", "dryRun", *dryRun)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	lease := *olderThan
	if lease <= 0 {
		lease = cfg.GetLeadClaimLease()
	}
	cutoff := time.Now().Add(-lease)

	eventBus := events.NewInMemoryBus(log)
	events.SubscribePipelineLogging(eventBus, log)
	leadsModule := leads.NewModule(leads.Dependencies{
		Pool:      pool,
		EventBus:  eventBus,
		Validator: validator.New(),
	}, cfg, log)

	if *dryRun {
		n, err := leadsModule.Repository().CountStale(ctx, cutoff)
		if err != nil {
			log.Error("failed to count stale claims", "error", err)
			os.Exit(1)
		}
		log.Info("dry run: leads that would be requeued", "count", n, "claimedBefore", cutoff)
		return
	}

	n, err := leadsModule.Repository().RequeueStale(ctx, cutoff)
	if err != nil {
		log.Error("failed to requeue stale claims", "error", err)
		os.Exit(1)
	}
	log.Info("requeued stale claims", "count", n, "claimedBefore", cutoff)

	if *runTick {
		result := leadsModule.Dispatcher().Tick(ctx)
		log.Info("dispatch tick finished",
			"ok", result.OK,
			"error", result.Error,
			"claimed", result.Claimed,
			"enriched", result.Enriched,
			"verified", result.Verified,
		)
		eventBus.Wait()
		if !result.OK {
			os.Exit(1)
		}
	}
}
