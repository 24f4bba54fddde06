// Package service computes proxy health from the signal and heal-check logs
// and validates new log entries before they are appended.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/proxyhealth/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

// LogReader reads aggregated counts from both log streams.
type LogReader interface {
	CountSignalsByProxy(ctx context.Context, since time.Time) ([]domain.SignalCounts, error)
	CountHealChecksByProxy(ctx context.Context, since time.Time) ([]domain.HealCheckCounts, error)
}

// LogWriter appends to both log streams.
type LogWriter interface {
	AppendSignal(ctx context.Context, e domain.SignalEntry) (domain.SignalEntry, error)
	AppendHealCheck(ctx context.Context, e domain.HealCheckEntry) (domain.HealCheckEntry, error)
}

// Aggregator is read-only over the logs.
type Aggregator struct {
	reader LogReader
	policy Policy
	log    *logger.Logger
	now    func() time.Time
}

func NewAggregator(reader LogReader, policy Policy, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Discard()
	}
	return &Aggregator{reader: reader, policy: policy, log: log, now: time.Now}
}

// PoolHealth reports on every proxy seen within window. A zero window means all time.
// If either stream cannot be read the result is an Unavailable error, never zeros.
func (a *Aggregator) PoolHealth(ctx context.Context, window time.Duration) (PoolReport, error) {
	now := a.now().UTC()
	var since time.Time
	if window > 0 {
		since = now.Add(-window)
	}

	signals, err := a.reader.CountSignalsByProxy(ctx, since)
	if err != nil {
		a.log.DatabaseError("count proxy signals", err)
		return PoolReport{}, apperr.Unavailable("proxy signal log unavailable", err).WithOp("proxyhealth.PoolHealth")
	}
	heals, err := a.reader.CountHealChecksByProxy(ctx, since)
	if err != nil {
		a.log.DatabaseError("count proxy heal checks", err)
		return PoolReport{}, apperr.Unavailable("proxy heal-check log unavailable", err).WithOp("proxyhealth.PoolHealth")
	}

	report := Aggregate(signals, heals, a.policy)
	report.GeneratedAt = now
	report.Window = windowLabel(window)
	return report, nil
}

// ProxyHealth reports on a single proxy. A proxy with no entries comes back
// as ClassUnknown rather than NotFound.
func (a *Aggregator) ProxyHealth(ctx context.Context, key domain.ProxyKey, window time.Duration) (ProxyReport, error) {
	pool, err := a.PoolHealth(ctx, window)
	if err != nil {
		return ProxyReport{}, err
	}
	for _, p := range pool.Proxies {
		if p.Host == key.Host && p.Port == key.Port {
			return p, nil
		}
	}
	return ProxyReport{Host: key.Host, Port: key.Port, Class: ClassUnknown}, nil
}

func windowLabel(window time.Duration) string {
	if window <= 0 {
		return "all"
	}
	return window.String()
}

// Recorder validates and appends log entries.
type Recorder struct {
	writer LogWriter
	now    func() time.Time
}

func NewRecorder(writer LogWriter) *Recorder {
	return &Recorder{writer: writer, now: time.Now}
}

func (r *Recorder) RecordSignal(ctx context.Context, e domain.SignalEntry) (domain.SignalEntry, error) {
	if err := validateProxy(e.Proxy); err != nil {
		return domain.SignalEntry{}, err
	}
	if !e.Outcome.Valid() {
		return domain.SignalEntry{}, apperr.Validation(fmt.Sprintf("unknown signal outcome %q", e.Outcome))
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}
	e.Proxy.Host = strings.ToLower(strings.TrimSpace(e.Proxy.Host))
	return r.writer.AppendSignal(ctx, e)
}

func (r *Recorder) RecordHealCheck(ctx context.Context, e domain.HealCheckEntry) (domain.HealCheckEntry, error) {
	if err := validateProxy(e.Proxy); err != nil {
		return domain.HealCheckEntry{}, err
	}
	if !e.Outcome.Valid() {
		return domain.HealCheckEntry{}, apperr.Validation(fmt.Sprintf("unknown heal-check outcome %q", e.Outcome))
	}
	if e.DurationMs < 0 {
		return domain.HealCheckEntry{}, apperr.Validation("durationMs cannot be negative")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}
	e.Proxy.Host = strings.ToLower(strings.TrimSpace(e.Proxy.Host))
	return r.writer.AppendHealCheck(ctx, e)
}

func validateProxy(key domain.ProxyKey) error {
	if strings.TrimSpace(key.Host) == "" {
		return apperr.Validation("proxy host is required")
	}
	if key.Port < 1 || key.Port > 65535 {
		return apperr.Validation("proxy port must be between 1 and 65535")
	}
	return nil
}
