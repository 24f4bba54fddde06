// Package repository persists the append-only proxy signal and heal-check logs.
// There are deliberately no update or delete statements here.
package repository

import (
	"context"
	"time"

	"leadflow_backend/internal/proxyhealth/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) AppendSignal(ctx context.Context, e domain.SignalEntry) (domain.SignalEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO proxy_signal_logs (id, occurred_at, source, proxy_host, proxy_port, proxy_ip, outcome, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
	`, e.ID, e.OccurredAt, e.Source, e.Proxy.Host, e.Proxy.Port, e.IP, string(e.Outcome), e.Error)
	if err != nil {
		return domain.SignalEntry{}, err
	}
	return e, nil
}

func (r *Repository) AppendHealCheck(ctx context.Context, e domain.HealCheckEntry) (domain.HealCheckEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO proxy_heal_check_logs (id, occurred_at, proxy_host, proxy_port, proxy_ip, outcome, duration_ms, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
	`, e.ID, e.OccurredAt, e.Proxy.Host, e.Proxy.Port, e.IP, string(e.Outcome), e.DurationMs, e.Error)
	if err != nil {
		return domain.HealCheckEntry{}, err
	}
	return e, nil
}

// CountSignalsByProxy aggregates signal outcomes per proxy. A zero since means all time.
func (r *Repository) CountSignalsByProxy(ctx context.Context, since time.Time) ([]domain.SignalCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			proxy_host,
			proxy_port,
			(array_agg(proxy_ip ORDER BY occurred_at DESC))[1],
			count(*) FILTER (WHERE outcome = 'success'),
			count(*) FILTER (WHERE outcome = 'failed'),
			count(*) FILTER (WHERE outcome = 'banned'),
			count(*) FILTER (WHERE outcome = 'timeout'),
			count(*) FILTER (WHERE outcome = 'pending'),
			max(occurred_at)
		FROM proxy_signal_logs
		WHERE $1::timestamptz IS NULL OR occurred_at >= $1
		GROUP BY proxy_host, proxy_port
		ORDER BY proxy_host, proxy_port
	`, sinceArg(since))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SignalCounts, error) {
		var c domain.SignalCounts
		err := row.Scan(
			&c.Proxy.Host, &c.Proxy.Port, &c.IP,
			&c.Success, &c.Failed, &c.Banned, &c.Timeout, &c.Pending,
			&c.LastSeen,
		)
		return c, err
	})
}

// CountHealChecksByProxy aggregates probe results per proxy. A zero since means all time.
func (r *Repository) CountHealChecksByProxy(ctx context.Context, since time.Time) ([]domain.HealCheckCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			proxy_host,
			proxy_port,
			count(*),
			count(*) FILTER (WHERE outcome = 'success'),
			avg(duration_ms)::float8,
			max(occurred_at)
		FROM proxy_heal_check_logs
		WHERE $1::timestamptz IS NULL OR occurred_at >= $1
		GROUP BY proxy_host, proxy_port
		ORDER BY proxy_host, proxy_port
	`, sinceArg(since))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HealCheckCounts, error) {
		var c domain.HealCheckCounts
		err := row.Scan(&c.Proxy.Host, &c.Proxy.Port, &c.Total, &c.Successes, &c.AvgDurationMs, &c.LastChecked)
		return c, err
	})
}

// ListKnownProxies returns every proxy that ever appeared in the signal log.
func (r *Repository) ListKnownProxies(ctx context.Context) ([]domain.ProxyKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT proxy_host, proxy_port
		FROM proxy_signal_logs
		ORDER BY proxy_host, proxy_port
	`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProxyKey, error) {
		var k domain.ProxyKey
		err := row.Scan(&k.Host, &k.Port)
		return k, err
	})
}

func sinceArg(since time.Time) *time.Time {
	if since.IsZero() {
		return nil
	}
	return &since
}
