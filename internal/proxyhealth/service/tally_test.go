package service

import (
	"sort"

	"leadflow_backend/internal/proxyhealth/domain"
)

// tallySignals folds raw entries into per-proxy counts, ordered by key.
func tallySignals(entries []domain.SignalEntry) []domain.SignalCounts {
	byKey := make(map[domain.ProxyKey]*domain.SignalCounts)
	order := make([]domain.ProxyKey, 0)
	for _, e := range entries {
		c, ok := byKey[e.Proxy]
		if !ok {
			c = &domain.SignalCounts{Proxy: e.Proxy}
			byKey[e.Proxy] = c
			order = append(order, e.Proxy)
		}
		switch e.Outcome {
		case domain.SignalSuccess:
			c.Success++
		case domain.SignalFailed:
			c.Failed++
		case domain.SignalBanned:
			c.Banned++
		case domain.SignalTimeout:
			c.Timeout++
		case domain.SignalPending:
			c.Pending++
		}
		if c.LastSeen == nil || e.OccurredAt.After(*c.LastSeen) {
			at := e.OccurredAt
			c.LastSeen = &at
			if e.IP != "" {
				c.IP = e.IP
			}
		}
	}

	sortKeys(order)
	out := make([]domain.SignalCounts, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

// tallyHealChecks folds raw probe entries into per-proxy totals, ordered by key.
func tallyHealChecks(entries []domain.HealCheckEntry) []domain.HealCheckCounts {
	type acc struct {
		counts   domain.HealCheckCounts
		duration int64
	}
	byKey := make(map[domain.ProxyKey]*acc)
	order := make([]domain.ProxyKey, 0)
	for _, e := range entries {
		a, ok := byKey[e.Proxy]
		if !ok {
			a = &acc{counts: domain.HealCheckCounts{Proxy: e.Proxy}}
			byKey[e.Proxy] = a
			order = append(order, e.Proxy)
		}
		a.counts.Total++
		if e.Outcome == domain.HealCheckSuccess {
			a.counts.Successes++
		}
		a.duration += int64(e.DurationMs)
		if a.counts.LastChecked == nil || e.OccurredAt.After(*a.counts.LastChecked) {
			at := e.OccurredAt
			a.counts.LastChecked = &at
		}
	}

	sortKeys(order)
	out := make([]domain.HealCheckCounts, 0, len(order))
	for _, k := range order {
		a := byKey[k]
		avg := float64(a.duration) / float64(a.counts.Total)
		a.counts.AvgDurationMs = &avg
		out = append(out, a.counts)
	}
	return out
}

func sortKeys(keys []domain.ProxyKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
