package service

import (
	"sort"
	"time"

	"leadflow_backend/internal/proxyhealth/domain"
)

// Class is the health classification of a proxy.
type Class string

const (
	ClassHealthy   Class = "healthy"
	ClassDegraded  Class = "degraded"
	ClassUnhealthy Class = "unhealthy"
	// ClassUnknown means no resolved attempts; it is not the same as unhealthy.
	ClassUnknown Class = "unknown"
)

// Policy holds the classification thresholds.
type Policy struct {
	HealthyThreshold  float64
	DegradedThreshold float64
	TopPerformers     int
}

// DefaultPolicy is 80% healthy, 60% degraded, top 3.
func DefaultPolicy() Policy {
	return Policy{HealthyThreshold: 0.80, DegradedThreshold: 0.60, TopPerformers: 3}
}

// Classify maps a success rate to a class. Both bounds are inclusive.
func (p Policy) Classify(rate float64, attempts int64) Class {
	switch {
	case attempts == 0:
		return ClassUnknown
	case rate >= p.HealthyThreshold:
		return ClassHealthy
	case rate >= p.DegradedThreshold:
		return ClassDegraded
	default:
		return ClassUnhealthy
	}
}

// HealCheckSummary reports probe results next to, never inside, the live rate.
type HealCheckSummary struct {
	Total         int64      `json:"total"`
	Successes     int64      `json:"successes"`
	SuccessRate   float64    `json:"successRate"`
	AvgDurationMs *float64   `json:"avgDurationMs,omitempty"`
	LastChecked   *time.Time `json:"lastChecked,omitempty"`
}

// ProxyReport is the derived view of one proxy.
type ProxyReport struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	IP   string `json:"ip,omitempty"`
	// Attempts counts resolved outcomes; pending entries are reported but excluded.
	Attempts    int64             `json:"attempts"`
	Successes   int64             `json:"successes"`
	Failed      int64             `json:"failed"`
	Banned      int64             `json:"banned"`
	Timeout     int64             `json:"timeout"`
	Pending     int64             `json:"pending"`
	SuccessRate float64           `json:"successRate"`
	Class       Class             `json:"class"`
	LastSeen    *time.Time        `json:"lastSeen,omitempty"`
	HealCheck   *HealCheckSummary `json:"healCheck,omitempty"`
}

func (r ProxyReport) key() domain.ProxyKey {
	return domain.ProxyKey{Host: r.Host, Port: r.Port}
}

// PoolReport is the pool-wide rollup.
type PoolReport struct {
	Window      string    `json:"window"`
	GeneratedAt time.Time `json:"generatedAt"`
	ProxyCount  int       `json:"proxyCount"`
	Attempts    int64     `json:"attempts"`
	Successes   int64     `json:"successes"`
	// Failures is every unsuccessful resolved attempt: failed, banned and timeout.
	Failures         int64         `json:"failures"`
	Failed           int64         `json:"failed"`
	Banned           int64         `json:"banned"`
	Timeout          int64         `json:"timeout"`
	Pending          int64         `json:"pending"`
	HealthPercentage float64       `json:"healthPercentage"`
	Classes          map[Class]int `json:"classes"`
	TopPerformers    []ProxyReport `json:"topPerformers"`
	Proxies          []ProxyReport `json:"proxies"`
}

// Aggregate builds the pool report from per-proxy counts. Heal checks are
// attached to their proxy but never change its success rate.
func Aggregate(signals []domain.SignalCounts, heals []domain.HealCheckCounts, policy Policy) PoolReport {
	reports := make(map[domain.ProxyKey]*ProxyReport)
	for _, s := range signals {
		r := reportFor(reports, s.Proxy)
		r.IP = s.IP
		r.Successes += s.Success
		r.Failed += s.Failed
		r.Banned += s.Banned
		r.Timeout += s.Timeout
		r.Pending += s.Pending
		r.LastSeen = later(r.LastSeen, s.LastSeen)
	}
	for _, h := range heals {
		r := reportFor(reports, h.Proxy)
		summary := &HealCheckSummary{
			Total:         h.Total,
			Successes:     h.Successes,
			AvgDurationMs: h.AvgDurationMs,
			LastChecked:   h.LastChecked,
		}
		if h.Total > 0 {
			summary.SuccessRate = float64(h.Successes) / float64(h.Total)
		}
		r.HealCheck = summary
	}

	pool := PoolReport{
		Classes: map[Class]int{
			ClassHealthy:   0,
			ClassDegraded:  0,
			ClassUnhealthy: 0,
			ClassUnknown:   0,
		},
		Proxies:       make([]ProxyReport, 0, len(reports)),
		TopPerformers: make([]ProxyReport, 0),
	}

	for _, r := range reports {
		r.Attempts = r.Successes + r.Failed + r.Banned + r.Timeout
		if r.Attempts > 0 {
			r.SuccessRate = float64(r.Successes) / float64(r.Attempts)
		}
		r.Class = policy.Classify(r.SuccessRate, r.Attempts)

		pool.Attempts += r.Attempts
		pool.Successes += r.Successes
		pool.Failed += r.Failed
		pool.Banned += r.Banned
		pool.Timeout += r.Timeout
		pool.Pending += r.Pending
		pool.Classes[r.Class]++
		pool.Proxies = append(pool.Proxies, *r)
	}

	pool.ProxyCount = len(pool.Proxies)
	pool.Failures = pool.Failed + pool.Banned + pool.Timeout
	if pool.Attempts > 0 {
		pool.HealthPercentage = float64(pool.Successes) / float64(pool.Attempts) * 100
	}

	sort.Slice(pool.Proxies, func(i, j int) bool {
		return pool.Proxies[i].key().Less(pool.Proxies[j].key())
	})
	pool.TopPerformers = topPerformers(pool.Proxies, policy.TopPerformers)
	return pool
}

// topPerformers ranks proxies with data by success rate, then by volume, then by key.
func topPerformers(proxies []ProxyReport, n int) []ProxyReport {
	ranked := make([]ProxyReport, 0, len(proxies))
	for _, p := range proxies {
		if p.Attempts > 0 {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate > b.SuccessRate
		}
		if a.Attempts != b.Attempts {
			return a.Attempts > b.Attempts
		}
		return a.key().Less(b.key())
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func reportFor(reports map[domain.ProxyKey]*ProxyReport, key domain.ProxyKey) *ProxyReport {
	r, ok := reports[key]
	if !ok {
		r = &ProxyReport{Host: key.Host, Port: key.Port}
		reports[key] = r
	}
	return r
}

func later(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}
