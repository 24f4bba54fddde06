// Package domain holds the proxy log entries and derived statistics.
package domain

import (
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SignalOutcome is the result of one live request made through a proxy.
type SignalOutcome string

const (
	SignalSuccess SignalOutcome = "success"
	SignalFailed  SignalOutcome = "failed"
	SignalBanned  SignalOutcome = "banned"
	SignalTimeout SignalOutcome = "timeout"
	// SignalPending marks an attempt whose result was never reported.
	SignalPending SignalOutcome = "pending"
)

func (o SignalOutcome) Valid() bool {
	switch o {
	case SignalSuccess, SignalFailed, SignalBanned, SignalTimeout, SignalPending:
		return true
	default:
		return false
	}
}

// HealCheckOutcome is the result of one synthetic probe.
type HealCheckOutcome string

const (
	HealCheckSuccess HealCheckOutcome = "success"
	HealCheckFailed  HealCheckOutcome = "failed"
)

func (o HealCheckOutcome) Valid() bool {
	return o == HealCheckSuccess || o == HealCheckFailed
}

// ProxyKey identifies a proxy endpoint.
type ProxyKey struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (k ProxyKey) String() string {
	return net.JoinHostPort(k.Host, strconv.Itoa(k.Port))
}

// Less orders keys by host, then port.
func (k ProxyKey) Less(other ProxyKey) bool {
	if k.Host != other.Host {
		return k.Host < other.Host
	}
	return k.Port < other.Port
}

// SignalEntry is one row of the append-only signal log.
type SignalEntry struct {
	ID         uuid.UUID     `json:"id"`
	OccurredAt time.Time     `json:"occurredAt"`
	Source     string        `json:"source"`
	Proxy      ProxyKey      `json:"proxy"`
	IP         string        `json:"ip,omitempty"`
	Outcome    SignalOutcome `json:"outcome"`
	Error      string        `json:"error,omitempty"`
}

// HealCheckEntry is one row of the append-only heal-check log.
type HealCheckEntry struct {
	ID         uuid.UUID        `json:"id"`
	OccurredAt time.Time        `json:"occurredAt"`
	Proxy      ProxyKey         `json:"proxy"`
	IP         string           `json:"ip,omitempty"`
	Outcome    HealCheckOutcome `json:"outcome"`
	DurationMs int              `json:"durationMs"`
	Error      string           `json:"error,omitempty"`
}

// SignalCounts are per-proxy outcome counts over a window.
type SignalCounts struct {
	Proxy    ProxyKey
	IP       string
	Success  int64
	Failed   int64
	Banned   int64
	Timeout  int64
	Pending  int64
	LastSeen *time.Time
}

// HealCheckCounts are per-proxy probe totals over a window.
type HealCheckCounts struct {
	Proxy         ProxyKey
	Total         int64
	Successes     int64
	AvgDurationMs *float64
	LastChecked   *time.Time
}
