package prober

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"leadflow_backend/internal/proxyhealth/domain"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 15 * time.Second
	defaultWorkers = 10
	defaultURL     = "https://www.gstatic.com/generate_204"
)

// HealCheckWriter appends probe results.
type HealCheckWriter interface {
	AppendHealCheck(ctx context.Context, e domain.HealCheckEntry) (domain.HealCheckEntry, error)
}

// KnownProxies lists proxies seen in live traffic; used when no pool file is configured.
type KnownProxies interface {
	ListKnownProxies(ctx context.Context) ([]domain.ProxyKey, error)
}

// Config tunes a probe run.
type Config struct {
	URL     string
	Timeout time.Duration
	Workers int
}

// Summary counts the results of one run.
type Summary struct {
	Probed    int `json:"probed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type Prober struct {
	writer  HealCheckWriter
	known   KnownProxies
	targets []Target
	url     string
	timeout time.Duration
	workers int
	log     *logger.Logger
	now     func() time.Time
}

// New creates a prober for targets. With no targets it probes every proxy
// from known over plain HTTP.
func New(writer HealCheckWriter, known KnownProxies, targets []Target, cfg Config, log *logger.Logger) *Prober {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Prober{
		writer:  writer,
		known:   known,
		targets: targets,
		url:     cfg.URL,
		timeout: cfg.Timeout,
		workers: cfg.Workers,
		log:     log,
		now:     time.Now,
	}
}

// RunOnce probes every target once and appends one heal-check entry per target.
func (p *Prober) RunOnce(ctx context.Context) (Summary, error) {
	targets, err := p.resolveTargets(ctx)
	if err != nil {
		return Summary{}, err
	}

	results := make([]domain.HealCheckEntry, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, t := range targets {
		g.Go(func() error {
			results[i] = p.probe(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	var summary Summary
	for _, entry := range results {
		if _, err := p.writer.AppendHealCheck(ctx, entry); err != nil {
			p.log.DatabaseError("append heal check", err)
			continue
		}
		summary.Probed++
		if entry.Outcome == domain.HealCheckSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		metrics.RecordHealCheck(string(entry.Outcome))
	}

	p.log.Info("proxy heal check finished", "probed", summary.Probed, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

func (p *Prober) resolveTargets(ctx context.Context) ([]Target, error) {
	if len(p.targets) > 0 {
		return p.targets, nil
	}
	if p.known == nil {
		return nil, nil
	}
	keys, err := p.known.ListKnownProxies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list known proxies: %w", err)
	}
	targets := make([]Target, 0, len(keys))
	for _, k := range keys {
		targets = append(targets, Target{Host: k.Host, Port: k.Port, Scheme: SchemeHTTP})
	}
	return targets, nil
}

func (p *Prober) probe(ctx context.Context, t Target) domain.HealCheckEntry {
	entry := domain.HealCheckEntry{Proxy: t.Key(), OccurredAt: p.now().UTC()}
	if ip := net.ParseIP(t.Host); ip != nil {
		entry.IP = ip.String()
	}

	client, err := clientFor(t, p.timeout)
	if err != nil {
		entry.Outcome = domain.HealCheckFailed
		entry.Error = err.Error()
		return entry
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err = fetch(ctx, client, p.url)
	entry.DurationMs = int(time.Since(start).Milliseconds())

	if err != nil {
		entry.Outcome = domain.HealCheckFailed
		entry.Error = err.Error()
		return entry
	}
	entry.Outcome = domain.HealCheckSuccess
	return entry
}

func fetch(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("probe status %d", resp.StatusCode)
	}
	return nil
}

// clientFor builds an HTTP client that routes through t.
func clientFor(t Target, timeout time.Duration) (*http.Client, error) {
	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	transport := &http.Transport{
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: timeout,
	}

	switch t.Scheme {
	case SchemeHTTP, SchemeHTTPS, "":
		scheme := t.Scheme
		if scheme == "" {
			scheme = SchemeHTTP
		}
		proxyURL := &url.URL{Scheme: scheme, Host: addr}
		if t.Username != "" {
			proxyURL.User = url.UserPassword(t.Username, t.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	case SchemeSOCKS5:
		var auth *proxy.Auth
		if t.Username != "" {
			auth = &proxy.Auth{User: t.Username, Password: t.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", addr, auth, &net.Dialer{Timeout: timeout})
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
				return dialer.Dial(network, address)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", t.Scheme)
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
