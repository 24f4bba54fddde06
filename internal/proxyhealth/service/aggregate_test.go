package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow_backend/internal/proxyhealth/domain"
	"leadflow_backend/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var proxyX = domain.ProxyKey{Host: "10.0.0.1", Port: 8080}

func signals(key domain.ProxyKey, outcomes ...domain.SignalOutcome) []domain.SignalEntry {
	entries := make([]domain.SignalEntry, 0, len(outcomes))
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, o := range outcomes {
		entries = append(entries, domain.SignalEntry{Proxy: key, Outcome: o, OccurredAt: at.Add(time.Duration(i) * time.Minute)})
	}
	return entries
}

func repeat(o domain.SignalOutcome, n int) []domain.SignalOutcome {
	out := make([]domain.SignalOutcome, n)
	for i := range out {
		out[i] = o
	}
	return out
}

func TestAggregateCountsBannedSeparately(t *testing.T) {
	counts := tallySignals(signals(proxyX,
		domain.SignalSuccess, domain.SignalSuccess, domain.SignalFailed, domain.SignalBanned))

	report := Aggregate(counts, nil, DefaultPolicy())

	require.Len(t, report.Proxies, 1)
	p := report.Proxies[0]
	assert.Equal(t, int64(4), p.Attempts)
	assert.InDelta(t, 0.5, p.SuccessRate, 1e-9)
	assert.Equal(t, int64(1), p.Banned)
	assert.Equal(t, int64(1), p.Failed)
	assert.Equal(t, ClassUnhealthy, p.Class)

	assert.Equal(t, int64(2), report.Failures)
	assert.Equal(t, int64(1), report.Failed)
	assert.Equal(t, int64(1), report.Banned)
	assert.InDelta(t, 50.0, report.HealthPercentage, 1e-9)
}

func TestClassificationBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		successes int
		failures  int
		want      Class
	}{
		{"exactly 80 percent", 8, 2, ClassHealthy},
		{"exactly 60 percent", 6, 4, ClassDegraded},
		{"79 percent", 79, 21, ClassDegraded},
		{"59 percent", 59, 41, ClassUnhealthy},
		{"all success", 5, 0, ClassHealthy},
		{"all failure", 0, 5, ClassUnhealthy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcomes := append(repeat(domain.SignalSuccess, tc.successes), repeat(domain.SignalTimeout, tc.failures)...)
			report := Aggregate(tallySignals(signals(proxyX, outcomes...)), nil, DefaultPolicy())
			require.Len(t, report.Proxies, 1)
			assert.Equal(t, tc.want, report.Proxies[0].Class)
		})
	}
}

func TestAggregateNoAttemptsIsUnknown(t *testing.T) {
	counts := tallySignals(signals(proxyX, domain.SignalPending, domain.SignalPending))

	report := Aggregate(counts, nil, DefaultPolicy())

	require.Len(t, report.Proxies, 1)
	assert.Equal(t, ClassUnknown, report.Proxies[0].Class)
	assert.Equal(t, int64(0), report.Proxies[0].Attempts)
	assert.Equal(t, int64(2), report.Proxies[0].Pending)
	assert.Equal(t, 1, report.Classes[ClassUnknown])
	assert.Empty(t, report.TopPerformers)
}

func TestHealChecksDoNotChangeSuccessRate(t *testing.T) {
	counts := tallySignals(signals(proxyX, domain.SignalSuccess, domain.SignalFailed))
	without := Aggregate(counts, nil, DefaultPolicy())

	heals := tallyHealChecks([]domain.HealCheckEntry{
		{Proxy: proxyX, Outcome: domain.HealCheckSuccess, DurationMs: 100},
		{Proxy: proxyX, Outcome: domain.HealCheckSuccess, DurationMs: 300},
		{Proxy: proxyX, Outcome: domain.HealCheckSuccess, DurationMs: 200},
	})
	with := Aggregate(counts, heals, DefaultPolicy())

	require.Len(t, with.Proxies, 1)
	assert.Equal(t, without.Proxies[0].SuccessRate, with.Proxies[0].SuccessRate)
	assert.Equal(t, without.Proxies[0].Attempts, with.Proxies[0].Attempts)
	assert.Equal(t, without.Attempts, with.Attempts)

	require.NotNil(t, with.Proxies[0].HealCheck)
	assert.Equal(t, int64(3), with.Proxies[0].HealCheck.Total)
	assert.InDelta(t, 1.0, with.Proxies[0].HealCheck.SuccessRate, 1e-9)
	require.NotNil(t, with.Proxies[0].HealCheck.AvgDurationMs)
	assert.InDelta(t, 200.0, *with.Proxies[0].HealCheck.AvgDurationMs, 1e-9)
}

func TestHealCheckOnlyProxyIsUnknown(t *testing.T) {
	heals := tallyHealChecks([]domain.HealCheckEntry{{Proxy: proxyX, Outcome: domain.HealCheckFailed}})

	report := Aggregate(nil, heals, DefaultPolicy())

	require.Len(t, report.Proxies, 1)
	assert.Equal(t, ClassUnknown, report.Proxies[0].Class)
	assert.Equal(t, int64(0), report.Attempts)
}

func TestTopPerformersOrdering(t *testing.T) {
	a := domain.ProxyKey{Host: "a", Port: 1}
	b := domain.ProxyKey{Host: "b", Port: 1}
	c := domain.ProxyKey{Host: "c", Port: 1}
	d := domain.ProxyKey{Host: "d", Port: 1}

	// a is at 50%; b, c and d are at 100% with c carrying the most volume.
	var entries []domain.SignalEntry
	entries = append(entries, signals(a, domain.SignalSuccess, domain.SignalFailed)...)
	entries = append(entries, signals(b, domain.SignalSuccess, domain.SignalSuccess)...)
	entries = append(entries, signals(c, domain.SignalSuccess, domain.SignalSuccess, domain.SignalSuccess)...)
	entries = append(entries, signals(d, domain.SignalSuccess, domain.SignalSuccess)...)

	report := Aggregate(tallySignals(entries), nil, DefaultPolicy())

	require.Len(t, report.TopPerformers, 3)
	assert.Equal(t, "c", report.TopPerformers[0].Host)
	assert.Equal(t, "b", report.TopPerformers[1].Host)
	assert.Equal(t, "d", report.TopPerformers[2].Host)
	assert.Equal(t, 3, report.Classes[ClassHealthy])
	assert.Equal(t, 1, report.Classes[ClassUnhealthy])
}

type fakeReader struct {
	signals   []domain.SignalCounts
	heals     []domain.HealCheckCounts
	signalErr error
	healErr   error
	lastSince time.Time
}

func (f *fakeReader) CountSignalsByProxy(ctx context.Context, since time.Time) ([]domain.SignalCounts, error) {
	f.lastSince = since
	return f.signals, f.signalErr
}

func (f *fakeReader) CountHealChecksByProxy(ctx context.Context, since time.Time) ([]domain.HealCheckCounts, error) {
	return f.heals, f.healErr
}

func TestPoolHealthUnavailableWhenEitherStreamFails(t *testing.T) {
	for name, reader := range map[string]*fakeReader{
		"signals":     {signalErr: errors.New("relation does not exist")},
		"heal checks": {healErr: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewAggregator(reader, DefaultPolicy(), nil).PoolHealth(context.Background(), time.Hour)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindUnavailable))
		})
	}
}

func TestPoolHealthQuietPoolIsNotAnError(t *testing.T) {
	report, err := NewAggregator(&fakeReader{}, DefaultPolicy(), nil).PoolHealth(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, "all", report.Window)
	assert.Equal(t, 0, report.ProxyCount)
	assert.NotNil(t, report.Proxies)
}

func TestPoolHealthAppliesWindow(t *testing.T) {
	reader := &fakeReader{}
	agg := NewAggregator(reader, DefaultPolicy(), nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }

	report, err := agg.PoolHealth(context.Background(), 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), reader.lastSince)
	assert.Equal(t, "24h0m0s", report.Window)
}

func TestProxyHealthUnknownProxy(t *testing.T) {
	agg := NewAggregator(&fakeReader{signals: tallySignals(signals(proxyX, domain.SignalSuccess))}, DefaultPolicy(), nil)

	report, err := agg.ProxyHealth(context.Background(), domain.ProxyKey{Host: "other", Port: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, ClassUnknown, report.Class)

	report, err = agg.ProxyHealth(context.Background(), proxyX, 0)
	require.NoError(t, err)
	assert.Equal(t, ClassHealthy, report.Class)
}

type fakeWriter struct {
	signals []domain.SignalEntry
	heals   []domain.HealCheckEntry
}

func (f *fakeWriter) AppendSignal(ctx context.Context, e domain.SignalEntry) (domain.SignalEntry, error) {
	f.signals = append(f.signals, e)
	return e, nil
}

func (f *fakeWriter) AppendHealCheck(ctx context.Context, e domain.HealCheckEntry) (domain.HealCheckEntry, error) {
	f.heals = append(f.heals, e)
	return e, nil
}

func TestRecorderValidates(t *testing.T) {
	w := &fakeWriter{}
	rec := NewRecorder(w)
	ctx := context.Background()

	_, err := rec.RecordSignal(ctx, domain.SignalEntry{Proxy: proxyX, Outcome: "exploded"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = rec.RecordSignal(ctx, domain.SignalEntry{Proxy: domain.ProxyKey{Host: "h", Port: 0}, Outcome: domain.SignalSuccess})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = rec.RecordHealCheck(ctx, domain.HealCheckEntry{Proxy: proxyX, Outcome: domain.HealCheckSuccess, DurationMs: -1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	saved, err := rec.RecordSignal(ctx, domain.SignalEntry{Proxy: domain.ProxyKey{Host: " Proxy.Example.COM ", Port: 3128}, Outcome: domain.SignalBanned})
	require.NoError(t, err)
	assert.Equal(t, "proxy.example.com", saved.Proxy.Host)
	assert.False(t, saved.OccurredAt.IsZero())
	assert.Len(t, w.signals, 1)
	assert.Empty(t, w.heals)
}
