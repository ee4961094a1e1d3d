package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

func TestGauge(t *testing.T) {
	out := Gauge(80, 10)
	assert.Contains(t, out, " 80.0%")
	assert.Equal(t, 10, strings.Count(out, "━"))

	assert.Contains(t, Gauge(150, 10), "100.0%")
	assert.Contains(t, Gauge(-1, 10), "  0.0%")
}

func TestGaugeColor(t *testing.T) {
	assert.Equal(t, colorOK, gaugeColor(80))
	assert.Equal(t, colorWarn, gaugeColor(20))
	assert.Equal(t, colorCrit, gaugeColor(5))
}

func TestResetIn(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "now", ResetIn(now.Add(-time.Minute), now))
	assert.Equal(t, "in 1m", ResetIn(now.Add(10*time.Second), now))
	assert.Equal(t, "in 42m", ResetIn(now.Add(42*time.Minute), now))
	assert.Equal(t, "in 3h 5m", ResetIn(now.Add(3*time.Hour+5*time.Minute), now))
	assert.Equal(t, "in 6d 2h", ResetIn(now.Add(6*24*time.Hour+2*time.Hour), now))
}

func TestSnapshot(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	snap := core.UsageSnapshot{
		FiveHour:      core.RateLimitWindow{PercentLeft: 80, ResetTimeMs: now.Add(2 * time.Hour).UnixMilli()},
		Weekly:        core.RateLimitWindow{PercentLeft: 50, ResetTimeMs: now.Add(72 * time.Hour).UnixMilli()},
		LastUpdatedMs: now.UnixMilli(),
		SourceFile:    "/tmp/rollout.jsonl",
	}

	out := Snapshot(snap, now)
	assert.Contains(t, out, "5h window")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "in 2h 0m")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "in 3d 0h")
	assert.Contains(t, out, "/tmp/rollout.jsonl")
	assert.NotContains(t, out, "Code review")

	snap.CodeReview = &core.RateLimitWindow{PercentLeft: 100, ResetTimeMs: now.UnixMilli()}
	assert.Contains(t, Snapshot(snap, now), "Code review")
}

func TestBindings(t *testing.T) {
	out := Bindings(map[string][]core.SessionBinding{
		"acct-a": {{SessionID: "s1", FilePath: "/x/a.jsonl"}, {SessionID: "s2", FilePath: "/x/b.jsonl"}},
	}, []string{"acct-a"})

	assert.Contains(t, out, "acct-a")
	assert.Contains(t, out, "(2)")
	assert.Contains(t, out, "/x/b.jsonl")

	assert.Contains(t, Bindings(nil, nil), "no bindings")
}
