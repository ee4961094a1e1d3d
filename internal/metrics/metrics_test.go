package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

func TestBindingResult(t *testing.T) {
	assert.Equal(t, ResultBound, BindingResult(nil))
	assert.Equal(t, ResultConflict, BindingResult(fmt.Errorf("x: %w", core.ErrSessionAlreadyBoundElsewhere)))
	assert.Equal(t, ResultNoAccount, BindingResult(core.ErrNoCurrentAccount))
	assert.Equal(t, ResultError, BindingResult(errors.New("disk full")))
}

func TestSinkCounts(t *testing.T) {
	events := testutil.ToFloat64(WatcherEvents)
	bound := testutil.ToFloat64(BindingsTotal.WithLabelValues(ResultBound))
	conflicts := testutil.ToFloat64(BindingsTotal.WithLabelValues(ResultConflict))

	var sink Sink
	sink.EventSeen("/tmp/a.jsonl")
	sink.EventSeen("/tmp/a.jsonl")
	sink.BindingRecorded(core.SessionBinding{SessionID: "s1"})
	sink.BindingFailed("/tmp/a.jsonl", core.ErrSessionAlreadyBoundElsewhere)

	assert.Equal(t, events+2, testutil.ToFloat64(WatcherEvents))
	assert.Equal(t, bound+1, testutil.ToFloat64(BindingsTotal.WithLabelValues(ResultBound)))
	assert.Equal(t, conflicts+1, testutil.ToFloat64(BindingsTotal.WithLabelValues(ResultConflict)))
}

func TestServerExposesMetrics(t *testing.T) {
	srv := NewServer("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, srv.Start())
	defer srv.Stop()

	WatcherEvents.Inc()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "codexusage_watcher_events_total")

	health, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestSinkUsageResolvedSetsGauges(t *testing.T) {
	var sink Sink
	sink.UsageResolved("acct-a", core.UsageSnapshot{
		FiveHour: core.RateLimitWindow{PercentLeft: 72.5, ResetTimeMs: 1770700000000},
		Weekly:   core.RateLimitWindow{PercentLeft: 40, ResetTimeMs: 1770934095000},
	})

	assert.Equal(t, 72.5, testutil.ToFloat64(PercentLeft.WithLabelValues(WindowFiveHour)))
	assert.Equal(t, 40.0, testutil.ToFloat64(PercentLeft.WithLabelValues(WindowWeekly)))
	assert.Equal(t, 1770700000.0, testutil.ToFloat64(ResetTime.WithLabelValues(WindowFiveHour)))
	assert.Equal(t, 1770934095.0, testutil.ToFloat64(ResetTime.WithLabelValues(WindowWeekly)))
}
