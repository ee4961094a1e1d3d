package sessions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	metaLine   = `{"timestamp":"2026-02-10T00:00:01Z","type":"session_meta","payload":{"id":"sess-1","timestamp":"2026-02-10T00:00:01.000Z","cwd":"/tmp"}}`
	firstPair  = `{"type":"token_count","payload":{"rate_limits":{"primary":{"used_percent":10,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":50,"window_minutes":10080,"resets_at":1700500000}}}}`
	secondPair = `{"type":"token_count","payload":{"rate_limits":{"primary":{"used_percent":20,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":50,"window_minutes":10080,"resets_at":1700500000}}}}`
)

func writeSession(t *testing.T, path string, mtime time.Time, lines ...string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	return path
}
