package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janekbaraniewski/codexusage/internal/bindings"
	"github.com/janekbaraniewski/codexusage/internal/core"
)

const sessionFixture = `{"type":"session_meta","payload":{"id":"sess-1","timestamp":"2026-02-10T08:00:00Z"}}
{"type":"token_count","payload":{"rate_limits":{"primary":{"used_percent":10,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":50,"window_minutes":10080,"resets_at":1700500000}}}}
{"type":"token_count","payload":{"rate_limits":{"primary":{"used_percent":20,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":50,"window_minutes":10080,"resets_at":1700500000}}}}
`

type testEnv struct {
	configPath  string
	sessionFile string
	bindings    string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	codexHome := filepath.Join(dir, "codex")
	session := filepath.Join(codexHome, "sessions", "2026", "02", "10", "rollout.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(session), 0o755))
	require.NoError(t, os.WriteFile(session, []byte(sessionFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(codexHome, "auth.json"),
		[]byte(`{"tokens":{"access_token":"tok","account_id":"acct-1"}}`), 0o600))

	bindingsFile := filepath.Join(dir, "state", "usage-bindings.json")
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"codex_home: "+codexHome+"\nbindings_file: "+bindingsFile+"\nlog:\n  level: error\n"), 0o644))

	return testEnv{configPath: configPath, sessionFile: session, bindings: bindingsFile}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUsageJSON(t *testing.T) {
	env := newTestEnv(t)

	out, err := run(t, "--config", env.configPath, "usage", "--json")
	require.NoError(t, err)

	var snap core.UsageSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 80.0, snap.FiveHour.PercentLeft)
	assert.Equal(t, 50.0, snap.Weekly.PercentLeft)
	assert.Equal(t, env.sessionFile, snap.SourceFile)
}

func TestUsageRendered(t *testing.T) {
	env := newTestEnv(t)

	out, err := run(t, "--config", env.configPath, "usage", "--file", env.sessionFile)
	require.NoError(t, err)
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "Weekly")
}

func TestBindThenUsageForAccount(t *testing.T) {
	env := newTestEnv(t)

	out, err := run(t, "--config", env.configPath, "bind", env.sessionFile)
	require.NoError(t, err)
	assert.Contains(t, out, "sess-1")

	store := bindings.NewStore(env.bindings)
	latest, err := store.LatestBoundFile("acct-1")
	require.NoError(t, err)
	assert.Equal(t, env.sessionFile, latest)

	out, err = run(t, "--config", env.configPath, "usage", "--account", "acct-1", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"percent_left": 80`)

	out, err = run(t, "--config", env.configPath, "bindings", "list", "--account", "acct-1", "--json")
	require.NoError(t, err)
	var entries []core.SessionBinding
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-1", entries[0].SessionID)
}

func TestBindingsAddConflict(t *testing.T) {
	env := newTestEnv(t)

	_, err := run(t, "--config", env.configPath, "bindings", "add", "acct-a", env.sessionFile)
	require.NoError(t, err)

	_, err = run(t, "--config", env.configPath, "bindings", "add", "acct-b", env.sessionFile)
	assert.ErrorIs(t, err, core.ErrSessionAlreadyBoundElsewhere)
}

func TestUsageForUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := run(t, "--config", env.configPath, "usage", "--account", "nobody")
	assert.ErrorIs(t, err, core.ErrNoBindingsForAccount)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "codexusage dev")
}
