package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

func TestAuthFileCurrentAccountID(t *testing.T) {
	path := writeConfig(t, "auth.json", `{"OPENAI_API_KEY":null,"tokens":{"id_token":"x","access_token":"tok","refresh_token":"r","account_id":"acct-1"},"last_refresh":"2026-02-10T00:00:00Z"}`)

	auth := NewAuthFile(path)
	id, err := auth.CurrentAccountID()
	require.NoError(t, err)
	assert.Equal(t, "acct-1", id)

	tokens, err := auth.Tokens()
	require.NoError(t, err)
	assert.Equal(t, "tok", tokens.AccessToken)
}

func TestAuthFileWithoutAccount(t *testing.T) {
	path := writeConfig(t, "auth.json", `{"OPENAI_API_KEY":"sk-test"}`)

	_, err := NewAuthFile(path).CurrentAccountID()
	assert.ErrorIs(t, err, core.ErrNoCurrentAccount)

	tokens, err := NewAuthFile(path).Tokens()
	require.NoError(t, err)
	assert.Empty(t, tokens.AccessToken)
}

func TestAuthFileMissing(t *testing.T) {
	_, err := NewAuthFile(filepath.Join(t.TempDir(), "auth.json")).CurrentAccountID()
	assert.ErrorIs(t, err, core.ErrNoCurrentAccount)
}

func TestAuthFileMalformed(t *testing.T) {
	path := writeConfig(t, "auth.json", `{"tokens":`)
	_, err := NewAuthFile(path).Tokens()
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNoCurrentAccount)
}
