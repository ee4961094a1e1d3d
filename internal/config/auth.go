package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

// Tokens is the token block of the Codex auth.json file.
type Tokens struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
}

type authDocument struct {
	Tokens *Tokens `json:"tokens"`
}

// AuthFile reads the signed-in account from the Codex auth.json file. The
// file is re-read on every call since the CLI rewrites it on login.
type AuthFile struct {
	Path string
}

func NewAuthFile(path string) *AuthFile {
	return &AuthFile{Path: path}
}

// Tokens returns the token block; a file without one yields zero Tokens.
func (a *AuthFile) Tokens() (Tokens, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Tokens{}, fmt.Errorf("%w: %s not found", core.ErrNoCurrentAccount, a.Path)
		}
		return Tokens{}, fmt.Errorf("reading auth file: %w", err)
	}

	var doc authDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Tokens{}, fmt.Errorf("parsing auth file %s: %w", a.Path, err)
	}
	if doc.Tokens == nil {
		return Tokens{}, nil
	}
	return *doc.Tokens, nil
}

func (a *AuthFile) CurrentAccountID() (string, error) {
	tokens, err := a.Tokens()
	if err != nil {
		return "", err
	}
	if tokens.AccountID == "" {
		return "", fmt.Errorf("%w: missing account_id in %s", core.ErrNoCurrentAccount, a.Path)
	}
	return tokens.AccountID, nil
}
