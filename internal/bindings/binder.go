package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/sessions"
)

// AccountSource reports which account is currently signed in.
type AccountSource interface {
	CurrentAccountID() (string, error)
}

// Binder turns a session file into a binding for an account.
type Binder struct {
	store    *Store
	accounts AccountSource
	now      func() time.Time
}

func NewBinder(store *Store, accounts AccountSource) *Binder {
	return &Binder{store: store, accounts: accounts, now: time.Now}
}

// BindToCurrentAccount binds path to whichever account is signed in now
// and returns that account's id with the recorded binding.
func (b *Binder) BindToCurrentAccount(path string) (string, core.SessionBinding, error) {
	if b.accounts == nil {
		return "", core.SessionBinding{}, core.ErrNoCurrentAccount
	}
	accountID, err := b.accounts.CurrentAccountID()
	if err != nil {
		return "", core.SessionBinding{}, err
	}
	if accountID == "" {
		return "", core.SessionBinding{}, core.ErrNoCurrentAccount
	}
	binding, err := b.BindFile(accountID, path)
	if err != nil {
		return "", core.SessionBinding{}, err
	}
	return accountID, binding, nil
}

// BindFile records path under accountID. Files without a session_meta
// event are keyed by their absolute path and modification time.
func (b *Binder) BindFile(accountID, path string) (core.SessionBinding, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return core.SessionBinding{}, fmt.Errorf("resolving %s: %w", path, err)
	}

	binding, err := b.bindingFor(abs)
	if err != nil {
		return core.SessionBinding{}, err
	}
	if err := b.store.RecordBinding(accountID, binding); err != nil {
		return core.SessionBinding{}, err
	}
	return binding, nil
}

func (b *Binder) bindingFor(abs string) (core.SessionBinding, error) {
	binding := core.SessionBinding{
		FilePath: abs,
		BoundAt:  strconv.FormatInt(b.now().UnixMilli(), 10),
	}

	meta, err := sessions.ReadSessionMeta(abs)
	switch {
	case err == nil:
		binding.SessionID = meta.ID
		binding.CreatedAt = meta.CreatedAt
		return binding, nil
	case !errors.Is(err, core.ErrNoSessionMeta):
		return core.SessionBinding{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return core.SessionBinding{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	binding.SessionID = abs
	binding.CreatedAt = strconv.FormatInt(info.ModTime().Unix(), 10)
	return binding, nil
}
