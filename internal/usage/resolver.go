// Package usage answers "how much quota is left" from local session logs.
package usage

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/janekbaraniewski/codexusage/internal/bindings"
	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/sessions"
)

type Resolver struct {
	sessionsDir string
	recentFiles int
	store       *bindings.Store
	cache       *sessions.SnapshotCache
	log         zerolog.Logger
}

type Options struct {
	SessionsDir string
	RecentFiles int
	Store       *bindings.Store
	Cache       *sessions.SnapshotCache
	Logger      zerolog.Logger
}

func NewResolver(opts Options) *Resolver {
	return &Resolver{
		sessionsDir: opts.SessionsDir,
		recentFiles: opts.RecentFiles,
		store:       opts.Store,
		cache:       opts.Cache,
		log:         opts.Logger,
	}
}

// Latest returns the snapshot from the most recently modified session file.
func (r *Resolver) Latest() (core.UsageSnapshot, error) {
	path, err := sessions.FindLatestSessionFile(r.sessionsDir)
	if err != nil {
		return core.UsageSnapshot{}, err
	}
	return r.cache.Snapshot(path)
}

// ForAccount prefers the files bound to accountID. When no bound file is
// usable and an email is known, it falls back to scanning recent session
// files for one that mentions the email.
func (r *Resolver) ForAccount(accountID, email string) (core.UsageSnapshot, error) {
	if accountID == "" && email == "" {
		return core.UsageSnapshot{}, core.ErrMissingAccountID
	}

	if accountID != "" && r.store != nil {
		path, err := r.store.LatestBoundFile(accountID)
		if err == nil {
			return r.cache.Snapshot(path)
		}
		if email == "" || !fallsBack(err) {
			return core.UsageSnapshot{}, err
		}
		r.log.Debug().Err(err).Str("account", accountID).Msg("no usable binding, scanning sessions")
	}

	if email == "" {
		return core.UsageSnapshot{}, fmt.Errorf("%w: %s", core.ErrNoBindingsForAccount, accountID)
	}
	return sessions.ScanForAccount(r.sessionsDir, email, r.recentFiles)
}

// FromFile parses one explicitly named session file.
func (r *Resolver) FromFile(path string) (core.UsageSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return core.UsageSnapshot{}, fmt.Errorf("%w: %s", core.ErrUsageFileNotFound, path)
	}
	return r.cache.Snapshot(path)
}

func fallsBack(err error) bool {
	return errors.Is(err, core.ErrNoBindingsForAccount) || errors.Is(err, core.ErrNoValidBoundFiles)
}
