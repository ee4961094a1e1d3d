// Package watcher binds session files to the signed-in account as the
// CLI writes them.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/sessions"
)

// Binder records a session file under the signed-in account and reports
// which account that was.
type Binder interface {
	BindToCurrentAccount(path string) (string, core.SessionBinding, error)
}

// UsageSource resolves the current snapshot for an account.
type UsageSource interface {
	ForAccount(accountID, email string) (core.UsageSnapshot, error)
}

// Sink observes watcher activity. Implementations must not block.
type Sink interface {
	EventSeen(path string)
	BindingRecorded(b core.SessionBinding)
	BindingFailed(path string, err error)
	UsageResolved(accountID string, snap core.UsageSnapshot)
}

type nopSink struct{}

func (nopSink) EventSeen(string)                         {}
func (nopSink) BindingRecorded(core.SessionBinding)      {}
func (nopSink) BindingFailed(string, error)              {}
func (nopSink) UsageResolved(string, core.UsageSnapshot) {}

type Watcher struct {
	root   string
	binder Binder
	usage  UsageSource
	sink   Sink
	log    zerolog.Logger
}

// New creates a watcher over root. usage may be nil, in which case
// bindings are recorded but no snapshot is resolved.
func New(root string, binder Binder, usage UsageSource, sink Sink, logger zerolog.Logger) *Watcher {
	if sink == nil {
		sink = nopSink{}
	}
	return &Watcher{
		root:   root,
		binder: binder,
		usage:  usage,
		sink:   sink,
		log:    logger.With().Str("component", "watcher").Logger(),
	}
}

// Run watches the sessions tree until ctx is done. Binding failures never
// stop the loop; they are reported to the sink and logged at debug level.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", core.ErrNoSessionsDirectory, w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root, false); err != nil {
		return err
	}
	w.log.Info().Str("root", w.root).Msg("watching session files")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Debug().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// Files may land in a new day directory before it is watched.
			if err := w.addTree(fsw, ev.Name, true); err != nil {
				w.log.Debug().Err(err).Str("dir", ev.Name).Msg("failed to watch new directory")
			}
			return
		}
	}

	if sessions.IsSessionFile(ev.Name) {
		w.bind(ev.Name)
	}
}

func (w *Watcher) bind(path string) {
	w.sink.EventSeen(path)

	accountID, binding, err := w.binder.BindToCurrentAccount(path)
	if err != nil {
		w.sink.BindingFailed(path, err)
		w.log.Debug().Err(err).Str("file", path).Msg("session binding failed")
		return
	}
	w.sink.BindingRecorded(binding)
	w.log.Debug().Str("file", path).Str("session_id", binding.SessionID).Msg("session bound")

	if w.usage == nil {
		return
	}
	snap, err := w.usage.ForAccount(accountID, "")
	if err != nil {
		w.log.Debug().Err(err).Str("account", accountID).Msg("usage not resolved")
		return
	}
	w.sink.UsageResolved(accountID, snap)
}

// addTree watches dir and every directory below it. With bindExisting,
// session files already present are bound as well.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string, bindExisting bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				if path == dir {
					return fmt.Errorf("watching %s: %w", path, err)
				}
				w.log.Debug().Err(err).Str("dir", path).Msg("failed to watch directory")
			}
			return nil
		}
		if bindExisting && d.Type().IsRegular() && sessions.IsSessionFile(path) {
			w.bind(path)
		}
		return nil
	})
}
