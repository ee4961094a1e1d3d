package bindings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

const (
	DocumentVersion       = "1.0.0"
	MaxBindingsPerAccount = 200
)

// Document is the on-disk layout of the bindings file.
type Document struct {
	Version  string                           `json:"version"`
	Bindings map[string][]core.SessionBinding `json:"bindings"`
}

func emptyDocument() Document {
	return Document{Version: DocumentVersion, Bindings: make(map[string][]core.SessionBinding)}
}

// Store persists account to session-file bindings in a single JSON file.
// Every operation is a full load, modify, save cycle under mu. Other
// processes writing the same file are not coordinated with.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// RecordBinding adds or replaces (by session id or file path) a binding
// for accountID.
// A session id or file path already bound to a different account is a
// conflict and leaves the file untouched.
func (s *Store) RecordBinding(accountID string, b core.SessionBinding) error {
	if accountID == "" {
		return core.ErrMissingAccountID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for owner, entries := range doc.Bindings {
		if owner == accountID {
			continue
		}
		if lo.ContainsBy(entries, func(e core.SessionBinding) bool {
			return e.SessionID == b.SessionID || e.FilePath == b.FilePath
		}) {
			return fmt.Errorf("%w: %s is bound to %s", core.ErrSessionAlreadyBoundElsewhere, b.FilePath, owner)
		}
	}

	// A file first bound before its session_meta was written is keyed by
	// path; the later bind under the real id replaces it.
	entries := lo.Reject(doc.Bindings[accountID], func(e core.SessionBinding, _ int) bool {
		return e.SessionID == b.SessionID || e.FilePath == b.FilePath
	})
	entries = append(entries, b)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt != entries[j].CreatedAt {
			return entries[i].CreatedAt < entries[j].CreatedAt
		}
		return entries[i].BoundAt < entries[j].BoundAt
	})
	if len(entries) > MaxBindingsPerAccount {
		entries = entries[len(entries)-MaxBindingsPerAccount:]
	}
	doc.Bindings[accountID] = entries

	return s.save(doc)
}

// LatestBoundFile returns the bound file with the newest modification time.
// Entries whose file no longer exists are skipped.
func (s *Store) LatestBoundFile(accountID string) (string, error) {
	entries, err := s.Bindings(accountID)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: %s", core.ErrNoBindingsForAccount, accountID)
	}

	var (
		best     string
		bestTime int64
	)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		info, err := os.Stat(e.FilePath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if mt := info.ModTime().UnixNano(); best == "" || mt > bestTime {
			best, bestTime = e.FilePath, mt
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: %s", core.ErrNoValidBoundFiles, accountID)
	}
	return best, nil
}

// Bindings returns a copy of the entries recorded for accountID, oldest first.
func (s *Store) Bindings(accountID string) ([]core.SessionBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]core.SessionBinding(nil), doc.Bindings[accountID]...), nil
}

func (s *Store) Document() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyDocument(), nil
		}
		return Document{}, fmt.Errorf("reading bindings: %w", err)
	}

	doc := emptyDocument()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing bindings %s: %w", s.path, err)
	}
	if doc.Bindings == nil {
		doc.Bindings = make(map[string][]core.SessionBinding)
	}
	if doc.Version == "" {
		doc.Version = DocumentVersion
	}
	return doc, nil
}

func (s *Store) save(doc Document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating bindings dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling bindings: %w", err)
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing bindings tmp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming bindings tmp file: %w", err)
	}
	return nil
}
