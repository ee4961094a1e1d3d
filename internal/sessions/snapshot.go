package sessions

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/parsers"
)

const DefaultRecentFiles = 20

// ParseLatestSnapshot streams a session file and returns the last valid
// rate-limit reading in it. Later events supersede earlier ones; lines that
// do not carry a reading are ignored.
func ParseLatestSnapshot(path string) (core.UsageSnapshot, error) {
	var latest *parsers.WindowPair
	err := ScanJSONL(path, func(line []byte) bool {
		if pair, ok := parsers.ParseLegacyLine(line); ok {
			latest = &pair
		}
		return true
	})
	if err != nil {
		return core.UsageSnapshot{}, err
	}
	if latest == nil {
		return core.UsageSnapshot{}, fmt.Errorf("%w: %s", core.ErrNoRateLimitsFound, path)
	}
	return snapshotFromPair(path, *latest), nil
}

// ScanForAccount looks through the recentN most recently modified session
// files for one that both mentions email inside a session_meta or
// turn_context event and carries a valid rate-limit reading.
func ScanForAccount(root, email string, recentN int) (core.UsageSnapshot, error) {
	files, err := ListSessionFiles(root)
	if err != nil {
		return core.UsageSnapshot{}, err
	}
	if recentN <= 0 {
		recentN = DefaultRecentFiles
	}
	if len(files) > recentN {
		files = files[:recentN]
	}

	for _, file := range files {
		pair, matched := scanAccountFile(file.Path, email)
		if matched && pair != nil {
			return snapshotFromPair(file.Path, *pair), nil
		}
	}
	return core.UsageSnapshot{}, fmt.Errorf("%w: %s", core.ErrNoUsageForAccount, email)
}

func scanAccountFile(path, email string) (*parsers.WindowPair, bool) {
	var latest *parsers.WindowPair
	matched := false

	err := ScanJSONL(path, func(line []byte) bool {
		if !matched && email != "" && mentionsAccount(line, email) {
			matched = true
		}
		if pair, ok := parsers.ParseLegacyLine(line); ok {
			latest = &pair
		}
		return true
	})
	if err != nil {
		return nil, false
	}
	return latest, matched
}

// mentionsAccount only looks inside session_meta and turn_context events;
// other events routinely echo arbitrary user content.
func mentionsAccount(line []byte, email string) bool {
	eventType := gjson.GetBytes(line, "type").String()
	if eventType != "session_meta" && eventType != "turn_context" {
		return false
	}
	if !gjson.ValidBytes(line) {
		return false
	}
	return containsString(gjson.ParseBytes(line), email)
}

func containsString(value gjson.Result, needle string) bool {
	switch {
	case value.Type == gjson.String:
		return value.Str == needle
	case value.IsArray() || value.IsObject():
		found := false
		value.ForEach(func(_, v gjson.Result) bool {
			found = containsString(v, needle)
			return !found
		})
		return found
	}
	return false
}

type SessionMeta struct {
	ID        string
	CreatedAt string
}

// ReadSessionMeta returns the id and start time recorded by the first
// session_meta event of a session file.
func ReadSessionMeta(path string) (SessionMeta, error) {
	var (
		meta    SessionMeta
		metaErr error
		found   bool
	)

	err := ScanJSONL(path, func(line []byte) bool {
		if gjson.GetBytes(line, "type").String() != "session_meta" || !gjson.ValidBytes(line) {
			return true
		}
		found = true

		payload := gjson.GetBytes(line, "payload")
		if !payload.Exists() {
			metaErr = fmt.Errorf("%w: missing session payload", core.ErrNoSessionMeta)
			return false
		}
		id := payload.Get("id")
		if id.Type != gjson.String {
			metaErr = fmt.Errorf("%w: missing session id", core.ErrNoSessionMeta)
			return false
		}

		meta.ID = id.Str
		if ts := payload.Get("timestamp"); ts.Type == gjson.String {
			meta.CreatedAt = ts.Str
		}
		return false
	})
	if err != nil {
		return SessionMeta{}, err
	}
	if metaErr != nil {
		return SessionMeta{}, metaErr
	}
	if !found {
		return SessionMeta{}, fmt.Errorf("%w in %s", core.ErrNoSessionMeta, path)
	}
	return meta, nil
}

func snapshotFromPair(path string, pair parsers.WindowPair) core.UsageSnapshot {
	return core.UsageSnapshot{
		FiveHour:      pair.FiveHour,
		Weekly:        pair.Weekly,
		LastUpdatedMs: modTimeMillis(path),
		SourceFile:    path,
	}
}

func modTimeMillis(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return core.NowMillis()
	}
	return info.ModTime().UnixMilli()
}
