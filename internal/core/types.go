package core

import "time"

// RateLimitWindow is one quota window as reported by Codex.
type RateLimitWindow struct {
	PercentLeft   float64 `json:"percent_left"`
	ResetTimeMs   int64   `json:"reset_time_ms"`
	WindowMinutes *int    `json:"window_minutes,omitempty"`
}

func (w RateLimitWindow) ResetTime() time.Time {
	return time.UnixMilli(w.ResetTimeMs)
}

// UsageSnapshot is the answer to a usage query. It is built fresh on every
// query and never persisted.
type UsageSnapshot struct {
	FiveHour      RateLimitWindow  `json:"five_hour"`
	Weekly        RateLimitWindow  `json:"weekly"`
	CodeReview    *RateLimitWindow `json:"code_review,omitempty"`
	LastUpdatedMs int64            `json:"last_updated_ms"`
	SourceFile    string           `json:"source_file,omitempty"`
}

func (s UsageSnapshot) LastUpdated() time.Time {
	return time.UnixMilli(s.LastUpdatedMs)
}

// SessionBinding links one session log file to the account that owns it.
// CreatedAt and BoundAt are kept as strings so that the persisted document
// sorts the same way regardless of which writer produced it.
type SessionBinding struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
	FilePath  string `json:"file_path"`
	BoundAt   string `json:"bound_at"`
}

func NowMillis() int64 {
	return time.Now().UnixMilli()
}
