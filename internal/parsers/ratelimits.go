package parsers

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

const (
	fiveHourMaxMinutes = 360
	weeklyMinMinutes   = 10080
)

var (
	usedPercentFields = []string{"used_percent", "usedPercent"}
	limitFields       = []string{"limit", "total", "capacity"}
	resetFields       = []string{"reset_at_ms", "resets_at_ms", "reset_time_ms", "reset_at", "resets_at", "reset"}
	resetInFields     = []string{"reset_in_seconds", "reset_after_seconds", "reset_in"}
)

// WindowPair is the five-hour and weekly windows extracted from one
// rate-limit object.
type WindowPair struct {
	FiveHour core.RateLimitWindow
	Weekly   core.RateLimitWindow
}

type limitKind int

const (
	kindUnknown limitKind = iota
	kindFiveHour
	kindWeekly
)

// shapeAttempt tries one known rate-limit layout. ok is false when the
// layout does not apply to the value at all.
type shapeAttempt func(value gjson.Result, now time.Time) (pair WindowPair, ok bool, err error)

// Tried in order; append new layouts here as the log schema evolves.
var rateLimitShapes = []shapeAttempt{
	structuredPair("primary", "secondary"),
	structuredPair("primary_window", "secondary_window"),
	genericList,
}

// ParseRateLimits extracts the five-hour and weekly windows from a
// rate-limit object using the tolerant layouts above.
func ParseRateLimits(value gjson.Result, now time.Time) (WindowPair, error) {
	for _, attempt := range rateLimitShapes {
		pair, ok, err := attempt(value, now)
		if err != nil {
			return WindowPair{}, err
		}
		if ok {
			return pair, nil
		}
	}
	return WindowPair{}, fmt.Errorf("%w: missing rate_limit entries", core.ErrMissingRateLimitData)
}

func structuredPair(primaryKey, secondaryKey string) shapeAttempt {
	return func(value gjson.Result, now time.Time) (WindowPair, bool, error) {
		primary := value.Get(primaryKey)
		secondary := value.Get(secondaryKey)
		if !primary.Exists() || !secondary.Exists() {
			return WindowPair{}, false, nil
		}

		five, err := ParseWindow(primary, now)
		if err != nil {
			return WindowPair{}, true, fmt.Errorf("%s: %w", primaryKey, err)
		}
		weekly, err := ParseWindow(secondary, now)
		if err != nil {
			return WindowPair{}, true, fmt.Errorf("%s: %w", secondaryKey, err)
		}
		return WindowPair{FiveHour: five, Weekly: weekly}, true, nil
	}
}

func genericList(value gjson.Result, now time.Time) (WindowPair, bool, error) {
	entries, ok := limitEntries(value)
	if !ok {
		return WindowPair{}, false, nil
	}

	var five, weekly *core.RateLimitWindow
	for i, entry := range entries {
		parsed, err := ParseWindow(entry, now)
		if err != nil {
			return WindowPair{}, true, fmt.Errorf("limits[%d]: %w", i, err)
		}

		switch detectLimitKind(entry, parsed.WindowMinutes) {
		case kindFiveHour:
			five = &parsed
		case kindWeekly:
			weekly = &parsed
		default:
			if five == nil {
				five = &parsed
			} else if weekly == nil {
				weekly = &parsed
			}
		}
	}

	if five == nil || weekly == nil {
		return WindowPair{}, true, core.ErrMissingRateLimitData
	}
	return WindowPair{FiveHour: *five, Weekly: *weekly}, true, nil
}

func limitEntries(value gjson.Result) ([]gjson.Result, bool) {
	if limits := value.Get("limits"); limits.IsArray() {
		return limits.Array(), true
	}
	if value.IsArray() {
		return value.Array(), true
	}
	return nil, false
}

func detectLimitKind(entry gjson.Result, windowMinutes *int) limitKind {
	label := entry.Get("type")
	if label.Type != gjson.String {
		label = entry.Get("name")
	}
	if label.Type == gjson.String {
		lower := strings.ToLower(label.Str)
		if strings.Contains(lower, "week") {
			return kindWeekly
		}
		if strings.Contains(lower, "five") || strings.Contains(lower, "5h") || strings.Contains(lower, "hour") {
			return kindFiveHour
		}
	}

	if windowMinutes != nil {
		if *windowMinutes <= fiveHourMaxMinutes {
			return kindFiveHour
		}
		if *windowMinutes >= weeklyMinMinutes {
			return kindWeekly
		}
	}
	return kindUnknown
}

// ParseOptionalWindow reads a single auxiliary window (such as the code
// review limit). Any failure yields nil.
func ParseOptionalWindow(value gjson.Result, now time.Time) *core.RateLimitWindow {
	candidate := value
	switch {
	case value.Get("primary").Exists():
		candidate = value.Get("primary")
	case value.Get("primary_window").Exists():
		candidate = value.Get("primary_window")
	case value.Get("limits").IsArray():
		candidate = value.Get("limits.0")
	case value.IsArray():
		candidate = value.Get("0")
	}

	if !candidate.Exists() {
		return nil
	}
	window, err := ParseWindow(candidate, now)
	if err != nil {
		return nil
	}
	return &window
}

// ParseWindow converts one loosely-shaped window object into a
// RateLimitWindow. The percentage is clamped; the reset time is validated.
func ParseWindow(value gjson.Result, now time.Time) (core.RateLimitWindow, error) {
	percentLeft, err := percentLeftOf(value)
	if err != nil {
		return core.RateLimitWindow{}, err
	}

	rawReset, ok := resetTimeOf(value, now)
	if !ok {
		return core.RateLimitWindow{}, core.ErrMissingResetTimestamp
	}
	resetMs, err := NormalizeTimestamp(rawReset)
	if err != nil {
		return core.RateLimitWindow{}, err
	}

	return core.RateLimitWindow{
		PercentLeft:   ClampPercent(percentLeft),
		ResetTimeMs:   resetMs,
		WindowMinutes: windowMinutesOf(value),
	}, nil
}

func percentLeftOf(value gjson.Result) (float64, error) {
	if usedPercent, ok := CoerceFloat(firstPresent(value, usedPercentFields)); ok {
		return 100 - normalizeUsedPercent(usedPercent), nil
	}

	limit, hasLimit := CoerceFloat(firstPresent(value, limitFields))

	if remaining, ok := CoerceFloat(value.Get("remaining")); ok && hasLimit {
		if limit <= 0 {
			return 0, fmt.Errorf("%w: %v", core.ErrInvalidLimit, limit)
		}
		return remaining / limit * 100, nil
	}

	if used, ok := CoerceFloat(value.Get("used")); ok && hasLimit {
		if limit <= 0 {
			return 0, fmt.Errorf("%w: %v", core.ErrInvalidLimit, limit)
		}
		return 100 - used/limit*100, nil
	}

	return 0, core.ErrMissingUsageFields
}

// normalizeUsedPercent treats fractional values at or below 1 as a 0-1
// ratio. Whole numbers, including exactly 1, are percentages already.
func normalizeUsedPercent(v float64) float64 {
	if v <= 1.0 && v != math.Trunc(v) {
		return v * 100
	}
	return v
}

func resetTimeOf(value gjson.Result, now time.Time) (int64, bool) {
	for _, field := range resetFields {
		if raw, ok := CoerceInt(value.Get(field)); ok {
			return raw, true
		}
	}

	nowMs := now.UnixMilli()
	for _, field := range resetInFields {
		if seconds, ok := CoerceInt(value.Get(field)); ok {
			if seconds > (math.MaxInt64-nowMs)/1000 {
				return math.MaxInt64, true
			}
			if seconds < -nowMs/1000 {
				return 0, true
			}
			return nowMs + seconds*1000, true
		}
	}
	return 0, false
}

func windowMinutesOf(value gjson.Result) *int {
	if minutes, ok := CoerceInt(value.Get("window_minutes")); ok && minutes >= 0 {
		m := int(minutes)
		return &m
	}
	for _, field := range []string{"window_seconds", "limit_window_seconds"} {
		if seconds, ok := CoerceInt(value.Get(field)); ok && seconds >= 0 {
			m := int(seconds / 60)
			return &m
		}
	}
	return nil
}

// firstPresent returns the first field that exists on value, even when its
// content is not usable. Later aliases are not consulted in that case.
func firstPresent(value gjson.Result, fields []string) gjson.Result {
	for _, field := range fields {
		if v := value.Get(field); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
