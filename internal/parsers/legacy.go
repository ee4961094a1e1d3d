package parsers

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

var rateLimitsMarker = []byte(`"rate_limits"`)

var errNotRateLimitEvent = errors.New("not a rate limit event")

var errMalformedEvent = errors.New("malformed event")

// ParseLegacyEvent decodes one session log line in the fixed
// payload.rate_limits.{primary,secondary} layout written by the CLI.
// Keys are matched exactly. Percentages must already be on the 0-100
// scale and are rejected, not clamped, when out of range.
func ParseLegacyEvent(line []byte) (WindowPair, error) {
	if !bytes.Contains(line, rateLimitsMarker) {
		return WindowPair{}, errNotRateLimitEvent
	}
	if !gjson.ValidBytes(line) {
		return WindowPair{}, fmt.Errorf("%w: invalid json", errMalformedEvent)
	}

	event := gjson.ParseBytes(line)
	if !event.IsObject() {
		return WindowPair{}, fmt.Errorf("%w: not an object", errMalformedEvent)
	}
	eventType := event.Get("type")
	if eventType.Type != gjson.String {
		return WindowPair{}, errNotRateLimitEvent
	}
	if eventType.Str != "event_msg" && eventType.Str != "token_count" {
		return WindowPair{}, errNotRateLimitEvent
	}

	payload := event.Get("payload")
	if !present(payload) {
		return WindowPair{}, errNotRateLimitEvent
	}
	if !payload.IsObject() {
		return WindowPair{}, fmt.Errorf("%w: payload is %s", errMalformedEvent, payload.Type)
	}

	rl := payload.Get("rate_limits")
	if !present(rl) {
		return WindowPair{}, errNotRateLimitEvent
	}
	if !rl.IsObject() {
		return WindowPair{}, fmt.Errorf("%w: rate_limits is %s", errMalformedEvent, rl.Type)
	}

	primary, secondary := rl.Get("primary"), rl.Get("secondary")
	if !present(primary) {
		return WindowPair{}, fmt.Errorf("%w: no primary rate limit", core.ErrMissingRateLimitData)
	}
	if !present(secondary) {
		return WindowPair{}, fmt.Errorf("%w: no secondary rate limit", core.ErrMissingRateLimitData)
	}

	five, err := legacyWindow(primary)
	if err != nil {
		return WindowPair{}, fmt.Errorf("primary: %w", err)
	}
	weekly, err := legacyWindow(secondary)
	if err != nil {
		return WindowPair{}, fmt.Errorf("secondary: %w", err)
	}
	return WindowPair{FiveHour: five, Weekly: weekly}, nil
}

// ParseLegacyLine reports whether line carries a valid legacy pair.
func ParseLegacyLine(line []byte) (WindowPair, bool) {
	pair, err := ParseLegacyEvent(line)
	return pair, err == nil
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

// Every field is required; a missing one disqualifies the event.
func legacyWindow(bucket gjson.Result) (core.RateLimitWindow, error) {
	if !bucket.IsObject() {
		return core.RateLimitWindow{}, fmt.Errorf("%w: bucket is %s", errMalformedEvent, bucket.Type)
	}
	usedField := bucket.Get("used_percent")
	minutesField := bucket.Get("window_minutes")
	resetsField := bucket.Get("resets_at")
	if !present(usedField) || !present(minutesField) || !present(resetsField) {
		return core.RateLimitWindow{}, core.ErrMissingUsageFields
	}

	if usedField.Type != gjson.Number {
		return core.RateLimitWindow{}, fmt.Errorf("%w: used_percent is %s", errMalformedEvent, usedField.Type)
	}
	minutes, err := strconv.ParseUint(minutesField.Raw, 10, 32)
	if err != nil || minutesField.Type != gjson.Number {
		return core.RateLimitWindow{}, fmt.Errorf("%w: window_minutes %s", errMalformedEvent, minutesField.Raw)
	}
	resetsAt, err := strconv.ParseInt(resetsField.Raw, 10, 64)
	if err != nil || resetsField.Type != gjson.Number {
		return core.RateLimitWindow{}, fmt.Errorf("%w: resets_at %s", errMalformedEvent, resetsField.Raw)
	}

	used, err := ValidatePercent(usedField.Num)
	if err != nil {
		return core.RateLimitWindow{}, err
	}
	resetMs, err := NormalizeTimestamp(resetsAt)
	if err != nil {
		return core.RateLimitWindow{}, err
	}

	window := int(minutes)
	return core.RateLimitWindow{
		PercentLeft:   100 - used,
		ResetTimeMs:   resetMs,
		WindowMinutes: &window,
	}, nil
}
