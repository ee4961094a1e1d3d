package parsers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

const (
	MinValidEpochMs int64 = 946684800000  // 2000-01-01T00:00:00Z
	MaxValidEpochMs int64 = 4102444800000 // 2100-01-01T00:00:00Z

	millisThreshold int64 = 1_000_000_000_000
)

// NormalizeTimestamp converts a seconds or milliseconds epoch value into
// epoch milliseconds and rejects sentinel and out-of-range values.
func NormalizeTimestamp(raw int64) (int64, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: %d", core.ErrInvalidTimestamp, raw)
	}

	ms := raw
	if raw < millisThreshold {
		ms = raw * 1000
	}

	if ms < MinValidEpochMs || ms > MaxValidEpochMs {
		return 0, fmt.Errorf("%w: %d out of valid range", core.ErrInvalidTimestamp, raw)
	}
	return ms, nil
}

func ValidatePercent(value float64) (float64, error) {
	if math.IsNaN(value) || value < 0 || value > 100 {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidPercent, value)
	}
	return value, nil
}

func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CoerceFloat accepts a JSON number or a numeric string.
func CoerceFloat(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// CoerceInt accepts a JSON integer, a float (rounded) or an integer string.
func CoerceInt(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n, true
		}
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) || math.Abs(v.Num) >= math.MaxInt64 {
			return 0, false
		}
		return int64(math.Round(v.Num)), true
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
