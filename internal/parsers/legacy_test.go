package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

func TestParseLegacyEvent(t *testing.T) {
	line := `{"type":"token_count","payload":{"rate_limits":{"primary":{"used_percent":10,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":50,"window_minutes":10080,"resets_at":1700500000}}}}`

	pair, err := ParseLegacyEvent([]byte(line))
	require.NoError(t, err)

	assert.Equal(t, 90.0, pair.FiveHour.PercentLeft)
	assert.Equal(t, int64(1700000000000), pair.FiveHour.ResetTimeMs)
	assert.Equal(t, 50.0, pair.Weekly.PercentLeft)
	assert.Equal(t, int64(1700500000000), pair.Weekly.ResetTimeMs)
	require.NotNil(t, pair.Weekly.WindowMinutes)
	assert.Equal(t, 10080, *pair.Weekly.WindowMinutes)
}

func TestParseLegacyEventNestedEventMsg(t *testing.T) {
	line := `{"timestamp":"2026-02-10T00:00:02Z","type":"event_msg","payload":{"type":"token_count","info":null,"rate_limits":{"primary":{"used_percent":10.5,"window_minutes":300,"resets_at":1770700000},"secondary":{"used_percent":75.0,"window_minutes":10080,"resets_at":1770934095},"credits":null,"plan_type":null}}}`

	pair, ok := ParseLegacyLine([]byte(line))
	require.True(t, ok)
	assert.Equal(t, 89.5, pair.FiveHour.PercentLeft)
	assert.Equal(t, 25.0, pair.Weekly.PercentLeft)
}

func TestParseLegacyEventRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{
			name: "fraction is not rescaled and over 100 is rejected",
			line: `{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":120,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
			want: core.ErrInvalidPercent,
		},
		{
			name: "missing secondary",
			line: `{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":5,"window_minutes":300,"resets_at":1700000000}}}}`,
			want: core.ErrMissingRateLimitData,
		},
		{
			name: "missing field",
			line: `{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":5,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
			want: core.ErrMissingUsageFields,
		},
		{
			name: "zero reset",
			line: `{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":5,"window_minutes":300,"resets_at":0},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
			want: core.ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLegacyEvent([]byte(tt.line))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseLegacyLineSkipsIrrelevant(t *testing.T) {
	for _, line := range []string{
		``,
		`not json at all`,
		`{"type":"session_meta","payload":{"id":"abc"}}`,
		`{"type":"response_item","payload":{"rate_limits":{"primary":{"used_percent":5,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
		`{"type":"event_msg","payload":{"rate_limits":null}}`,
		`{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":5,"window_minutes":-1,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
		`{"type":"event_msg","payload":"rate_limits"}`,
		`{"Type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":10,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
		`{"type":"event_msg","payload":{"rate_limits":{"PRIMARY":{"used_percent":10,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
		`{"type":"event_msg","payload":{"rate_limits":{"primary":{"Used_Percent":10,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
		`{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":10,"WINDOW_MINUTES":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
		`{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":10,"window_minutes":300.5,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
		`{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":"10","window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`,
	} {
		_, ok := ParseLegacyLine([]byte(line))
		assert.False(t, ok, "line %q", line)
	}
}

func TestParseLegacyEventKeysAreCaseSensitive(t *testing.T) {
	line := `{"Type":"event_msg","payload":{"rate_limits":{"PRIMARY":{"Used_Percent":10,"WINDOW_MINUTES":300,"Resets_At":1700000000},"Secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`
	_, err := ParseLegacyEvent([]byte(line))
	assert.ErrorIs(t, err, errNotRateLimitEvent)

	line = `{"type":"event_msg","payload":{"rate_limits":{"primary":{"Used_Percent":10,"window_minutes":300,"resets_at":1700000000},"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`
	_, err = ParseLegacyEvent([]byte(line))
	assert.ErrorIs(t, err, core.ErrMissingUsageFields)

	line = `{"type":"event_msg","payload":{"rate_limits":{"primary":{"used_percent":10,"window_minutes":300,"resets_at":1700000000},"Secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1700000000}}}}`
	_, err = ParseLegacyEvent([]byte(line))
	assert.ErrorIs(t, err, core.ErrMissingRateLimitData)
}
