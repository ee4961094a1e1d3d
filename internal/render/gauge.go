package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Gauge renders a bar filled to percent (0-100, remaining).
func Gauge(percent float64, width int) string {
	if width < 5 {
		width = 5
	}
	percent = max(0, min(percent, 100))

	filled := int(percent / 100 * float64(width))
	empty := width - filled

	color := gaugeColor(percent)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("━", filled)) +
		gaugeTrackStyle.Render(strings.Repeat("━", empty))

	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	return fmt.Sprintf("%s %s", bar, pctStyle.Render(fmt.Sprintf("%5.1f%%", percent)))
}

func gaugeColor(percent float64) lipgloss.Color {
	switch {
	case percent <= CritThreshold*100:
		return colorCrit
	case percent <= WarnThreshold*100:
		return colorWarn
	default:
		return colorOK
	}
}
