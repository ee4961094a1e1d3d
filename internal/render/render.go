// Package render formats usage data for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

const gaugeWidth = 24

// Snapshot renders the windows of a usage snapshot relative to now.
func Snapshot(snap core.UsageSnapshot, now time.Time) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Codex usage"))
	b.WriteString("\n")

	writeWindow(&b, "5h window", snap.FiveHour, now)
	writeWindow(&b, "Weekly", snap.Weekly, now)
	if snap.CodeReview != nil {
		writeWindow(&b, "Code review", *snap.CodeReview, now)
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("updated " + snap.LastUpdated().Local().Format(time.DateTime)))
	if snap.SourceFile != "" {
		b.WriteString(dimStyle.Render(" from " + snap.SourceFile))
	}
	b.WriteString("\n")
	return b.String()
}

func writeWindow(b *strings.Builder, label string, w core.RateLimitWindow, now time.Time) {
	fmt.Fprintf(b, "%s %s  %s\n",
		labelStyle.Render(label),
		Gauge(w.PercentLeft, gaugeWidth),
		dimStyle.Render("resets "+ResetIn(w.ResetTime(), now)),
	)
}

// ResetIn is a short human form of the time left until reset.
func ResetIn(reset, now time.Time) string {
	d := reset.Sub(now)
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("in %dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("in %dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("in %dm", max(minutes, 1))
	}
}

// Bindings renders the bindings of each account, newest last.
func Bindings(byAccount map[string][]core.SessionBinding, accounts []string) string {
	if len(accounts) == 0 {
		return dimStyle.Render("no bindings") + "\n"
	}

	var b strings.Builder
	for i, account := range accounts {
		if i > 0 {
			b.WriteString("\n")
		}
		entries := byAccount[account]
		b.WriteString(sectionHeaderStyle.Render(account))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d)", len(entries))))
		b.WriteString("\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "  %s %s\n", valueStyle.Render(e.SessionID), dimStyle.Render(e.FilePath))
		}
	}
	return b.String()
}

// Status renders a non-ok remote outcome.
func Status(status, message string) string {
	style := lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	switch status {
	case "expired", "forbidden", "missing_token", "missing_account_id":
		style = style.Foreground(colorAuth)
	case "error":
		style = style.Foreground(colorCrit)
	}
	line := style.Render(status)
	if message != "" {
		line += " " + valueStyle.Render(message)
	}
	return line + "\n"
}
