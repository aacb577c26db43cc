package main

import (
	"fmt"
	"strings"

	"github.com/bigrogerio/daedalus/internal/core/ports"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Width(12)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// renderSummary formats a scan result for the terminal.
func renderSummary(res ports.ScanResult) string {
	files := fmt.Sprintf("%d", res.FilesScanned)
	if res.Failed > 0 || res.Skipped > 0 {
		files += warnStyle.Render(fmt.Sprintf(" (%d failed, %d skipped)", res.Failed, res.Skipped))
	}

	variables := fmt.Sprintf("%d resolved", res.Resolved)
	if res.Unresolved > 0 {
		variables += warnStyle.Render(fmt.Sprintf(", %d unresolved", res.Unresolved))
	}

	lines := []string{
		titleStyle.Render("daedalus scan"),
		row("files", files),
		row("imports", fmt.Sprintf("%d", res.Imports)),
		row("references", fmt.Sprintf("%d", res.References)),
		row("variables", variables),
	}

	if len(res.Cycles) == 0 {
		lines = append(lines, row("cycles", successStyle.Render("none")))
	} else {
		lines = append(lines, row("cycles", cycleStyle.Render(fmt.Sprintf("%d", len(res.Cycles)))))
		for _, cycle := range res.Cycles {
			lines = append(lines, cycleStyle.Render("  "+strings.Join(cycle, " -> ")+" -> "+cycle[0]))
		}
	}

	for _, path := range res.Written {
		lines = append(lines, statusStyle.Render("wrote "+path))
	}
	if res.RunID != "" {
		lines = append(lines, statusStyle.Render("run "+res.RunID))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
