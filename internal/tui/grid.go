package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/planr/internal/schedule"
)

const hourColumnWidth = 6

// renderGrid draws the weekly one-hour grid of items followed by the
// merged meeting times of each item. Clashing cells are highlighted.
func renderGrid(items []schedule.Item, width int) string {
	if len(items) == 0 {
		return renderMuted("No sections selected")
	}
	g := schedule.BuildGrid(items)

	colWidth := (width - hourColumnWidth) / len(schedule.GridDays)
	if colWidth < 8 {
		colWidth = 8
	}

	header := []string{lipgloss.NewStyle().Width(hourColumnWidth).Render("")}
	for _, d := range schedule.GridDays {
		header = append(header, GridHeaderStyle.Width(colWidth).Render(d.String()[:3]))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	for hour := schedule.FirstHour; hour <= schedule.LastHour; hour++ {
		row := []string{renderMuted(fmt.Sprintf("%02d:00 ", hour))}
		for _, d := range schedule.GridDays {
			row = append(row, renderCell(g.At(d, hour), g.Clash(d, hour), colWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	rows = append(rows, "")
	for _, it := range items {
		var times []string
		for _, m := range schedule.Meetings(it) {
			times = append(times, fmt.Sprintf("%s %s-%s", m.Weekday.String()[:3], m.Start, m.End))
		}
		line := truncateEnd(schedule.Title(it), width/2)
		if len(times) > 0 {
			line += renderMuted("  " + strings.Join(times, ", "))
		}
		rows = append(rows, line)
	}
	if n := g.Clashes(); n > 0 {
		rows = append(rows, "", StatusErrorStyle.Render(fmt.Sprintf("⚠ %d clashing slots", n)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCell(items []schedule.Item, clash bool, width int) string {
	if len(items) == 0 {
		return GridEmptyStyle.Width(width).Render("·")
	}
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key()
	}
	style := GridCellStyle
	if clash {
		style = GridClashStyle
	}
	return style.Width(width).Render(truncateEnd(strings.Join(keys, "/"), width-1))
}
