package planner

import (
	"fmt"
	"strings"

	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/schedule"
)

// CourseMarkdown renders a course and its sections as markdown for glamour.
// sel may be nil; when set, selected sections are marked.
func CourseMarkdown(d *catalog.CourseDetail, sections []catalog.Section, sel *schedule.Selection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", d.Code, d.Name)
	if d.Credits > 0 {
		fmt.Fprintf(&b, "*%g credits*\n\n", d.Credits)
	}
	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}
	if len(d.Prerequisites) > 0 {
		b.WriteString("**Prerequisites:** ")
		b.WriteString(strings.Join(d.Prerequisites, ", "))
		b.WriteString("\n\n")
	}

	if len(sections) == 0 {
		return b.String()
	}

	b.WriteString("## Sections\n\n")
	b.WriteString("| | Section | Teacher | Schedule |\n|---|---|---|---|\n")
	for _, s := range sections {
		mark := ""
		if sel != nil && sel.Contains(s) {
			mark = "✓"
			if sel.HasConflicts(s) {
				mark = "⚠"
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", mark, s.ID, s.Teacher, MeetingSummary(s))
	}
	return b.String()
}

// MeetingSummary joins the meetings of a section, falling back to its raw
// schedule code when nothing could be decoded.
func MeetingSummary(s catalog.Section) string {
	parts := make([]string, 0, len(s.Schedule))
	for _, m := range s.Schedule {
		parts = append(parts, fmt.Sprintf("%s %s-%s", m.Day[:min(3, len(m.Day))], m.StartTime, m.EndTime))
	}
	if len(parts) == 0 {
		return s.ScheduleCode
	}
	return strings.Join(parts, ", ")
}
