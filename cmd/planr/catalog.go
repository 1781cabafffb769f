package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/planner"
	"github.com/pders01/planr/internal/search"
)

var (
	coursesProgram string
	courseRaw      bool
	searchLimit    int
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List the programs of the catalog",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		e.mgr.Warm("")
		programs, err := e.mgr.Catalog().Programs(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(programs))
		for _, p := range programs {
			rows = append(rows, []string{p.Code, p.Name})
		}
		printTable([]string{"Code", "Program"}, rows)
		return nil
	}),
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses, optionally of one program",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		e.mgr.Warm(coursesProgram)
		courses, err := e.mgr.Courses(cmd.Context(), coursesProgram)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(courses))
		for _, c := range courses {
			rows = append(rows, []string{c.Code, c.Name})
		}
		printTable([]string{"Code", "Course"}, rows)
		return nil
	}),
}

var courseCmd = &cobra.Command{
	Use:   "course CODE",
	Short: "Show a course with its sections",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		ctx := cmd.Context()
		e.mgr.Warm("")
		code := strings.ToUpper(args[0])

		detail, err := e.mgr.CourseDetail(ctx, code)
		if err != nil {
			summary, serr := e.mgr.Catalog().Course(ctx, code)
			if serr != nil {
				return err
			}
			detail = &catalog.CourseDetail{Code: summary.Code, Name: summary.Name, Description: summary.Description}
		}
		sections, err := e.mgr.Sections(ctx, code)
		if err != nil {
			return err
		}
		sel, err := e.mgr.LoadSelection(e.cfg.Schedule.Selection)
		if err != nil {
			return err
		}

		md := planner.CourseMarkdown(detail, sections, sel)
		if courseRaw {
			fmt.Print(md)
			return nil
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(e.cfg.UI.Detail.WordWrapMaxWidth),
		)
		if err != nil {
			return err
		}
		out, err := r.Render(md)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}),
}

var sectionsCmd = &cobra.Command{
	Use:   "sections CODE",
	Short: "List the sections of a course",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		e.mgr.Warm("")
		sections, err := e.mgr.Sections(cmd.Context(), strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
		sel, err := e.mgr.LoadSelection(e.cfg.Schedule.Selection)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(sections))
		for _, s := range sections {
			mark := " "
			if sel.Contains(s) {
				mark = "✓"
			} else if sel.HasConflicts(s) {
				mark = "!"
			}
			rows = append(rows, []string{mark, s.ID, s.Teacher, planner.MeetingSummary(s)})
		}
		printTable([]string{"", "Section", "Teacher", "Schedule"}, rows)
		return nil
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search courses by code, name or description",
	Args:  cobra.MinimumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		e.mgr.Warm("")
		if ds, ok := e.index.(search.DebugStatser); ok {
			if n, err := ds.DocCount(); err == nil && n == 0 {
				if _, err := e.mgr.Reindex(cmd.Context(), ""); err != nil {
					return fmt.Errorf("building search index: %w", err)
				}
			}
		}

		results, err := e.index.Search(strings.Join(args, " "), searchLimit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results")
			return nil
		}
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{r.Course.Code, r.Course.Name, fmt.Sprintf("%.2f", r.Score)})
		}
		printTable([]string{"Code", "Course", "Score"}, rows)
		return nil
	}),
}

func init() {
	coursesCmd.Flags().StringVar(&coursesProgram, "program", "", "Only list the courses of this program")
	courseCmd.Flags().BoolVar(&courseRaw, "raw", false, "Print markdown instead of rendering it")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")

	rootCmd.AddCommand(programsCmd, coursesCmd, courseCmd, sectionsCmd, searchCmd)
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// printTable writes rows to stdout under a bold header row.
func printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	fmt.Println(t.Render())
}
