package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/planr/internal/planner"
	"github.com/pders01/planr/internal/schedule"
)

var scheduleFlags struct {
	course    string
	selection string
	out       string
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the sections of a saved selection",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add SECTION...",
	Short: "Add sections to the selection",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withEnv(func(cmd *cobra.Command, args []string, e *env) error { return setSections(cmd, args, e, true) }),
}

var scheduleRemoveCmd = &cobra.Command{
	Use:     "remove SECTION...",
	Aliases: []string{"rm"},
	Short:   "Remove sections from the selection",
	Args:    cobra.MinimumNArgs(1),
	RunE:    withEnv(func(cmd *cobra.Command, args []string, e *env) error { return setSections(cmd, args, e, false) }),
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the sections of the selection with their meetings",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		sel, err := e.mgr.LoadSelection(selectionName(e))
		if err != nil {
			return err
		}
		if sel.Len() == 0 {
			fmt.Println("No sections selected")
			return nil
		}
		rows := make([][]string, 0, sel.Len())
		for _, it := range sel.Items() {
			meetings := schedule.Meetings(it)
			parts := make([]string, len(meetings))
			for i, m := range meetings {
				parts[i] = m.String()
			}
			rows = append(rows, []string{it.Key(), schedule.Title(it), strings.Join(parts, ", ")})
		}
		printTable([]string{"Section", "Title", "Meets"}, rows)
		if n := schedule.BuildGrid(sel.Items()).Clashes(); n > 0 {
			fmt.Printf("\n%d clashing slots, see 'planr schedule conflicts'\n", n)
		}
		return nil
	}),
}

var scheduleConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List the clashing sections of the selection",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		sel, err := e.mgr.LoadSelection(selectionName(e))
		if err != nil {
			return err
		}
		all := sel.AllConflicts()
		if len(all) == 0 {
			fmt.Println("No conflicts")
			return nil
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, c := range all[k] {
				fmt.Printf("%s clashes with %s at %s\n", k, c.Section.Key(), joinTokens(c))
			}
		}
		return nil
	}),
}

var scheduleExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the selection as an iCalendar file",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		var w io.Writer = os.Stdout
		if scheduleFlags.out != "" && scheduleFlags.out != "-" {
			f, err := os.Create(scheduleFlags.out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := e.mgr.Export(w, selectionName(e)); err != nil {
			if errors.Is(err, planner.ErrNoTermStart) {
				return fmt.Errorf("%w: set schedule.term_start in %s", err, configLocation())
			}
			return err
		}
		if w != os.Stdout {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", scheduleFlags.out)
		}
		return nil
	}),
}

func init() {
	scheduleCmd.PersistentFlags().StringVar(&scheduleFlags.selection, "selection", "", "Name of the saved selection (default from config)")
	for _, c := range []*cobra.Command{scheduleAddCmd, scheduleRemoveCmd} {
		c.Flags().StringVar(&scheduleFlags.course, "course", "", "Course the sections belong to")
	}
	scheduleExportCmd.Flags().StringVarP(&scheduleFlags.out, "out", "o", "", "Output file, stdout when empty or -")

	scheduleCmd.AddCommand(scheduleAddCmd, scheduleRemoveCmd, scheduleShowCmd, scheduleConflictsCmd, scheduleExportCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func selectionName(e *env) string {
	if scheduleFlags.selection != "" {
		return scheduleFlags.selection
	}
	return e.cfg.Schedule.Selection
}

// setSections makes each section's membership match want, toggling only
// the ones that differ.
func setSections(cmd *cobra.Command, ids []string, e *env, want bool) error {
	ctx := cmd.Context()
	name := selectionName(e)
	e.mgr.Warm("")

	sel, err := e.mgr.LoadSelection(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		section, err := e.mgr.FindSection(ctx, id, scheduleFlags.course)
		if err != nil {
			return err
		}
		if sel.Contains(*section) == want {
			state := "not selected"
			if want {
				state = "selected"
			}
			fmt.Printf("%s already %s\n", section.ID, state)
			continue
		}
		selected, conflicts, err := e.mgr.Toggle(name, *section)
		if err != nil {
			return err
		}
		if !selected {
			fmt.Printf("- %s\n", section.Title())
			continue
		}
		fmt.Printf("+ %s\n", section.Title())
		for _, c := range conflicts {
			fmt.Printf("  ! clashes with %s at %s\n", c.Section.Key(), joinTokens(c))
		}
		sel.Toggle(*section)
	}
	return nil
}

func joinTokens(c schedule.Conflict) string {
	parts := make([]string, len(c.Tokens))
	for i, t := range c.Tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
