package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/planr/internal/tui"
)

var tuiProgram string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse courses and build a schedule interactively (default)",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiProgram, "program", "", "Only show the courses of this program")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	app := tui.NewApp(e.mgr, e.cfg, tuiProgram)
	defer app.Close()

	_, err = tea.NewProgram(app, tea.WithAltScreen()).Run()
	return err
}
