package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pders01/planr/internal/crawler"
	"github.com/pders01/planr/internal/planner"
)

var crawlFlags struct {
	program       string
	reuse         bool
	keepProcessed bool
	quiet         bool
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch the catalog and every document it links to",
	Long: `Crawl walks the catalog API from its seed documents, following every
same-origin link, and stores a snapshot so later commands work offline.`,
	Args: cobra.NoArgs,
	RunE: withEnv(runCrawl),
}

func init() {
	f := crawlCmd.Flags()
	f.StringVar(&crawlFlags.program, "program", "", "Only crawl one program and its courses")
	f.BoolVar(&crawlFlags.reuse, "reuse", false, "Reuse what is already in memory instead of the stored snapshot")
	f.BoolVar(&crawlFlags.keepProcessed, "keep-processed", false, "Skip documents visited by the previous crawl")
	f.BoolVarP(&crawlFlags.quiet, "quiet", "q", false, "Do not print progress")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string, e *env) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	progress := func(visited, estimated int, url string) {
		fmt.Fprintf(os.Stderr, "\r\033[K%d/%d %s", visited, estimated, truncate(url, 60))
	}
	if crawlFlags.quiet {
		progress = nil
	}

	res, err := e.mgr.Crawl(ctx, planner.CrawlOptions{
		Program:       crawlFlags.program,
		Reuse:         crawlFlags.reuse,
		KeepProcessed: crawlFlags.keepProcessed,
	}, progress)
	if progress != nil {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("crawl interrupted, partial results were saved")
		}
		if errors.Is(err, crawler.ErrAllSeedsFailed) {
			return fmt.Errorf("%w: is api.base_url (%s) reachable?", err, e.cfg.API.BaseURL)
		}
		return err
	}

	ok := lipgloss.NewStyle().Foreground(lipgloss.Color(e.cfg.UI.Colors.Success)).Render("✓")
	fmt.Printf("%s crawled %d documents (session %s)\n", ok, len(res.AllData), res.SessionID)
	fmt.Printf("  %s\n", res.Stats)
	fmt.Printf("  snapshot %q\n", e.mgr.SnapshotKey(crawlFlags.program))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
