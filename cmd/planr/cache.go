package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear crawl snapshots and cached responses",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "List stored crawl snapshots",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		e.mgr.Warm("")
		info, err := e.mgr.CacheInfo()
		if err != nil {
			return err
		}
		fmt.Printf("in memory: %d entries, %d visited\n", info.Entries, info.Visited)
		if len(info.Snapshots) == 0 {
			fmt.Println("no snapshots, run 'planr crawl'")
			return nil
		}
		rows := make([][]string, 0, len(info.Snapshots))
		for _, s := range info.Snapshots {
			rows = append(rows, []string{s.Key, humanBytes(s.Size), s.SavedAt.Local().Format(time.DateTime)})
		}
		printTable([]string{"Snapshot", "Size", "Saved"}, rows)
		return nil
	}),
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every snapshot and cached response, keeping selections",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		if err := e.mgr.ClearCache(); err != nil {
			return err
		}
		fmt.Println("Cache cleared")
		return nil
	}),
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop expired cached responses",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		n, err := e.mgr.PurgeExpired()
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired entries\n", n)
		return nil
	}),
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd, cacheClearCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
