package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/planr/internal/crawler"
)

// StatusKind picks the color of the status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// Canonical short status messages used across the app.
const (
	MsgCrawling        = "Crawling…"
	MsgCrawlCancelled  = "Crawl cancelled"
	MsgLoadingCourses  = "Loading courses…"
	MsgLoadingSections = "Loading sections…"
	MsgLoadingDetail   = "Loading course…"
	MsgNoResults       = "No results"
	MsgNoCatalog       = "No catalog cached yet"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

// MsgToggled reports a selection change and the conflicts it caused.
func MsgToggled(id string, selected bool, conflicts []string) string {
	if !selected {
		return fmt.Sprintf("Removed %s", id)
	}
	if len(conflicts) == 0 {
		return fmt.Sprintf("Added %s", id)
	}
	return fmt.Sprintf("Added %s • conflicts with %s", id, strings.Join(conflicts, ", "))
}

func MsgCrawlSummary(stats crawler.Stats, courses, docCount int) string {
	base := fmt.Sprintf("Crawled: %d docs • %d fetched • %d cached", stats.Fetched+stats.CacheHits, stats.Fetched, stats.CacheHits)
	if stats.Failed > 0 {
		base += fmt.Sprintf(" • %d failed", stats.Failed)
	}
	base += fmt.Sprintf(" • %d courses", courses)
	if docCount >= 0 {
		base += fmt.Sprintf(" • idx: %d docs", docCount)
	}
	return base
}

// wrapErr prefixes err with what the UI was doing.
func wrapErr(action string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", action, err)
}
