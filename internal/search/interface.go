package search

import "github.com/pders01/planr/internal/catalog"

// Searcher defines the minimal course search API used by the CLI and TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer replaces the searchable course set.
type Indexer interface {
	IndexCourses(courses []catalog.CourseSummary) error
}

// CourseIndex is a searcher that can be refilled after a crawl.
type CourseIndex interface {
	Searcher
	Indexer
	Close() error
}

// DebugStatser provides lightweight stats for visibility/debugging.
// Implemented by engines that can report index doc counts, etc.
type DebugStatser interface {
	DocCount() (int, error)
}
