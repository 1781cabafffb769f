package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/debuglog"
	"github.com/pders01/planr/internal/planner"
	"github.com/pders01/planr/internal/schedule"
	"github.com/pders01/planr/internal/search"
)

const searchLimit = 30

func (a *App) loadCourses() tea.Cmd {
	mgr, program, ctx := a.planner, a.program, a.ctx
	return func() tea.Msg {
		cached := mgr.Warm(program)
		courses, err := mgr.Courses(ctx, program)
		if err != nil {
			if !cached {
				// Nothing crawled yet and the API is not answering.
				debuglog.Warnf("tui: no courses available: %v", err)
				return coursesLoadedMsg{}
			}
			return errorMsg{err: wrapErr("loading courses", err)}
		}
		if _, err := mgr.Reindex(ctx, program); err != nil {
			debuglog.Warnf("tui: indexing courses: %v", err)
		}
		return coursesLoadedMsg{courses: courses, cached: cached}
	}
}

func (a *App) loadSections(code string) tea.Cmd {
	mgr, ctx := a.planner, a.ctx
	return func() tea.Msg {
		sections, err := mgr.Sections(ctx, code)
		if err != nil {
			return errorMsg{err: wrapErr("loading sections of "+code, err)}
		}
		return sectionsLoadedMsg{course: code, sections: sections}
	}
}

// renderDetail renders the course page with its sections. A course with
// no detail document falls back to its summary.
func (a *App) renderDetail(course catalog.CourseSummary) tea.Cmd {
	mgr, ctx := a.planner, a.ctx
	sel := schedule.NewSelection(a.selection.Items()...)
	r, rerr := a.getRenderer()

	return func() tea.Msg {
		if rerr != nil {
			return detailRenderedMsg{content: "Error initializing renderer: " + rerr.Error()}
		}

		detail, err := mgr.CourseDetail(ctx, course.Code)
		if err != nil {
			debuglog.Debugf("tui: no detail for %s: %v", course.Code, err)
			detail = &catalog.CourseDetail{Code: course.Code, Name: course.Name, Description: course.Description}
		}
		sections, err := mgr.Sections(ctx, course.Code)
		if err != nil {
			debuglog.Debugf("tui: no sections for %s: %v", course.Code, err)
		}

		rendered, err := r.Render(planner.CourseMarkdown(detail, sections, sel))
		if err != nil {
			return detailRenderedMsg{content: fmt.Sprintf("# Error\n\nFailed to render course: %s\n\nPress Escape to go back.", err.Error())}
		}
		return detailRenderedMsg{content: rendered}
	}
}

func (a *App) loadSelection() tea.Cmd {
	mgr, name := a.planner, a.selectionName
	return func() tea.Msg {
		var sel *schedule.Selection
		err := retryOperation(func() error {
			var lerr error
			sel, lerr = mgr.LoadSelection(name)
			return lerr
		})
		if err != nil {
			return errorMsg{err: wrapErr("loading selection", err)}
		}
		return selectionLoadedMsg{selection: sel}
	}
}

func (a *App) saveSelection() tea.Cmd {
	mgr, name := a.planner, a.selectionName
	sel := schedule.NewSelection(a.selection.Items()...)
	return func() tea.Msg {
		if err := retryOperation(func() error { return mgr.SaveSelection(name, sel) }); err != nil {
			return errorMsg{err: wrapErr("saving selection", err)}
		}
		return nil
	}
}

// startCrawl runs a crawl in the background. Progress arrives on a
// channel that waitForCrawl drains one message at a time.
func (a *App) startCrawl() tea.Cmd {
	if a.crawl.active {
		return nil
	}
	ctx, cancel := context.WithCancel(a.ctx)
	ch := make(chan tea.Msg, 32)
	a.crawl = crawlState{active: true, ch: ch, cancel: cancel}
	a.err = nil
	a.setStatus(MsgCrawling, StatusInfo)

	mgr, program := a.planner, a.program
	go func() {
		defer close(ch)
		defer cancel()

		res, err := mgr.Crawl(ctx, planner.CrawlOptions{Program: program, Reuse: true}, func(visited, estimated int, url string) {
			select {
			case ch <- crawlProgressMsg{visited: visited, estimated: estimated, url: url}:
			default:
			}
		})

		done := crawlDoneMsg{result: res, err: err, docCount: -1}
		if err != nil {
			done.cancelled = errors.Is(err, context.Canceled) || ctx.Err() != nil
			ch <- done
			return
		}
		if courses, cerr := mgr.Courses(ctx, program); cerr == nil {
			done.courses = len(courses)
		}
		if ds, ok := mgr.Search().(search.DebugStatser); ok {
			if n, derr := ds.DocCount(); derr == nil {
				done.docCount = n
			}
		}
		ch <- done
	}()

	return tea.Batch(a.spinner.Tick, a.waitForCrawl())
}

func (a *App) waitForCrawl() tea.Cmd {
	ch := a.crawl.ch
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (a *App) cancelCrawl() {
	if a.crawl.cancel != nil {
		a.crawl.cancel()
	}
}

func (a *App) performSearch(query string) tea.Cmd {
	idx := a.planner.Search()
	return func() tea.Msg {
		results, err := idx.Search(query, searchLimit)
		if err != nil {
			return errorMsg{err: wrapErr("search", err)}
		}
		return searchResultsMsg{query: query, results: results}
	}
}

// retryOperation retries a database operation up to 3 times with exponential backoff
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := operation(); err != nil {
			lastErr = err
			if i < maxRetries-1 {
				time.Sleep(baseDelay * time.Duration(1<<i))
			}
			continue
		}
		return nil
	}
	return lastErr
}
