package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/config"
	"github.com/pders01/planr/internal/crawler"
	"github.com/pders01/planr/internal/planner"
	"github.com/pders01/planr/internal/schedule"
	"github.com/pders01/planr/internal/search"
)

// crawlState tracks the crawl running in the background.
type crawlState struct {
	active    bool
	visited   int
	estimated int
	url       string
	ch        <-chan tea.Msg
	cancel    context.CancelFunc
}

type App struct {
	config     *config.Config
	planner    *planner.Manager
	keyHandler *KeyHandler

	courseList  list.Model
	sectionList list.Model
	searchList  list.Model
	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model

	view         View
	previousView View
	showHelp     bool

	courses       []catalog.CourseSummary
	sections      []catalog.Section
	currentCourse *catalog.CourseSummary
	selection     *schedule.Selection
	selectionName string
	program       string
	loading       bool

	crawl crawlState

	pendingSearchQuery   string
	searchSeq            int
	searchDebounceMillis int

	width      int
	height     int
	err        error
	status     string
	statusKind StatusKind

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp builds the planner UI. program limits the course list and
// crawls to one program when set.
func NewApp(mgr *planner.Manager, cfg *config.Config, program string) *App {
	ApplyColors(cfg.UI.Colors)

	courseList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	courseList.Title = "› courses"
	if program != "" {
		courseList.Title = "› courses in " + strings.ToUpper(program)
	}
	courseList.SetShowStatusBar(false)
	courseList.SetFilteringEnabled(true)
	courseList.SetShowHelp(true)

	sectionList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	sectionList.Title = "› sections"
	sectionList.SetShowStatusBar(false)
	sectionList.SetFilteringEnabled(true)
	sectionList.SetShowHelp(true)

	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "› matching courses"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "Search courses by code, name or description..."

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:               cfg,
		planner:              mgr,
		courseList:           courseList,
		sectionList:          sectionList,
		searchList:           searchList,
		searchInput:          si,
		viewport:             viewport.New(0, 0),
		spinner:              sp,
		view:                 ViewCourses,
		previousView:         ViewCourses,
		selection:            schedule.NewSelection(),
		selectionName:        cfg.Schedule.Selection,
		program:              program,
		searchDebounceMillis: 150,
		ctx:                  ctx,
		cancel:               cancel,
	}
	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

// Close stops a running crawl.
func (a *App) Close() {
	a.cancel()
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth := a.config.UI.Detail.WordWrapMaxWidth
	minWidth := a.config.UI.Detail.WordWrapMinWidth

	wordWrapWidth := (a.width * 9) / 10
	if maxWidth > 0 && wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	a.loading = true
	return tea.Batch(
		a.loadSelection(),
		a.loadCourses(),
		a.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func (a *App) busy() bool {
	return a.loading || a.crawl.active
}

func (a *App) setStatus(msg string, kind StatusKind) {
	a.status = msg
	a.statusKind = kind
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.courseList.SetSize(msg.Width, msg.Height-3)
		a.sectionList.SetSize(msg.Width, msg.Height-3)
		a.searchList.SetSize(msg.Width, max(msg.Height-10, 5))
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 3
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case coursesLoadedMsg:
		a.loading = false
		a.courses = msg.courses
		items := make([]list.Item, len(msg.courses))
		for i, c := range msg.courses {
			items[i] = courseItem{course: c}
		}
		a.courseList.SetItems(items)
		if len(msg.courses) == 0 {
			a.setStatus(MsgNoCatalog, StatusWarn)
		} else if msg.cached {
			a.setStatus(fmt.Sprintf("%d courses from the last crawl", len(msg.courses)), StatusInfo)
		} else {
			a.setStatus(fmt.Sprintf("%d courses", len(msg.courses)), StatusInfo)
		}

	case sectionsLoadedMsg:
		a.loading = false
		if a.currentCourse != nil && a.currentCourse.Code == msg.course {
			a.sections = msg.sections
			a.refreshSections()
			a.sectionList.ResetSelected()
			a.setStatus(fmt.Sprintf("%d sections", len(msg.sections)), StatusInfo)
		}

	case detailRenderedMsg:
		a.loading = false
		if a.view == ViewDetail {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.setStatus("", StatusInfo)
		}

	case selectionLoadedMsg:
		a.selection = msg.selection
		a.refreshSections()

	case searchDebounceFireMsg:
		if msg.seq == a.searchSeq && a.view == ViewSearch {
			return a, a.performSearch(a.pendingSearchQuery)
		}

	case searchResultsMsg:
		if a.view == ViewSearch && msg.query == a.pendingSearchQuery {
			items := make([]list.Item, len(msg.results))
			for i, r := range msg.results {
				items[i] = searchResultItem{result: r}
			}
			a.searchList.SetItems(items)
			if len(items) == 0 {
				a.setStatus(MsgNoResults, StatusInfo)
			} else {
				a.setStatus(MsgResultsCount(len(items)), StatusInfo)
			}
		}

	case crawlProgressMsg:
		a.crawl.visited = msg.visited
		a.crawl.estimated = msg.estimated
		a.crawl.url = msg.url
		return a, a.waitForCrawl()

	case crawlDoneMsg:
		a.crawl.active = false
		a.crawl.ch = nil
		a.crawl.cancel = nil
		if a.view == ViewCrawl {
			a.view = a.previousView
		}
		if msg.err != nil {
			if msg.cancelled {
				a.setStatus(MsgCrawlCancelled, StatusWarn)
				return a, nil
			}
			a.err = msg.err
			a.setStatus("", StatusInfo)
			return a, nil
		}
		a.setStatus(MsgCrawlSummary(msg.result.Stats, msg.courses, msg.docCount), StatusSuccess)
		a.loading = true
		return a, tea.Batch(a.loadCourses(), a.spinner.Tick)

	case errorMsg:
		a.loading = false
		a.err = msg.err
	}

	return a, nil
}

// refreshSections rebuilds the section list from the current selection.
func (a *App) refreshSections() {
	items := make([]list.Item, len(a.sections))
	for i, s := range a.sections {
		items[i] = a.newSectionItem(s)
	}
	a.sectionList.SetItems(items)
}

func (a *App) newSectionItem(s catalog.Section) sectionItem {
	it := sectionItem{section: s, selected: a.selection.Contains(s)}
	for _, c := range a.selection.Conflicts(s) {
		it.conflicts = append(it.conflicts, c.Section.Key())
	}
	return it
}

// toggleSection adds or removes the section from the selection and
// persists the change.
func (a *App) toggleSection(s catalog.Section) tea.Cmd {
	selected := a.selection.Toggle(s)
	var clashes []string
	if selected {
		for _, c := range a.selection.Conflicts(s) {
			clashes = append(clashes, c.Section.Key())
		}
	}
	kind := StatusSuccess
	if len(clashes) > 0 {
		kind = StatusWarn
	}
	a.setStatus(MsgToggled(s.ID, selected, clashes), kind)
	a.refreshSections()
	return a.saveSelection()
}

func (a *App) View() string {
	contentHeight := a.height - 3
	var content string

	switch a.view {
	case ViewCourses:
		if len(a.courses) == 0 && !a.loading {
			content = renderCentered(a.width, contentHeight, GetWelcomeMessage(a.keyHandler.modifierKey+a.keyHandler.keys.Refresh))
		} else {
			content = a.courseList.View()
		}

	case ViewSections:
		content = a.sectionList.View()

	case ViewDetail:
		if a.loading {
			content = renderCentered(a.width, contentHeight, a.spinner.View()+" "+renderMuted(MsgLoadingDetail))
		} else {
			content = a.viewport.View()
		}

	case ViewGrid:
		header := renderHeader("› weekly schedule", fmt.Sprintf("selection %q • %d sections", a.selectionName, a.selection.Len()), a.width)
		content = lipgloss.NewStyle().
			Width(a.width).
			Height(contentHeight).
			MaxHeight(contentHeight).
			Render(lipgloss.JoinVertical(lipgloss.Left, header, "", renderGrid(a.selection.Items(), a.width)))

	case ViewSearch:
		inputWidth := a.width - 8
		if inputWidth < 10 {
			inputWidth = a.width - 4
		}
		a.searchInput.Width = inputWidth

		var helpText string
		switch {
		case a.searchInput.Focused():
			helpText = "Type to search • Tab/↓: results • Esc: back"
		case len(a.searchList.Items()) > 0:
			helpText = "↑↓: navigate • Enter: sections • Tab/↑: search box • Esc: back"
		default:
			helpText = "No results found • Tab/↑: search box • Esc: back"
		}

		content = lipgloss.NewStyle().
			Width(a.width).
			Height(contentHeight).
			MaxHeight(contentHeight).
			Render(lipgloss.JoinVertical(
				lipgloss.Top,
				renderHeader("› search", "", a.width),
				"",
				renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), inputWidth),
				renderMuted(helpText),
				"",
				a.searchList.View(),
			))

	case ViewCrawl:
		content = renderCentered(a.width, contentHeight, a.renderCrawl())
	}

	status := a.getCustomStatusBar()
	if status == "" {
		return content
	}
	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width-1, 0)))
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, status)
}

func (a *App) renderCrawl() string {
	progress := fmt.Sprintf("%d visited", a.crawl.visited)
	if a.crawl.estimated > 0 {
		progress = fmt.Sprintf("%d / ~%d visited", a.crawl.visited, a.crawl.estimated)
	}
	return lipgloss.JoinVertical(
		lipgloss.Center,
		TitleStyle.Render("› crawling catalog"),
		"",
		a.spinner.View()+" "+progress,
		renderMuted(truncateMiddle(a.crawl.url, max(a.width-10, 10))),
		"",
		renderHelp("Esc: cancel"),
	)
}

func (a *App) getCustomStatusBar() string {
	if a.err != nil {
		return lipgloss.NewStyle().
			Width(a.width).
			Padding(0, 1).
			Render(StatusErrorStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	}

	parts := make([]string, 0, 2)
	if a.status != "" {
		s := statusStyle(a.statusKind).Render(a.status)
		if a.busy() && a.view != ViewCrawl {
			s = a.spinner.View() + " " + s
		}
		parts = append(parts, s)
	}
	if commands := a.keyHandler.GetHelpForCurrentView(); len(commands) > 0 {
		parts = append(parts, renderMuted(strings.Join(commands, " • ")))
	}
	if len(parts) == 0 {
		return ""
	}
	return StatusBarStyle.Width(a.width).Render(strings.Join(parts, "  "))
}

type courseItem struct {
	course catalog.CourseSummary
}

func (i courseItem) Title() string {
	return HeaderStyle.Render(i.course.Code) + " " + i.course.Name
}

func (i courseItem) Description() string {
	if i.course.Description == "" {
		return renderMuted("no description")
	}
	return renderMuted(truncateEnd(i.course.Description, 80))
}

func (i courseItem) FilterValue() string { return i.course.Code + " " + i.course.Name }

type sectionItem struct {
	section   catalog.Section
	selected  bool
	conflicts []string
}

func (i sectionItem) Title() string {
	label := i.section.ID
	if i.section.Teacher != "" {
		label += " • " + i.section.Teacher
	}
	switch {
	case i.selected && len(i.conflicts) > 0:
		return ConflictItemStyle.Render("⚠ " + label)
	case i.selected:
		return SelectedItemStyle.Render("✓ " + label)
	default:
		return "  " + label
	}
}

func (i sectionItem) Description() string {
	desc := planner.MeetingSummary(i.section)
	if len(i.conflicts) > 0 {
		verb := "would clash with "
		if i.selected {
			verb = "clashes with "
		}
		desc += " • " + verb + strings.Join(i.conflicts, ", ")
	}
	return renderMuted(desc)
}

func (i sectionItem) FilterValue() string { return i.section.ID + " " + i.section.Teacher }

type searchResultItem struct {
	result *search.Result
}

func (i searchResultItem) Title() string {
	return HeaderStyle.Render(i.result.Course.Code) + " " + i.result.Course.Name
}

func (i searchResultItem) Description() string {
	for _, m := range i.result.Matches {
		if m.Field == "description" {
			return renderMuted(m.Text)
		}
	}
	return renderMuted(truncateEnd(i.result.Course.Description, 60))
}

func (i searchResultItem) FilterValue() string {
	return i.result.Course.Code + " " + i.result.Course.Name
}

type coursesLoadedMsg struct {
	courses []catalog.CourseSummary
	cached  bool
}

type sectionsLoadedMsg struct {
	course   string
	sections []catalog.Section
}

type detailRenderedMsg struct {
	content string
}

type selectionLoadedMsg struct {
	selection *schedule.Selection
}

type searchDebounceFireMsg struct {
	seq int
}

type searchResultsMsg struct {
	query   string
	results []*search.Result
}

type crawlProgressMsg struct {
	visited   int
	estimated int
	url       string
}

type crawlDoneMsg struct {
	result    *crawler.Result
	courses   int
	docCount  int
	err       error
	cancelled bool
}

type errorMsg struct {
	err error
}
