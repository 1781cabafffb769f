package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/planr/internal/catalog"
	"github.com/pders01/planr/internal/config"
	"github.com/pders01/planr/internal/search"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
	keys        config.KeyBindings
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey, keys: cfg.Keys.Bindings}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Any key dismisses the error line.
	if kh.app.err != nil && key != "ctrl+c" {
		kh.app.err = nil
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewCourses:
		return kh.app.courseList.FilterState() == list.Filtering
	case ViewSections:
		return kh.app.sectionList.FilterState() == list.Filtering
	case ViewSearch:
		return kh.app.searchInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return kh.app, tea.Quit
	}

	// List filters handle their own esc and enter.
	if kh.app.view != ViewSearch {
		return kh.delegateToCharm(msg)
	}

	switch key {
	case kh.keys.Back:
		return kh.navigateBack()
	case "enter":
		if items := kh.app.searchList.Items(); len(items) > 0 {
			if i, ok := items[0].(searchResultItem); ok {
				return kh.selectSearchResult(i)
			}
		}
		return kh.app, nil
	case "tab", "down":
		if len(kh.app.searchList.Items()) > 0 {
			kh.app.searchInput.Blur()
			kh.app.searchList.Select(0)
		}
		return kh.app, nil
	default:
		return kh.delegateToSearchInput(msg)
	}
}

// delegateToSearchInput passes the key to the search box and schedules a
// debounced search when the query changed.
func (kh *KeyHandler) delegateToSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prev := kh.app.pendingSearchQuery
	newSearchInput, cmd := kh.app.searchInput.Update(msg)
	kh.app.searchInput = newSearchInput

	newVal := kh.sanitizeSearchInput(kh.app.searchInput.Value())
	if newVal == prev {
		return kh.app, cmd
	}
	kh.app.pendingSearchQuery = newVal
	kh.app.searchSeq++
	seq := kh.app.searchSeq
	wait := time.Duration(kh.app.searchDebounceMillis) * time.Millisecond
	return kh.app, tea.Batch(cmd, tea.Tick(wait, func(time.Time) tea.Msg { return searchDebounceFireMsg{seq: seq} }))
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "ctrl+c", kh.keys.Quit:
		return kh.app, tea.Quit, true
	case kh.keys.Back:
		if kh.filterApplied() {
			return kh.app, nil, false
		}
		model, cmd := kh.navigateBack()
		return model, cmd, true
	}

	// The crawl view only knows how to go back.
	if kh.app.view == ViewCrawl {
		return kh.app, nil, true
	}

	switch key {
	case kh.modifierKey + kh.keys.Search:
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case kh.modifierKey + kh.keys.Grid:
		if kh.app.view != ViewGrid {
			kh.app.previousView = kh.app.view
			kh.app.view = ViewGrid
		}
		return kh.app, nil, true
	case kh.modifierKey + kh.keys.Refresh:
		return kh.app, kh.enterCrawl(), true
	}

	switch kh.app.view {
	case ViewCourses:
		return kh.handleCoursesCustomKeys(key)
	case ViewSections:
		return kh.handleSectionsCustomKeys(key)
	case ViewGrid, ViewDetail:
		if key == kh.keys.Help {
			kh.app.showHelp = !kh.app.showHelp
			return kh.app, nil, true
		}
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) filterApplied() bool {
	switch kh.app.view {
	case ViewCourses:
		return kh.app.courseList.FilterState() == list.FilterApplied
	case ViewSections:
		return kh.app.sectionList.FilterState() == list.FilterApplied
	}
	return false
}

func (kh *KeyHandler) handleCoursesCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key != kh.keys.Detail {
		return kh.app, nil, false
	}
	i, ok := kh.app.courseList.SelectedItem().(courseItem)
	if !ok {
		return kh.app, nil, true
	}
	return kh.app, kh.openDetail(i.course), true
}

func (kh *KeyHandler) handleSectionsCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.keys.Toggle, "enter":
		if i, ok := kh.app.sectionList.SelectedItem().(sectionItem); ok {
			return kh.app, kh.app.toggleSection(i.section), true
		}
		return kh.app, nil, true
	case kh.keys.Detail:
		if kh.app.currentCourse != nil {
			return kh.app, kh.openDetail(*kh.app.currentCourse), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewCourses:
		wasFiltering := kh.app.courseList.FilterState() == list.Filtering
		kh.app.courseList, cmd = kh.app.courseList.Update(msg)
		if msg.String() == "enter" && !wasFiltering {
			if i, ok := kh.app.courseList.SelectedItem().(courseItem); ok {
				return kh.openSections(i.course)
			}
		}
		return kh.app, cmd

	case ViewSections:
		kh.app.sectionList, cmd = kh.app.sectionList.Update(msg)
		return kh.app, cmd

	case ViewSearch:
		if !kh.app.searchInput.Focused() {
			switch msg.String() {
			case "tab", "shift+tab", "/", "i":
				kh.app.searchInput.Focus()
				return kh.app, nil
			case "up":
				if kh.app.searchList.Index() == 0 {
					kh.app.searchInput.Focus()
					return kh.app, nil
				}
			}
		}

		kh.app.searchList, cmd = kh.app.searchList.Update(msg)
		if msg.String() == "enter" {
			if i, ok := kh.app.searchList.SelectedItem().(searchResultItem); ok {
				return kh.selectSearchResult(i)
			}
		}
		return kh.app, cmd

	case ViewDetail:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) openSections(course catalog.CourseSummary) (tea.Model, tea.Cmd) {
	c := course
	kh.app.currentCourse = &c
	kh.app.sections = nil
	kh.app.sectionList.SetItems([]list.Item{})
	kh.app.sectionList.Title = fmt.Sprintf("› %s %s", c.Code, c.Name)
	kh.app.previousView = kh.app.view
	kh.app.view = ViewSections
	kh.app.loading = true
	kh.app.setStatus(MsgLoadingSections, StatusInfo)
	return kh.app, tea.Batch(kh.app.spinner.Tick, kh.app.loadSections(c.Code))
}

func (kh *KeyHandler) openDetail(course catalog.CourseSummary) tea.Cmd {
	c := course
	kh.app.currentCourse = &c
	kh.app.previousView = kh.app.view
	kh.app.view = ViewDetail
	kh.app.loading = true
	kh.app.setStatus(MsgLoadingDetail, StatusInfo)
	return tea.Batch(kh.app.spinner.Tick, kh.app.renderDetail(c))
}

func (kh *KeyHandler) enterCrawl() tea.Cmd {
	kh.app.previousView = kh.app.view
	kh.app.view = ViewCrawl
	if kh.app.crawl.active {
		return nil
	}
	return kh.app.startCrawl()
}

// selectSearchResult opens the sections of the chosen course.
func (kh *KeyHandler) selectSearchResult(result searchResultItem) (tea.Model, tea.Cmd) {
	if result.result == nil {
		return kh.app, nil
	}
	kh.app.searchInput.Blur()
	model, cmd := kh.openSections(result.result.Course)
	kh.app.previousView = ViewSearch
	return model, cmd
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewCrawl:
		if kh.app.crawl.active {
			kh.app.cancelCrawl()
			kh.app.setStatus(MsgCrawlCancelled, StatusWarn)
		}
		kh.app.view = kh.app.previousView
		return kh.app, nil

	case ViewSearch:
		kh.app.view = kh.app.previousView
		if kh.app.view == ViewSearch {
			kh.app.view = ViewCourses
		}
		kh.app.searchInput.Reset()
		kh.app.pendingSearchQuery = ""
		kh.app.searchList.SetItems([]list.Item{})
		return kh.app, nil

	case ViewSections:
		if kh.app.previousView == ViewSearch {
			kh.app.view = ViewSearch
			kh.app.previousView = ViewCourses
			kh.app.searchInput.Blur()
			return kh.app, nil
		}
		kh.app.view = ViewCourses
		return kh.app, nil

	case ViewDetail, ViewGrid:
		kh.app.showHelp = false
		kh.app.view = kh.app.previousView
		if kh.app.view == ViewDetail || kh.app.view == ViewGrid {
			kh.app.view = ViewCourses
		}
		return kh.app, nil

	default:
		return kh.app, tea.Quit
	}
}

// enterSearchMode transitions to search view
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	if kh.app.view != ViewSearch {
		kh.app.previousView = kh.app.view
	}
	kh.app.view = ViewSearch
	kh.app.searchInput.Reset()
	kh.app.searchInput.Focus()
	kh.app.pendingSearchQuery = ""
	kh.app.searchList.SetItems([]list.Item{})

	engineName := fmt.Sprintf("%T", kh.app.planner.Search())
	if ds, ok := kh.app.planner.Search().(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			kh.app.setStatus(fmt.Sprintf("Search: %s • idx: %d", engineName, n), StatusInfo)
			return kh.app, nil
		}
	}
	kh.app.setStatus(fmt.Sprintf("Search: %s", engineName), StatusInfo)
	return kh.app, nil
}

// sanitizeSearchInput sanitizes and limits search input length
func (kh *KeyHandler) sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if len(input) > 256 {
		input = input[:256]
	}

	input = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(input)
	return strings.Join(strings.Fields(input), " ")
}

// label names a key binding in the status bar.
func label(key string) string {
	if key == " " {
		return "space"
	}
	return key
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	m := kh.modifierKey
	switch kh.app.view {
	case ViewCourses:
		help := []string{"enter: sections", label(kh.keys.Detail) + ": details"}
		return append(help, m+kh.keys.Search+": search", m+kh.keys.Grid+": schedule", m+kh.keys.Refresh+": crawl")

	case ViewSections:
		return []string{
			label(kh.keys.Toggle) + "/enter: toggle",
			label(kh.keys.Detail) + ": details",
			m + kh.keys.Grid + ": schedule",
			label(kh.keys.Back) + ": back",
		}

	case ViewDetail:
		if kh.app.showHelp {
			return []string{"↑↓/pgup/pgdn: scroll", m + kh.keys.Grid + ": schedule", label(kh.keys.Back) + ": back"}
		}
		return []string{label(kh.keys.Help) + ": more", label(kh.keys.Back) + ": back"}

	case ViewGrid:
		if kh.app.showHelp {
			return []string{m + kh.keys.Search + ": search", m + kh.keys.Refresh + ": crawl", label(kh.keys.Back) + ": back"}
		}
		return []string{label(kh.keys.Help) + ": more", label(kh.keys.Back) + ": back"}

	case ViewSearch:
		return []string{m + kh.keys.Search + ": new search"}

	case ViewCrawl:
		return []string{label(kh.keys.Back) + ": cancel"}

	default:
		return []string{}
	}
}
