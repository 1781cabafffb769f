package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestKeyHandler_ModifierKey(t *testing.T) {
	app := newTestApp(t)

	assert.NotNil(t, app.keyHandler)
	assert.Equal(t, "ctrl+", app.keyHandler.modifierKey)
	assert.Equal(t, " ", app.keyHandler.keys.Toggle)
}

func TestKeyHandler_HandleKey_CtrlR(t *testing.T) {
	app := newTestApp(t)
	app.view = ViewSections
	// Pretend a crawl is already running so no request goes out.
	app.crawl.active = true

	updatedModel, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	updatedApp := updatedModel.(*App)

	assert.Equal(t, ViewCrawl, updatedApp.view, "Ctrl+R should show the crawl progress")
	assert.Equal(t, ViewSections, updatedApp.previousView)
	assert.Nil(t, cmd, "a running crawl is not started twice")

	updatedModel, _ = updatedApp.Update(tea.KeyMsg{Type: tea.KeyEsc})
	updatedApp = updatedModel.(*App)
	assert.Equal(t, ViewSections, updatedApp.view)
	assert.Equal(t, MsgCrawlCancelled, updatedApp.status)
}

func TestKeyHandler_CustomBindings(t *testing.T) {
	app := newTestApp(t)
	app.keyHandler.keys.Grid = "w"
	app.keyHandler.keys.Quit = "x"

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, ViewCourses, app.view, "the default binding is no longer active")

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.Equal(t, ViewGrid, app.view)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.NotNil(t, cmd)
}

func TestKeyHandler_GetHelpForCurrentView(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		view View
		want string
	}{
		{ViewCourses, "ctrl+r: crawl"},
		{ViewSections, "space/enter: toggle"},
		{ViewDetail, "?: more"},
		{ViewGrid, "esc: back"},
		{ViewSearch, "ctrl+s: new search"},
		{ViewCrawl, "esc: cancel"},
	}
	for _, tt := range tests {
		t.Run(tt.view.String(), func(t *testing.T) {
			app.view = tt.view
			assert.Contains(t, app.keyHandler.GetHelpForCurrentView(), tt.want)
		})
	}
}

func TestKeyHandler_SanitizeSearchInput(t *testing.T) {
	kh := newTestApp(t).keyHandler

	assert.Equal(t, "linear algebra", kh.sanitizeSearchInput("  linear\t\talgebra \n"))
	assert.Len(t, kh.sanitizeSearchInput(string(make([]byte, 300))), 256)
}
