package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/tgienger/taskdeck/internal/logging"
	"github.com/tgienger/taskdeck/internal/ui/views"
)

// recorder is a view that remembers what it was sent
type recorder struct {
	msgs []tea.Msg
}

func (r *recorder) Init() tea.Cmd { return nil }

func (r *recorder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	r.msgs = append(r.msgs, msg)
	return r, nil
}

func (r *recorder) View() string { return "recorder" }

type memSettings map[string]string

func (m memSettings) GetSetting(key string) (string, error) { return m[key], nil }

func (m memSettings) SetSetting(key, value string) error {
	m[key] = value
	return nil
}

func newTestApp() (*App, *recorder) {
	a := NewApp(Deps{Settings: memSettings{}, Logger: logging.Discard()})
	rec := &recorder{}
	a.gen = 2
	a.currentView = ViewProjects
	a.current = rec
	return a, rec
}

func TestStaleMessagesAreDropped(t *testing.T) {
	a, rec := newTestApp()

	a.Update(views.DoneMsg{Gen: 1, Op: "load"})
	assert.Empty(t, rec.msgs)

	a.Update(views.DoneMsg{Gen: 2, Op: "load"})
	assert.Len(t, rec.msgs, 1)
}

func TestWindowSizeIsForwardedAndRemembered(t *testing.T) {
	a, rec := newTestApp()

	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, a.width)
	assert.Equal(t, 40, a.height)
	assert.Len(t, rec.msgs, 1)
	assert.Equal(t, "recorder", a.View())
}

func TestOpenProjectRemembersIt(t *testing.T) {
	a, _ := newTestApp()
	settings := a.deps.Settings.(memSettings)

	a.Update(views.OpenProject{ID: "p-9"})
	assert.Equal(t, ViewProject, a.currentView)
	assert.Equal(t, 3, a.gen)
	assert.Equal(t, "p-9", settings[settingLastProject])

	a.Update(views.OpenProjects{})
	assert.Equal(t, ViewProjects, a.currentView)
	assert.Empty(t, settings[settingLastProject])
}
