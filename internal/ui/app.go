package ui

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/projects"
	"github.com/tgienger/taskdeck/internal/session"
	"github.com/tgienger/taskdeck/internal/ui/views"
)

const settingLastProject = "last_project_id"

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewDashboard
	ViewProjects
	ViewProject
	ViewUpload
)

// Settings persists small UI preferences
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Deps is what the TUI needs from the rest of the program
type Deps struct {
	Settings     Settings
	Session      *session.Store
	Projects     *projects.Service
	Auditor      controller.Auditor
	Logger       *slog.Logger
	PageSize     int
	AutoComplete bool
}

type App struct {
	deps        Deps
	currentView View
	current     tea.Model
	// gen identifies the current view instance; stamped messages from
	// earlier instances are dropped
	gen int

	// The list controller outlives its view so the page survives navigation
	projectList *controller.Projects

	width  int
	height int
}

// Creates a new application
func NewApp(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &App{
		deps:        deps,
		projectList: controller.NewProjects(deps.Projects, deps.Logger, deps.PageSize),
	}
}

func (a *App) Init() tea.Cmd {
	if !a.deps.Session.IsAuthenticated() {
		return a.showLogin(nil)
	}

	// Reopen the last project, if any
	lastProjectID, err := a.deps.Settings.GetSetting(settingLastProject)
	if err == nil && lastProjectID != "" {
		return a.openProject(lastProjectID)
	}
	return a.showDashboard()
}

// switchTo makes m the current view and sizes it
func (a *App) switchTo(v View, m tea.Model) tea.Cmd {
	a.currentView = v
	a.current = m
	width, height := a.width, a.height
	return tea.Batch(
		m.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: width, Height: height}
		},
	)
}

func (a *App) showLogin(notice *controller.Notification) tea.Cmd {
	a.gen++
	return a.switchTo(ViewLogin, views.NewLoginView(a.deps.Session, a.gen, notice))
}

func (a *App) showDashboard() tea.Cmd {
	a.gen++
	a.setLastProject("")
	d := controller.NewDashboard(a.deps.Session, a.deps.Projects, a.deps.Logger)
	return a.switchTo(ViewDashboard, views.NewDashboardView(d, a.gen))
}

func (a *App) showProjects() tea.Cmd {
	a.gen++
	a.setLastProject("")
	return a.switchTo(ViewProjects, views.NewProjectListView(a.projectList, a.gen))
}

func (a *App) showUpload() tea.Cmd {
	a.gen++
	c := controller.NewProjectCreate(a.deps.Projects, a.deps.Logger)
	return a.switchTo(ViewUpload, views.NewUploadView(c, a.gen))
}

func (a *App) openProject(id string) tea.Cmd {
	a.gen++
	c := controller.NewProjectView(a.deps.Projects, a.deps.Auditor, a.deps.Logger, a.deps.AutoComplete, id)

	// Save as last opened project
	a.setLastProject(id)

	return a.switchTo(ViewProject, views.NewProjectView(c, a.gen))
}

func (a *App) setLastProject(id string) {
	if err := a.deps.Settings.SetSetting(settingLastProject, id); err != nil {
		a.deps.Logger.Warn("failed to save setting", "key", settingLastProject, "err", err)
	}
}

func (a *App) logout(notice *controller.Notification) tea.Cmd {
	if err := a.deps.Session.Logout(); err != nil {
		a.deps.Logger.Error("failed to clear session", "err", err)
	}
	a.setLastProject("")
	return a.showLogin(notice)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m, ok := msg.(views.Stamped); ok && m.Generation() != a.gen {
		a.deps.Logger.Debug("dropping message for closed view", "type", fmt.Sprintf("%T", msg))
		return a, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case views.DoneMsg:
		if api.IsUnauthorized(msg.Err) && a.currentView != ViewLogin {
			return a, a.logout(&controller.Notification{
				Kind:  controller.NotifyInfo,
				Title: "Session expired",
				Body:  "Please sign in again.",
			})
		}

	case views.LoggedIn:
		return a, a.showDashboard()

	case views.LogoutRequest:
		return a, a.logout(nil)

	case views.OpenDashboard:
		return a, a.showDashboard()

	case views.OpenProjects:
		return a, a.showProjects()

	case views.OpenUpload:
		return a, a.showUpload()

	case views.OpenProject:
		return a, a.openProject(msg.ID)
	}

	if a.current == nil {
		return a, nil
	}
	var cmd tea.Cmd
	a.current, cmd = a.current.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if a.current == nil {
		return ""
	}
	return a.current.View()
}
