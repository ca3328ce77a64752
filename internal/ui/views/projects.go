package views

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/paginator"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/ui/keys"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

type projectItem struct {
	project models.Project
}

func (i projectItem) Title() string { return i.project.Title }
func (i projectItem) Description() string {
	p := i.project
	return fmt.Sprintf("%s • %d%% • %d/%d tasks",
		models.Label(string(p.Status)), p.Progress(), p.CompletedTasks(), len(p.MainTasks))
}
func (i projectItem) FilterValue() string { return i.project.Title }

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 2 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.StatusColor(string(p.project.Status))).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		descStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(p.Title()), descStyle.Render(p.Description()))
}

// ProjectListView shows one page of projects
type ProjectListView struct {
	ctrl      *controller.Projects
	gen       int
	list      list.Model
	delegate  *projectDelegate
	paginator paginator.Model
	styles    *styles.Styles
	keys      keys.KeyMap
	width     int
	height    int

	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

func NewProjectListView(ctrl *controller.Projects, gen int) *ProjectListView {
	s := styles.NewStyles()

	delegate := &projectDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowPagination(false)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	pg := paginator.New()
	pg.Type = paginator.Arabic
	pg.ArabicFormat = "page %d of %d"

	return &ProjectListView{
		ctrl:      ctrl,
		gen:       gen,
		list:      l,
		delegate:  delegate,
		paginator: pg,
		styles:    s,
		keys:      keys.DefaultKeyMap(),
	}
}

func (v *ProjectListView) Init() tea.Cmd {
	return run(v.gen, "load", v.ctrl.Load)
}

// sync copies the controller's page into the list model
func (v *ProjectListView) sync() {
	state := v.ctrl.State()
	items := make([]list.Item, len(state.Projects))
	for i, p := range state.Projects {
		items[i] = projectItem{project: p}
	}
	v.list.SetItems(items)
	v.paginator.TotalPages = max(state.Pagination.Pages, 1)
	v.paginator.Page = max(state.Pagination.Page-1, 0)
}

func (v *ProjectListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Use content width (capped at MaxWidth) for internal layout
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-9)
		return v, nil

	case DoneMsg:
		v.sync()
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		// Let the list own the keyboard while its filter is being typed
		if v.list.FilterState() == list.Filtering {
			break
		}

		state := v.ctrl.State()
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			if v.list.FilterState() == list.FilterApplied {
				v.list.ResetFilter()
				return v, nil
			}
			return v, navigate(OpenDashboard{})
		case key.Matches(msg, v.keys.New), key.Matches(msg, v.keys.Upload):
			return v, navigate(OpenUpload{})
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Refresh):
			if !state.Fetch.Busy() {
				return v, run(v.gen, "load", v.ctrl.Load)
			}
			return v, nil
		case key.Matches(msg, v.keys.Right):
			if state.Pagination.HasNext() && !state.Fetch.Busy() {
				return v, run(v.gen, "page", func(ctx context.Context) error {
					_, err := v.ctrl.NextPage(ctx)
					return err
				})
			}
			return v, nil
		case key.Matches(msg, v.keys.Left):
			if state.Pagination.HasPrev() && !state.Fetch.Busy() {
				return v, run(v.gen, "page", func(ctx context.Context) error {
					_, err := v.ctrl.PrevPage(ctx)
					return err
				})
			}
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				return v, navigate(OpenProject{ID: item.project.ID})
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.project.ID
				v.deleteTargetName = item.project.Title
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ProjectListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		id := v.deleteTargetID
		return v, run(v.gen, "delete", func(ctx context.Context) error {
			return v.ctrl.Delete(ctx, id)
		})
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

// View renders the view
func (v *ProjectListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return confirmDialog(v.styles, "Delete Project?", v.deleteTargetName, v.width, v.height)
	}

	state := v.ctrl.State()
	contentWidth := styles.ContentWidth(v.width)
	notice := renderNotice(v.styles, state.Notice, contentWidth)

	if state.Projects == nil && state.Fetch != controller.PhaseSuccess {
		if state.Fetch == controller.PhaseError {
			return styles.CenterView(v.styles.List.Render(notice+"\n"+v.renderHelp()), v.width, v.height)
		}
		return v.styles.TitleMuted.Render("Loading...")
	}

	if len(state.Projects) == 0 {
		return v.renderEmpty()
	}

	footer := v.styles.TitleMuted.Render(fmt.Sprintf("  %s • %d projects",
		v.paginator.View(), state.Pagination.Total))
	if state.Fetch.Busy() || state.Write.Busy() {
		footer += v.styles.TitleMuted.Render(" • working...")
	}

	content := v.list.View() + "\n" + footer
	if notice != "" {
		content += "\n" + notice
	}
	content += "\n" + v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *ProjectListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Projects"),
		"",
		s.TitleMuted.Render("Press 'n' to upload a PDF or create your first project"),
		"",
		s.ButtonPrimary.Render(" New Project "),
	)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return helpLine(v.styles,
		"↵", "open", "←/→", "page", "n", "new", "d", "del", "/", "filter", "esc", "back", "q", "quit")
}

func (v *ProjectListView) renderHelpPopup() string {
	return helpPopup(v.styles, v.width, v.height,
		"↵", "open project",
		"←/→", "previous / next page",
		"n", "new project",
		"d", "delete project",
		"/", "filter this page",
		"r", "refresh",
		"esc", "dashboard",
		"q", "quit",
	)
}
