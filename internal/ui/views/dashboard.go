package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/ui/keys"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

// DashboardView greets the user and shows stats and recent projects
type DashboardView struct {
	ctrl    *controller.Dashboard
	gen     int
	styles  *styles.Styles
	keys    keys.KeyMap
	spinner spinner.Model

	width  int
	height int
	cursor int
}

func NewDashboardView(ctrl *controller.Dashboard, gen int) *DashboardView {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)
	return &DashboardView{
		ctrl:    ctrl,
		gen:     gen,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		spinner: sp,
	}
}

func (v *DashboardView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.load())
}

func (v *DashboardView) load() tea.Cmd {
	return run(v.gen, "load", func(ctx context.Context) error {
		_, err := v.ctrl.Load(ctx)
		return err
	})
}

func (v *DashboardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case spinner.TickMsg:
		if st := v.ctrl.State(); st.Fetch != controller.PhaseIdle && !st.Fetch.Busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case DoneMsg:
		if data := v.ctrl.State().Data; data != nil && v.cursor >= len(data.Recent) {
			v.cursor = max(len(data.Recent)-1, 0)
		}
		return v, nil

	case tea.KeyMsg:
		state := v.ctrl.State()
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, v.keys.Down):
			if state.Data != nil && v.cursor < len(state.Data.Recent)-1 {
				v.cursor++
			}
		case key.Matches(msg, v.keys.Enter):
			if state.Data != nil && v.cursor < len(state.Data.Recent) {
				return v, navigate(OpenProject{ID: state.Data.Recent[v.cursor].ID})
			}
		case key.Matches(msg, v.keys.Projects):
			return v, navigate(OpenProjects{})
		case key.Matches(msg, v.keys.Upload), key.Matches(msg, v.keys.New):
			return v, navigate(OpenUpload{})
		case key.Matches(msg, v.keys.Refresh):
			if !state.Fetch.Busy() {
				return v, tea.Batch(v.spinner.Tick, v.load())
			}
		case key.Matches(msg, v.keys.Logout):
			return v, navigate(LogoutRequest{})
		}
	}
	return v, nil
}

func (v *DashboardView) View() string {
	s := v.styles
	state := v.ctrl.State()
	contentWidth := styles.ContentWidth(v.width)

	var rows []string
	switch {
	case state.Data == nil && state.Fetch == controller.PhaseError:
		rows = append(rows,
			s.Title.Render("Dashboard"),
			"",
			renderNotice(s, state.Notice, contentWidth),
		)
	case state.Data == nil:
		rows = append(rows, v.spinner.View()+" Loading dashboard...")
	default:
		rows = append(rows, v.renderData(state.Data, contentWidth)...)
		if n := renderNotice(s, state.Notice, contentWidth); n != "" {
			rows = append(rows, "", n)
		}
	}

	rows = append(rows, "", helpLine(s,
		"↵", "open", "p", "projects", "u", "upload", "r", "refresh", "L", "log out", "q", "quit"))

	padded := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return styles.CenterView(padded, v.width, v.height)
}

func (v *DashboardView) renderData(data *controller.DashboardData, width int) []string {
	s := v.styles
	name := "there"
	if data.User != nil && data.User.Name != "" {
		name = data.User.Name
	}

	cardWidth := clamp((width-12)/4, 12, 18)
	card := func(label string, value int) string {
		return s.Card.Width(cardWidth).Render(
			s.CardValue.Render(strconv.Itoa(value)) + "\n" + s.TitleMuted.Render(label))
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Active", data.Stats.ActiveProjects),
		card("Due this week", data.Stats.DueThisWeek),
		card("Tasks done", data.Stats.CompletedTasks),
		card("Projects", data.Stats.TotalProjects),
	)

	rows := []string{
		s.Title.Render(fmt.Sprintf("%s, %s!", data.Greeting, name)),
		s.TitleMuted.Render("Here is where your projects stand."),
		"",
		cards,
		"",
		s.Title.Render("Recently updated"),
	}
	if len(data.Recent) == 0 {
		rows = append(rows, s.TitleMuted.Render("No projects yet. Press 'u' to upload a PDF."))
		return rows
	}

	itemWidth := max(width-4, 20)
	for i, p := range data.Recent {
		line := fmt.Sprintf("%s  %s  %d%%", p.Title, styles.Badge(string(p.Status)), p.Progress())
		style := s.ListItem.Width(itemWidth)
		if i == v.cursor {
			style = s.ListSelected.Width(itemWidth)
		}
		rows = append(rows, style.Render(line))
	}
	return rows
}
