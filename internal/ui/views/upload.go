package views

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/upload"
	"github.com/tgienger/taskdeck/internal/ui/keys"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

const pollInterval = 100 * time.Millisecond

type uploadPollMsg struct{ gen int }

func (m uploadPollMsg) Generation() int { return m.gen }

type redirectMsg struct {
	gen int
	id  string
}

func (m redirectMsg) Generation() int { return m.gen }

// UploadView creates a project from a PDF, or by hand
type UploadView struct {
	ctrl    *controller.ProjectCreate
	gen     int
	styles  *styles.Styles
	keys    keys.KeyMap
	spinner spinner.Model

	width  int
	height int

	manual   bool
	path     textinput.Model
	title    textinput.Model
	desc     textinput.Model
	due      textinput.Model
	focusIdx int
	notice   *controller.Notification
}

func NewUploadView(ctrl *controller.ProjectCreate, gen int) *UploadView {
	path := textinput.New()
	path.Placeholder = "~/Documents/brief.pdf"
	path.CharLimit = 1024
	path.Focus()

	title := textinput.New()
	title.Placeholder = "Project title"
	title.CharLimit = 200

	desc := textinput.New()
	desc.Placeholder = "Description (optional)"
	desc.CharLimit = 1000

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD (optional)"
	due.CharLimit = 10

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)

	ctrl.Reset()
	return &UploadView{
		ctrl:    ctrl,
		gen:     gen,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		spinner: sp,
		path:    path,
		title:   title,
		desc:    desc,
		due:     due,
	}
}

func (v *UploadView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *UploadView) busy() bool {
	st := v.ctrl.State().Status
	return st == controller.UploadUploading || st == controller.UploadProcessing
}

func (v *UploadView) poll() tea.Cmd {
	gen := v.gen
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return uploadPollMsg{gen: gen} })
}

func (v *UploadView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case uploadPollMsg:
		if v.busy() {
			return v, v.poll()
		}
		return v, nil

	case spinner.TickMsg:
		if !v.busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case DoneMsg:
		if id, delay, ok := v.ctrl.Redirect(); ok {
			gen := v.gen
			return v, tea.Tick(delay, func(time.Time) tea.Msg { return redirectMsg{gen: gen, id: id} })
		}
		return v, nil

	case redirectMsg:
		return v, navigate(OpenProject{ID: msg.id})

	case tea.KeyMsg:
		if v.busy() {
			if msg.String() == "ctrl+c" {
				return v, tea.Quit
			}
			return v, nil
		}
		if _, _, ok := v.ctrl.Redirect(); ok {
			// Waiting for the redirect; any key skips the delay
			return v, navigate(OpenProject{ID: v.ctrl.State().Project.ID})
		}

		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			return v, navigate(OpenProjects{})
		case msg.String() == "ctrl+t":
			v.manual = !v.manual
			v.focusIdx = 0
			v.notice = nil
			v.ctrl.Reset()
			v.updateFocus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Tab):
			v.focusIdx = (v.focusIdx + 1) % v.fieldCount()
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.ShiftTab):
			v.focusIdx = (v.focusIdx + v.fieldCount() - 1) % v.fieldCount()
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.Save):
			return v, v.submit()
		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx < v.fieldCount()-1 {
				v.focusIdx++
				v.updateFocus()
				return v, nil
			}
			return v, v.submit()
		}
	}

	var cmd tea.Cmd
	if !v.manual {
		if v.focusIdx == 0 {
			v.path, cmd = v.path.Update(msg)
		}
		return v, cmd
	}
	switch v.focusIdx {
	case 0:
		v.title, cmd = v.title.Update(msg)
	case 1:
		v.desc, cmd = v.desc.Update(msg)
	case 2:
		v.due, cmd = v.due.Update(msg)
	}
	return v, cmd
}

// fieldCount includes the submit button
func (v *UploadView) fieldCount() int {
	if v.manual {
		return 4
	}
	return 2
}

func (v *UploadView) updateFocus() {
	v.path.Blur()
	v.title.Blur()
	v.desc.Blur()
	v.due.Blur()
	if !v.manual {
		if v.focusIdx == 0 {
			v.path.Focus()
		}
		return
	}
	switch v.focusIdx {
	case 0:
		v.title.Focus()
	case 1:
		v.desc.Focus()
	case 2:
		v.due.Focus()
	}
}

func (v *UploadView) submit() tea.Cmd {
	v.notice = nil
	if v.manual {
		title := v.title.Value()
		desc := v.desc.Value()
		due, err := parseDate(v.due.Value())
		if err != nil {
			v.notice = &controller.Notification{Kind: controller.NotifyError, Title: "Invalid due date", Body: err.Error()}
			return nil
		}
		return tea.Batch(v.spinner.Tick, run(v.gen, "create", func(ctx context.Context) error {
			_, err := v.ctrl.CreateManual(ctx, title, desc, due)
			return err
		}))
	}

	path := expandHome(strings.TrimSpace(v.path.Value()))
	if path == "" {
		v.notice = &controller.Notification{Kind: controller.NotifyError, Title: "No file selected", Body: upload.ErrNoFile.Error()}
		return nil
	}
	return tea.Batch(v.spinner.Tick, v.poll(), run(v.gen, "upload", func(ctx context.Context) error {
		_, err := v.ctrl.Upload(ctx, path)
		return err
	}))
}

// parseDate reads an optional YYYY-MM-DD date in local time
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("use the form YYYY-MM-DD")
	}
	return &t, nil
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func (v *UploadView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 60)
	state := v.ctrl.State()

	heading := "Upload Project PDF"
	sub := "The backend extracts the tasks from your document."
	if v.manual {
		heading = "New Project"
		sub = "Create an empty project and add tasks yourself."
	}
	rows := []string{s.Title.Render(heading), s.TitleMuted.Render(sub), ""}

	field := func(label string, idx int, in textinput.Model) {
		style := s.Input
		if v.focusIdx == idx {
			style = s.InputFocused
		}
		rows = append(rows, label, style.Width(inputWidth).Render(in.View()), "")
	}
	if v.manual {
		field("Title:", 0, v.title)
		field("Description:", 1, v.desc)
		field("Due date:", 2, v.due)
	} else {
		field("PDF file:", 0, v.path)
	}

	btn := s.Button
	if v.focusIdx == v.fieldCount()-1 {
		btn = s.ButtonFocused
	}
	label := " Upload "
	if v.manual {
		label = " Create "
	}
	rows = append(rows, btn.Render(label), "")

	if !v.manual && state.Status != controller.UploadIdle {
		status := state.Status.String()
		if v.busy() {
			status = v.spinner.View() + " " + status
		}
		rows = append(rows, renderProgress(state.Status.Percent(), inputWidth), s.TitleMuted.Render(status))
		if f := state.File; f != nil {
			meta := fmt.Sprintf("%s • %s", f.Name, upload.HumanSize(f.Size))
			if f.Pages > 0 {
				meta += fmt.Sprintf(" • %d pages", f.Pages)
			}
			rows = append(rows, s.TitleMuted.Render(meta))
		}
		rows = append(rows, "")
	} else if v.manual && v.busy() {
		rows = append(rows, v.spinner.View()+" Creating...", "")
	}

	notice := v.notice
	if notice == nil {
		notice = state.Notice
	}
	if n := renderNotice(s, notice, inputWidth+4); n != "" {
		rows = append(rows, n, "")
	}
	if _, _, ok := v.ctrl.Redirect(); ok {
		rows = append(rows, s.TitleMuted.Render("Opening project..."))
	}

	other := "ctrl+t manual"
	if v.manual {
		other = "ctrl+t pdf"
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • ↵: submit • "+other+" • Esc: back"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}
