package views

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// Stamped is implemented by messages addressed to one view instance. The
// root model drops them once that view has been replaced.
type Stamped interface {
	Generation() int
}

// DoneMsg reports that a background call started by a view returned
type DoneMsg struct {
	Gen int
	Op  string
	Err error
}

func (m DoneMsg) Generation() int { return m.Gen }

// Navigation messages handled by the root model
type (
	OpenDashboard struct{}
	OpenProjects  struct{}
	OpenUpload    struct{}
	OpenProject   struct{ ID string }
	LoggedIn      struct{}
	LogoutRequest struct{}
)

// run executes fn off the update loop and reports the result as a DoneMsg
func run(gen int, op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return DoneMsg{Gen: gen, Op: op, Err: fn(context.Background())}
	}
}

func navigate(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// renderNotice renders a controller notification, or nothing
func renderNotice(s *styles.Styles, n *controller.Notification, width int) string {
	if n == nil {
		return ""
	}
	style := s.NoticeInfo
	switch n.Kind {
	case controller.NotifySuccess:
		style = s.NoticeSuccess
	case controller.NotifyError:
		style = s.NoticeError
	}
	body := lipgloss.NewStyle().Bold(true).Render(n.Title)
	if n.Body != "" {
		body += "\n" + n.Body
	}
	return style.Width(clamp(width-4, 20, 76)).Render(body)
}

// renderProgress draws a static bar at pct percent
func renderProgress(pct, width int) string {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(clamp(width, 10, 60)),
	)
	return bar.ViewAs(float64(clamp(pct, 0, 100)) / 100)
}

// Cache glamour renderers by width
var renderers sync.Map // map[int]*glamour.TermRenderer

func markdownRenderer(width int) (*glamour.TermRenderer, error) {
	if cached, ok := renderers.Load(width); ok {
		return cached.(*glamour.TermRenderer), nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	renderers.Store(width, r)
	return r, nil
}

// renderMarkdown renders text as markdown, falling back to the raw text
func renderMarkdown(s *styles.Styles, text string, width int) string {
	if strings.TrimSpace(text) == "" {
		return s.TitleMuted.Italic(true).Render("No description")
	}
	r, err := markdownRenderer(width)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

// helpLine renders "key label • key label" pairs
func helpLine(s *styles.Styles, pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, s.HelpKey.Render(pairs[i])+" "+s.HelpDesc.Render(pairs[i+1]))
	}
	return s.Help.Render(strings.Join(parts, " • "))
}

// confirmDialog renders the centered yes/no prompt
func confirmDialog(s *styles.Styles, title, subject string, width, height int) string {
	contentWidth := styles.ContentWidth(width)
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(title),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q will be removed.", subject)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)
	centered := lipgloss.Place(contentWidth, height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, width, height)
}

// helpPopup renders the keyboard shortcut overlay from key/description pairs
func helpPopup(s *styles.Styles, width, height int, pairs ...string) string {
	contentWidth := styles.ContentWidth(width)

	items := []string{s.Title.Render("Keyboard Shortcuts"), ""}
	for i := 0; i+1 < len(pairs); i += 2 {
		items = append(items, s.HelpKey.Width(8).Render(pairs[i])+s.HelpDesc.Render(pairs[i+1]))
	}
	items = append(items, "", s.TitleMuted.Render("Press any key to close"))

	centered := lipgloss.Place(contentWidth, height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
	return styles.CenterView(centered, width, height)
}
