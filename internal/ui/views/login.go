package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/session"
	"github.com/tgienger/taskdeck/internal/ui/keys"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

// Authenticator logs a user in
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*session.AuthResult, error)
}

// LoginView asks for credentials
type LoginView struct {
	auth   Authenticator
	gen    int
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	email    textinput.Model
	password textinput.Model
	focusIdx int // 0=email, 1=password, 2=submit
	busy     bool
	notice   *controller.Notification
}

// NewLoginView creates the login screen. notice is shown above the form,
// e.g. after a session expired.
func NewLoginView(auth Authenticator, gen int, notice *controller.Notification) *LoginView {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	return &LoginView{
		auth:     auth,
		gen:      gen,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		email:    email,
		password: password,
		notice:   notice,
	}
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case DoneMsg:
		v.busy = false
		if msg.Err != nil {
			v.notice = &controller.Notification{
				Kind:  controller.NotifyError,
				Title: "Login failed",
				Body:  api.Message(msg.Err),
			}
			v.password.Reset()
			v.focusIdx = 1
			v.updateFocus()
			return v, nil
		}
		return v, navigate(LoggedIn{})

	case tea.KeyMsg:
		if v.busy {
			if msg.String() == "ctrl+c" {
				return v, tea.Quit
			}
			return v, nil
		}
		switch {
		case msg.String() == "ctrl+c", key.Matches(msg, v.keys.Back):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Tab), msg.String() == "down":
			v.focusIdx = (v.focusIdx + 1) % 3
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.ShiftTab), msg.String() == "up":
			v.focusIdx = (v.focusIdx + 2) % 3
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.Save):
			return v, v.submit()
		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx < 2 {
				v.focusIdx++
				v.updateFocus()
				return v, nil
			}
			return v, v.submit()
		}
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.email, cmd = v.email.Update(msg)
	case 1:
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) submit() tea.Cmd {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	v.busy = true
	v.notice = nil
	return run(v.gen, "login", func(ctx context.Context) error {
		_, err := v.auth.Login(ctx, email, password)
		return err
	})
}

func (v *LoginView) updateFocus() {
	v.email.Blur()
	v.password.Blur()
	switch v.focusIdx {
	case 0:
		v.email.Focus()
	case 1:
		v.password.Focus()
	}
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	emailStyle, passStyle, btnStyle := s.Input, s.Input, s.Button
	switch v.focusIdx {
	case 0:
		emailStyle = s.InputFocused
	case 1:
		passStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	}

	button := btnStyle.Render(" Sign in ")
	if v.busy {
		button = s.TitleMuted.Render("Signing in...")
	}

	rows := []string{
		s.Title.Render("taskdeck"),
		s.TitleMuted.Render("Sign in to your account"),
		"",
	}
	if n := renderNotice(s, v.notice, inputWidth+4); n != "" {
		rows = append(rows, n, "")
	}
	rows = append(rows,
		"Email:",
		emailStyle.Width(inputWidth).Render(v.email.View()),
		"",
		"Password:",
		passStyle.Width(inputWidth).Render(v.password.View()),
		"",
		button,
		"",
		s.TitleMuted.Render("Tab: next • ↵: sign in • Esc: quit"),
		s.TitleMuted.Render("No account? Run `taskdeck register`."),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}
