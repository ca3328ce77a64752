package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tgienger/taskdeck/internal/session"
)

// prompt returns value when set, otherwise reads one line from stdin
func (app *App) prompt(cmd *cobra.Command, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	if app.in == nil {
		app.in = bufio.NewReader(cmd.InOrStdin())
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	line, err := app.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Swapped in tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// promptSecret is prompt without echo when stdin is a terminal
func (app *App) promptSecret(cmd *cobra.Command, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		return app.prompt(cmd, value, label)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	b, err := readPassword(int(f.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}

type messageOut struct {
	Message string `json:"message"`
}

func printMessage(cmd *cobra.Command, app *App, msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return writeOut(cmd, app, messageOut{Message: msg}, func(w io.Writer) {
		fmt.Fprintln(w, msg)
	})
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := app.prompt(cmd, email, "Email")
			if err != nil {
				return err
			}
			password, err := app.promptSecret(cmd, password, "Password")
			if err != nil {
				return err
			}
			res, err := app.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, res.User, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s <%s>\n", res.User.Name, res.User.Email)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.session.Logout(); err != nil {
				return err
			}
			return printMessage(cmd, app, "", "Logged out")
		},
	}
}

type whoamiOut struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role,omitempty"`
	Verified      bool       `json:"isEmailVerified"`
	TokenExpires  *time.Time `json:"tokenExpiresAt,omitempty"`
	Authenticated bool       `json:"authenticated"`
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored user and when the session token expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.session.CurrentUser()
			if err != nil {
				return err
			}
			if user == nil || !app.session.IsAuthenticated() {
				return writeOut(cmd, app, whoamiOut{}, func(w io.Writer) {
					fmt.Fprintln(w, "Not logged in")
				})
			}

			out := whoamiOut{
				ID:            user.ID,
				Name:          user.Name,
				Email:         user.Email,
				Role:          user.Role,
				Verified:      user.IsEmailVerified,
				Authenticated: true,
			}
			if exp, ok := app.session.TokenExpiry(); ok {
				out.TokenExpires = &exp
			}
			return writeOut(cmd, app, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s <%s>\n", out.Name, out.Email)
				if out.Role != "" {
					fmt.Fprintf(w, "role: %s\n", out.Role)
				}
				fmt.Fprintf(w, "email verified: %t\n", out.Verified)
				if out.TokenExpires != nil {
					state := "expires"
					if out.TokenExpires.Before(time.Now()) {
						state = "expired"
					}
					fmt.Fprintf(w, "token %s: %s\n", state, out.TokenExpires.Local().Format(time.RFC1123))
				}
			})
		},
	}
}

func newRegisterCmd(app *App) *cobra.Command {
	var req session.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is emailed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Name, err = app.prompt(cmd, req.Name, "Name"); err != nil {
				return err
			}
			if req.Email, err = app.prompt(cmd, req.Email, "Email"); err != nil {
				return err
			}
			if req.Password, err = app.promptSecret(cmd, req.Password, "Password"); err != nil {
				return err
			}
			if req.ConfirmPassword, err = app.promptSecret(cmd, req.ConfirmPassword, "Confirm password"); err != nil {
				return err
			}
			res, err := app.session.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, res.User, func(w io.Writer) {
				fmt.Fprintf(w, "Account created for %s. Check your email, then run `taskdeck verify`.\n", req.Email)
			})
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "Password again (prompted when omitted)")
	return cmd
}

func newVerifyCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "verify <code>",
		Short: "Verify your email with the 6-digit code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := app.prompt(cmd, email, "Email")
			if err != nil {
				return err
			}
			msg, err := app.session.VerifyEmail(cmd.Context(), email, args[0])
			if err != nil {
				return err
			}
			return printMessage(cmd, app, msg, "Email verified. You can now log in.")
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newResendCodeCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend-code",
		Short: "Send a new verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := app.prompt(cmd, email, "Email")
			if err != nil {
				return err
			}
			msg, err := app.session.ResendVerification(cmd.Context(), email)
			if err != nil {
				return err
			}
			return printMessage(cmd, app, msg, "Verification code sent.")
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newForgotPasswordCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := app.prompt(cmd, email, "Email")
			if err != nil {
				return err
			}
			msg, err := app.session.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			return printMessage(cmd, app, msg, "If the account exists, a reset link has been sent.")
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newResetPasswordCmd(app *App) *cobra.Command {
	var password, confirm string

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with the emailed reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := app.promptSecret(cmd, password, "New password")
			if err != nil {
				return err
			}
			confirm, err := app.promptSecret(cmd, confirm, "Confirm password")
			if err != nil {
				return err
			}
			msg, err := app.session.ResetPassword(cmd.Context(), args[0], password, confirm)
			if err != nil {
				return err
			}
			return printMessage(cmd, app, msg, "Password reset. You can now log in.")
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "New password again (prompted when omitted)")
	return cmd
}

func newPasswdCmd(app *App) *cobra.Command {
	var current, next, confirm string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			current, err := app.promptSecret(cmd, current, "Current password")
			if err != nil {
				return err
			}
			next, err := app.promptSecret(cmd, next, "New password")
			if err != nil {
				return err
			}
			confirm, err := app.promptSecret(cmd, confirm, "Confirm password")
			if err != nil {
				return err
			}
			msg, err := app.session.ChangePassword(cmd.Context(), current, next, confirm)
			if err != nil {
				return err
			}
			return printMessage(cmd, app, msg, "Password changed.")
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Current password (prompted when omitted)")
	cmd.Flags().StringVar(&next, "new", "", "New password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "New password again (prompted when omitted)")
	return cmd
}

func newProfileCmd(app *App) *cobra.Command {
	var name, picture string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile, or update it with --name / --picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}

			var upd session.ProfileUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("picture") {
				upd.ProfilePicture = &picture
			}

			user, err := app.session.Profile(cmd.Context())
			if upd.Name != nil || upd.ProfilePicture != nil {
				user, err = app.session.UpdateProfile(cmd.Context(), upd)
			}
			if err != nil {
				return err
			}
			return writeOut(cmd, app, user, func(w io.Writer) {
				fmt.Fprintf(w, "%s <%s>\n", user.Name, user.Email)
				fmt.Fprintf(w, "member since %s\n", user.CreatedAt.Local().Format("Jan 2, 2006"))
				if user.LastLogin != nil {
					fmt.Fprintf(w, "last login %s\n", user.LastLogin.Local().Format("Jan 2, 2006 3:04 PM"))
				}
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&picture, "picture", "", "New profile picture URL")
	return cmd
}
