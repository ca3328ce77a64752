package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/config"
	"github.com/tgienger/taskdeck/internal/db"
	"github.com/tgienger/taskdeck/internal/logging"
	"github.com/tgienger/taskdeck/internal/projects"
	"github.com/tgienger/taskdeck/internal/session"
	"github.com/tgienger/taskdeck/internal/ui"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

// App carries the persistent flags and the services built from them
type App struct {
	APIURL     string
	ConfigPath string
	DBPath     string
	JSON       bool

	cfg      *config.Config
	logger   *slog.Logger
	logFile  io.Closer
	db       *db.DB
	client   *api.Client
	session  *session.Store
	projects *projects.Service
	in       *bufio.Reader
}

// NewRootCmd builds the taskdeck command tree
func NewRootCmd(version string) *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "taskdeck",
		Short:         "Terminal client for your projects, tasks and PDF imports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskdeck

  # Sign in, then list projects as JSON
  taskdeck login --email ada@example.com
  taskdeck projects list --json

  # Create a project from a PDF brief
  taskdeck projects upload ./brief.pdf
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup()
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "Backend base URL (overrides config and TASKDECK_API_URL)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TASKDECK_CONFIG", ""), "Path to config.yaml")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("TASKDECK_DB", ""), "Path to the local database (advanced)")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print JSON instead of text")
	_ = cmd.PersistentFlags().MarkHidden("db")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newVerifyCmd(app))
	cmd.AddCommand(newResendCodeCmd(app))
	cmd.AddCommand(newForgotPasswordCmd(app))
	cmd.AddCommand(newResetPasswordCmd(app))
	cmd.AddCommand(newPasswdCmd(app))
	cmd.AddCommand(newProfileCmd(app))
	cmd.AddCommand(newSummaryCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newSubtasksCmd(app))
	cmd.AddCommand(newCommentsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	closeAfterRun(cmd, app)
	return cmd
}

// closeAfterRun wraps every RunE so the database and log file are closed
// even when the command fails. Cobra skips post-run hooks on error.
func closeAfterRun(cmd *cobra.Command, app *App) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if cerr := app.close(); err == nil {
				return cerr
			}
			return err
		}
	}
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, app)
	}
}

// setup loads config, opens the log file and the local database and wires
// the backend services
func (app *App) setup() error {
	var err error
	if app.ConfigPath != "" {
		app.cfg, err = config.LoadFile(app.ConfigPath)
	} else {
		app.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if app.APIURL != "" {
		app.cfg.APIURL = app.APIURL
	}

	app.logger, app.logFile, err = logging.Init(app.cfg.LogLevel)
	if err != nil {
		// Logging is best effort; the command still runs
		app.logger = logging.Discard()
		app.logFile = nil
	}

	if app.DBPath != "" {
		app.db, err = db.Open(app.DBPath)
	} else {
		app.db, err = db.New()
	}
	if err != nil {
		app.close()
		return fmt.Errorf("open database: %w", err)
	}

	app.client = api.NewClient(app.cfg.APIURL,
		api.WithTimeout(app.cfg.RequestTimeout),
		api.WithLogger(app.logger),
	)
	app.session = session.NewStore(app.client, app.db, app.logger)
	app.projects = projects.NewService(app.client)
	app.logger.Debug("taskdeck started", "api_url", app.cfg.APIURL)
	return nil
}

func (app *App) close() error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
		app.db = nil
	}
	if app.logFile != nil {
		errs = append(errs, app.logFile.Close())
		app.logFile = nil
	}
	return errors.Join(errs...)
}

func runTUI(app *App) error {
	if err := styles.Use(app.cfg.Theme); err != nil {
		app.logger.Warn("falling back to the default theme", "err", err)
	}

	tui := ui.NewApp(ui.Deps{
		Settings:     app.db,
		Session:      app.session,
		Projects:     app.projects,
		Auditor:      app.db,
		Logger:       app.logger,
		PageSize:     app.cfg.PageSize,
		AutoComplete: app.cfg.AutoCompleteEnabled(),
	})
	p := tea.NewProgram(tui, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// requireLogin fails early when no session is stored
func (app *App) requireLogin() error {
	if !app.session.IsAuthenticated() {
		return errors.New("not logged in; run `taskdeck login` first")
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut prints v as JSON with --json, otherwise calls text
func writeOut(cmd *cobra.Command, app *App, v any, text func(w io.Writer)) error {
	if app.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(cmd.OutOrStdout())
	return nil
}
