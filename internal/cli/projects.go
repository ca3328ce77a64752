package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/db"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
	"github.com/tgienger/taskdeck/internal/upload"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	cmd.AddCommand(newProjectsUploadCmd(app))
	cmd.AddCommand(newProjectsCompleteCmd(app))
	cmd.AddCommand(newProjectsAuditCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects (paginated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			if limit <= 0 {
				limit = app.cfg.PageSize
			}
			res, err := app.projects.List(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, res, func(w io.Writer) {
				if len(res.Projects) == 0 {
					fmt.Fprintln(w, "No projects yet. Create one with `taskdeck projects upload <file.pdf>`.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPROGRESS\tDUE")
				for _, p := range res.Projects {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d%% (%d/%d)\t%s\n",
						p.ID, p.Title, models.Label(string(p.Status)),
						p.Progress(), p.CompletedTasks(), len(p.MainTasks), formatDue(p.DueDate))
				}
				tw.Flush()
				pg := res.Pagination
				fmt.Fprintf(w, "\npage %d of %d (%d projects)\n", pg.Page, max(pg.Pages, 1), pg.Total)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Projects per page (defaults to page_size from config)")
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its tasks and subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			p, err := app.projects.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOut(cmd, app, p, func(w io.Writer) {
				printProject(w, p)
			})
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var title, description, due string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			dueDate, err := parseDue(due)
			if err != nil {
				return err
			}
			c := controller.NewProjectCreate(app.projects, app.logger)
			p, err := c.CreateManual(cmd.Context(), title, description, dueDate)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, p, func(w io.Writer) {
				fmt.Fprintf(w, "Created project %q (%s)\n", p.Title, p.ID)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Project title")
	cmd.Flags().StringVar(&description, "description", "", "Project description (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	var title, description, status, due string

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Change a project's title, description, status or due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}

			var req projects.UpdateProjectRequest
			changed := false
			if cmd.Flags().Changed("title") {
				req.Title = &title
				changed = true
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
				changed = true
			}
			if cmd.Flags().Changed("status") {
				s := models.ProjectStatus(status)
				if !s.Valid() {
					return fmt.Errorf("invalid status %q (want %s)", status, joinStatuses(models.ProjectStatuses))
				}
				req.Status = &s
				changed = true
			}
			if cmd.Flags().Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				req.DueDate = d
				changed = true
			}
			if !changed {
				return errors.New("nothing to update; pass --title, --description, --status or --due")
			}

			v := app.projectView(args[0])
			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			if err := v.UpdateProject(cmd.Context(), req); err != nil {
				return err
			}
			p := v.Project()
			return writeOut(cmd, app, p, func(w io.Writer) {
				fmt.Fprintf(w, "Updated project %q\n", p.Title)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "pending, in-progress or completed")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	return cmd
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and all of its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			if err := app.projects.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printMessage(cmd, app, "", "Deleted project "+args[0])
		},
	}
}

type uploadOut struct {
	File    *fileOut        `json:"file,omitempty"`
	Project *models.Project `json:"project"`
}

type fileOut struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	MIME  string `json:"mime"`
	Pages int    `json:"pages,omitempty"`
}

func newProjectsUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Create a project from a PDF brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			c := controller.NewProjectCreate(app.projects, app.logger)
			p, err := c.Upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			st := c.State()
			out := uploadOut{Project: p}
			if f := st.File; f != nil {
				out.File = &fileOut{Name: f.Name, Size: f.Size, MIME: f.MIME, Pages: f.Pages}
			}
			return writeOut(cmd, app, out, func(w io.Writer) {
				if f := st.File; f != nil {
					fmt.Fprintf(w, "Uploaded %s (%s", f.Name, upload.HumanSize(f.Size))
					if f.Pages > 0 {
						fmt.Fprintf(w, ", %d pages", f.Pages)
					}
					fmt.Fprintln(w, ")")
				}
				fmt.Fprintf(w, "Created project %q (%s) with %d tasks\n", p.Title, p.ID, len(p.MainTasks))
			})
		},
	}
}

func newProjectsCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <project-id>",
		Short: "Mark a project completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			v := controller.NewProjectView(app.projects, app.db, app.logger, false, args[0])
			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			if err := v.MarkCompleted(cmd.Context()); err != nil {
				if errors.Is(err, controller.ErrNotPending) {
					return fmt.Errorf("project %s is already completed", args[0])
				}
				return err
			}
			p := v.Project()
			return writeOut(cmd, app, p, func(w io.Writer) {
				fmt.Fprintf(w, "Marked %q completed (%d/%d tasks done)\n", p.Title, p.CompletedTasks(), len(p.MainTasks))
			})
		},
	}
}

func newProjectsAuditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <project-id>",
		Short: "Show completion writes this client made for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.db.ListAudit(args[0])
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []db.AuditEntry{}
			}
			return writeOut(cmd, app, entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "No audit entries.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "WHEN\tACTION\tDETAIL")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Action, e.Detail)
				}
				tw.Flush()
			})
		},
	}
}

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard: greeting, counters and recently updated projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			d := controller.NewDashboard(app.session, app.projects, app.logger)
			data, err := d.Load(cmd.Context())
			if err != nil {
				return err
			}
			return writeOut(cmd, app, data, func(w io.Writer) {
				name := "there"
				if data.User != nil && data.User.Name != "" {
					name = data.User.Name
				}
				fmt.Fprintf(w, "%s, %s\n\n", data.Greeting, name)
				fmt.Fprintf(w, "active projects:  %d\n", data.Stats.ActiveProjects)
				fmt.Fprintf(w, "due this week:    %d\n", data.Stats.DueThisWeek)
				fmt.Fprintf(w, "completed tasks:  %d\n", data.Stats.CompletedTasks)
				fmt.Fprintf(w, "total projects:   %d\n", data.Stats.TotalProjects)
				if len(data.Recent) == 0 {
					return
				}
				fmt.Fprintln(w, "\nRecently updated")
				for _, p := range data.Recent {
					fmt.Fprintf(w, "  %-24s %3d%%  %s\n", p.Title, p.Progress(), p.ID)
				}
			})
		},
	}
}

// projectView builds a controller for one CLI invocation
func (app *App) projectView(id string) *controller.ProjectView {
	return controller.NewProjectView(app.projects, app.db, app.logger, app.cfg.AutoCompleteEnabled(), id)
}

func printProject(w io.Writer, p *models.Project) {
	fmt.Fprintf(w, "%s  [%s]\n", p.Title, models.Label(string(p.Status)))
	fmt.Fprintf(w, "id: %s\n", p.ID)
	fmt.Fprintf(w, "progress: %d%% (%d/%d tasks)\n", p.Progress(), p.CompletedTasks(), len(p.MainTasks))
	if p.DueDate != nil {
		fmt.Fprintf(w, "due: %s\n", formatDue(p.DueDate))
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		fmt.Fprintf(w, "\n%s\n", d)
	}
	if len(p.MainTasks) == 0 {
		fmt.Fprintln(w, "\nNo tasks.")
		return
	}
	fmt.Fprintln(w)
	for i, t := range p.MainTasks {
		fmt.Fprintf(w, "%d. %s %s", i+1, statusMark(t.Status), t.Name)
		if t.Priority != "" {
			fmt.Fprintf(w, "  (%s)", t.Priority)
		}
		if t.DueDate != nil {
			fmt.Fprintf(w, "  due %s", formatDue(t.DueDate))
		}
		fmt.Fprintln(w)
		for j, s := range t.Subtasks {
			fmt.Fprintf(w, "   %d.%d %s %s\n", i+1, j+1, statusMark(s.Status), s.Name)
		}
	}
}

func statusMark(s models.TaskStatus) string {
	switch s {
	case models.TaskCompleted:
		return "[x]"
	case models.TaskInProgress:
		return "[~]"
	default:
		return "[ ]"
	}
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateOnly)
}

// parseDue reads a YYYY-MM-DD date in local time; empty means no date
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return &t, nil
}

func joinStatuses[S ~string](list []S) string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}
