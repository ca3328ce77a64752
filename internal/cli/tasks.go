package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Main task commands (tasks are addressed by their 1-based position)",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksStatusCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

type taskOut struct {
	Position int             `json:"position"`
	Task     models.MainTask `json:"task"`
}

type columnOut struct {
	Status models.TaskStatus `json:"status"`
	Tasks  []taskOut         `json:"tasks"`
}

type dayOut struct {
	Day   string    `json:"day,omitempty"`
	Tasks []taskOut `json:"tasks"`
}

func newTasksListCmd(app *App) *cobra.Command {
	var query, mode string
	var hideCompleted bool

	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's tasks as a list, board or calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			p, err := app.projects.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			items := controller.FilterTasks(p, query, hideCompleted)

			switch strings.ToLower(mode) {
			case "", "list":
				out := toTaskOut(items)
				return writeOut(cmd, app, out, func(w io.Writer) {
					if len(out) == 0 {
						fmt.Fprintln(w, "No tasks.")
						return
					}
					for _, t := range out {
						printTaskLine(w, "", t)
					}
				})

			case "board":
				cols := controller.BoardColumns(items)
				out := make([]columnOut, len(cols))
				for i, c := range cols {
					out[i] = columnOut{Status: c.Status, Tasks: toTaskOut(c.Items)}
				}
				return writeOut(cmd, app, out, func(w io.Writer) {
					for _, c := range out {
						fmt.Fprintf(w, "%s (%d)\n", models.Label(string(c.Status)), len(c.Tasks))
						for _, t := range c.Tasks {
							printTaskLine(w, "  ", t)
						}
					}
				})

			case "calendar":
				groups := controller.CalendarGroups(items)
				out := make([]dayOut, len(groups))
				for i, g := range groups {
					out[i] = dayOut{Tasks: toTaskOut(g.Items)}
					if !g.Day.IsZero() {
						out[i].Day = g.Day.Format(time.DateOnly)
					}
				}
				return writeOut(cmd, app, out, func(w io.Writer) {
					for _, d := range out {
						label := d.Day
						if label == "" {
							label = "No due date"
						}
						fmt.Fprintln(w, label)
						for _, t := range d.Tasks {
							printTaskLine(w, "  ", t)
						}
					}
				})

			default:
				return fmt.Errorf("unknown mode %q (want list, board or calendar)", mode)
			}
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Only tasks whose name contains this text")
	cmd.Flags().StringVar(&mode, "mode", "list", "list, board or calendar")
	cmd.Flags().BoolVar(&hideCompleted, "hide-completed", false, "Leave out completed tasks")
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var in projects.MainTaskInput
	var status, priority, due string

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Append a main task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			var err error
			if in.Status, err = parseTaskStatus(status); err != nil {
				return err
			}
			if in.Priority, err = parsePriority(priority); err != nil {
				return err
			}
			if in.DueDate, err = parseDue(due); err != nil {
				return err
			}

			v := app.projectView(args[0])
			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			if err := v.AddTask(cmd.Context(), in); err != nil {
				return err
			}
			p := v.Project()
			n := len(p.MainTasks)
			return writeOut(cmd, app, p, func(w io.Writer) {
				fmt.Fprintf(w, "Added task %d: %s\n", n, in.Name)
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Task name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Task description (markdown)")
	cmd.Flags().StringVar(&status, "status", string(models.TaskNotStarted), "not-started, in-progress or completed")
	cmd.Flags().StringVar(&priority, "priority", string(models.PriorityMedium), "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var name, description, status, priority, due string

	cmd := &cobra.Command{
		Use:   "update <project-id> <task>",
		Short: "Change fields of a main task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}

			var patch projects.MainTaskPatch
			changed := false
			if cmd.Flags().Changed("name") {
				patch.Name = &name
				changed = true
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
				changed = true
			}
			if cmd.Flags().Changed("status") {
				s, err := parseTaskStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &s
				changed = true
			}
			if cmd.Flags().Changed("priority") {
				pr, err := parsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &pr
				changed = true
			}
			if cmd.Flags().Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				patch.DueDate = d
				changed = true
			}
			if !changed {
				return errors.New("nothing to update; pass --name, --description, --status, --priority or --due")
			}

			v, ref, err := app.loadTask(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if err := v.UpdateTask(cmd.Context(), ref, patch); err != nil {
				return err
			}
			return writeTaskResult(cmd, app, v, ref, "Updated")
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "not-started, in-progress or completed")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	return cmd
}

func newTasksStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-id> <task> [status]",
		Short: "Set a task's status, or advance it to the next one when status is omitted",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			v, ref, err := app.loadTask(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if len(args) == 3 {
				s, perr := parseTaskStatus(args[2])
				if perr != nil {
					return perr
				}
				err = v.SetTaskStatus(cmd.Context(), ref, s)
			} else {
				err = v.CycleTaskStatus(cmd.Context(), ref)
			}
			if err != nil {
				return err
			}
			return writeTaskResult(cmd, app, v, ref, "Updated")
		},
	}
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <task>",
		Short: "Delete a main task; later tasks move up one position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			v, ref, err := app.loadTask(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if err := v.DeleteTask(cmd.Context(), ref); err != nil {
				return err
			}
			return printMessage(cmd, app, "", fmt.Sprintf("Deleted task %d: %s", ref.Index+1, ref.Name))
		},
	}
}

// loadTask fetches the project and takes a reference to the task at the
// 1-based position pos
func (app *App) loadTask(cmd *cobra.Command, projectID, pos string) (*controller.ProjectView, controller.TaskRef, error) {
	i, err := parsePosition("task", pos)
	if err != nil {
		return nil, controller.TaskRef{}, err
	}
	v := app.projectView(projectID)
	if err := v.Load(cmd.Context()); err != nil {
		return nil, controller.TaskRef{}, err
	}
	p := v.Project()
	ref, ok := controller.TaskRefAt(p, i)
	if !ok {
		return nil, controller.TaskRef{}, fmt.Errorf("project has %d tasks; no task %s", len(p.MainTasks), pos)
	}
	return v, ref, nil
}

// writeTaskResult prints the task ref points at after the refetch
func writeTaskResult(cmd *cobra.Command, app *App, v *controller.ProjectView, ref controller.TaskRef, verb string) error {
	p := v.Project()
	i, err := ref.Resolve(p)
	if err != nil {
		// the refetch moved it; report the whole project
		return writeOut(cmd, app, p, func(w io.Writer) {
			fmt.Fprintf(w, "%s task %q\n", verb, ref.Name)
		})
	}
	out := taskOut{Position: i + 1, Task: p.MainTasks[i]}
	return writeOut(cmd, app, out, func(w io.Writer) {
		fmt.Fprintf(w, "%s task ", verb)
		printTaskLine(w, "", out)
		for j, s := range out.Task.Subtasks {
			fmt.Fprintf(w, "   %d.%d %s %s\n", out.Position, j+1, statusMark(s.Status), s.Name)
		}
	})
}

func printTaskLine(w io.Writer, indent string, t taskOut) {
	fmt.Fprintf(w, "%s%d. %s %s", indent, t.Position, statusMark(t.Task.Status), t.Task.Name)
	if t.Task.Priority != "" {
		fmt.Fprintf(w, "  (%s)", t.Task.Priority)
	}
	if n := len(t.Task.Subtasks); n > 0 {
		fmt.Fprintf(w, "  %d/%d subtasks", t.Task.SubtasksCompleted(), n)
	}
	if t.Task.DueDate != nil {
		fmt.Fprintf(w, "  due %s", formatDue(t.Task.DueDate))
	}
	fmt.Fprintln(w)
}

func toTaskOut(items []controller.TaskItem) []taskOut {
	out := make([]taskOut, len(items))
	for i, it := range items {
		out[i] = taskOut{Position: it.Index + 1, Task: it.Task}
	}
	return out
}

// parsePosition converts a 1-based position to an index
func parsePosition(what, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s position %q: want a number starting at 1", what, s)
	}
	return n - 1, nil
}

func parseTaskStatus(s string) (models.TaskStatus, error) {
	if s == "" {
		return "", nil
	}
	st := models.TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (want %s)", s, joinStatuses(models.TaskStatuses))
	}
	return st, nil
}

func parsePriority(s string) (models.Priority, error) {
	if s == "" {
		return "", nil
	}
	p := models.Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (want %s)", s, joinStatuses(models.Priorities))
	}
	return p, nil
}
