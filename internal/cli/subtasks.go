package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/projects"
)

func newSubtasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subtasks",
		Aliases: []string{"subtask", "st"},
		Short:   "Subtask commands (tasks and subtasks are addressed by 1-based position)",
	}
	cmd.AddCommand(newSubtasksAddCmd(app))
	cmd.AddCommand(newSubtasksUpdateCmd(app))
	cmd.AddCommand(newSubtasksToggleCmd(app))
	cmd.AddCommand(newSubtasksDeleteCmd(app))
	return cmd
}

func newSubtasksAddCmd(app *App) *cobra.Command {
	var name, status, priority string

	cmd := &cobra.Command{
		Use:   "add <project-id> <task>",
		Short: "Append a subtask to a main task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			in := projects.SubtaskInput{Name: name}
			var err error
			if in.Status, err = parseTaskStatus(status); err != nil {
				return err
			}
			if in.Priority, err = parsePriority(priority); err != nil {
				return err
			}

			v, ref, err := app.loadTask(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if err := v.AddSubtask(cmd.Context(), ref, in); err != nil {
				return err
			}
			return writeTaskResult(cmd, app, v, ref, "Added subtask to")
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Subtask name")
	cmd.Flags().StringVar(&status, "status", "", "not-started, in-progress or completed")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSubtasksUpdateCmd(app *App) *cobra.Command {
	var name, status, priority string

	cmd := &cobra.Command{
		Use:   "update <project-id> <task> <subtask>",
		Short: "Change fields of a subtask",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}

			var patch projects.SubtaskPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("status") {
				s, err := parseTaskStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &s
			}
			if cmd.Flags().Changed("priority") {
				p, err := parsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if patch.Name == nil && patch.Status == nil && patch.Priority == nil {
				return errors.New("nothing to update; pass --name, --status or --priority")
			}

			v, ref, err := app.loadSubtask(cmd, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if err := v.UpdateSubtask(cmd.Context(), ref, patch); err != nil {
				return err
			}
			return writeTaskResult(cmd, app, v, ref.Task, "Updated subtask of")
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&status, "status", "", "not-started, in-progress or completed")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	return cmd
}

func newSubtasksToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <project-id> <task> <subtask>",
		Short: "Flip a subtask between completed and not started",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			v, ref, err := app.loadSubtask(cmd, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if err := v.ToggleSubtask(cmd.Context(), ref); err != nil {
				return err
			}
			return writeTaskResult(cmd, app, v, ref.Task, "Toggled subtask of")
		},
	}
}

func newSubtasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <task> <subtask>",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			v, ref, err := app.loadSubtask(cmd, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if err := v.DeleteSubtask(cmd.Context(), ref); err != nil {
				return err
			}
			return printMessage(cmd, app, "", fmt.Sprintf("Deleted subtask %d.%d: %s", ref.Task.Index+1, ref.Index+1, ref.Name))
		},
	}
}

// loadSubtask fetches the project and takes a reference to the subtask at
// 1-based positions task and sub
func (app *App) loadSubtask(cmd *cobra.Command, projectID, task, sub string) (*controller.ProjectView, controller.SubtaskRef, error) {
	j, err := parsePosition("subtask", sub)
	if err != nil {
		return nil, controller.SubtaskRef{}, err
	}
	v, tref, err := app.loadTask(cmd, projectID, task)
	if err != nil {
		return nil, controller.SubtaskRef{}, err
	}
	p := v.Project()
	ref, ok := controller.SubtaskRefAt(p, tref.Index, j)
	if !ok {
		return nil, controller.SubtaskRef{}, fmt.Errorf("task %s has %d subtasks; no subtask %s",
			task, len(p.MainTasks[tref.Index].Subtasks), sub)
	}
	return v, ref, nil
}
