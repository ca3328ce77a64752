package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskdeck/internal/models"
)

func newCommentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Comments on main tasks and subtasks",
	}
	cmd.AddCommand(newCommentsListCmd(app))
	cmd.AddCommand(newCommentsAddCmd(app))
	return cmd
}

func newCommentsListCmd(app *App) *cobra.Command {
	var subtask int

	cmd := &cobra.Command{
		Use:   "list <project-id> <task>",
		Short: "List comments on a task, or on one of its subtasks with --subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}

			var comments []models.Comment
			if subtask > 0 {
				v, ref, err := app.loadSubtask(cmd, args[0], args[1], strconv.Itoa(subtask))
				if err != nil {
					return err
				}
				if comments, err = v.SubtaskComments(cmd.Context(), ref); err != nil {
					return err
				}
			} else {
				v, ref, err := app.loadTask(cmd, args[0], args[1])
				if err != nil {
					return err
				}
				if comments, err = v.TaskComments(cmd.Context(), ref); err != nil {
					return err
				}
			}
			if comments == nil {
				comments = []models.Comment{}
			}

			return writeOut(cmd, app, comments, func(w io.Writer) {
				if len(comments) == 0 {
					fmt.Fprintln(w, "No comments.")
					return
				}
				for _, c := range comments {
					author := c.Author
					if author == "" {
						author = "unknown"
					}
					fmt.Fprintf(w, "%s  %s\n", author, c.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM"))
					for _, line := range strings.Split(strings.TrimSpace(c.Text), "\n") {
						fmt.Fprintf(w, "  %s\n", line)
					}
					fmt.Fprintln(w)
				}
			})
		},
	}

	cmd.Flags().IntVar(&subtask, "subtask", 0, "1-based subtask position")
	return cmd
}

func newCommentsAddCmd(app *App) *cobra.Command {
	var text string
	var subtask int

	cmd := &cobra.Command{
		Use:   "add <project-id> <task>",
		Short: "Comment on a task, or on one of its subtasks with --subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("comment text is empty")
			}

			if subtask > 0 {
				v, ref, err := app.loadSubtask(cmd, args[0], args[1], strconv.Itoa(subtask))
				if err != nil {
					return err
				}
				if err := v.AddSubtaskComment(cmd.Context(), ref, text); err != nil {
					return err
				}
				return printMessage(cmd, app, "", fmt.Sprintf("Commented on subtask %d.%d", ref.Task.Index+1, ref.Index+1))
			}

			v, ref, err := app.loadTask(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if err := v.AddTaskComment(cmd.Context(), ref, text); err != nil {
				return err
			}
			return printMessage(cmd, app, "", fmt.Sprintf("Commented on task %d", ref.Index+1))
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Comment text")
	cmd.Flags().IntVar(&subtask, "subtask", 0, "1-based subtask position")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}
