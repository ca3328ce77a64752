package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
)

// Audit actions
const (
	ActionAutoComplete  = "auto-complete"
	ActionMarkCompleted = "mark-completed"
)

// ProjectBackend is the subset of the project accessors the project view uses
type ProjectBackend interface {
	Get(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, id string, req projects.UpdateProjectRequest) (*models.Project, error)
	Delete(ctx context.Context, id string) error
	AddMainTask(ctx context.Context, id string, in projects.MainTaskInput) error
	UpdateMainTask(ctx context.Context, id string, i int, patch projects.MainTaskPatch) error
	DeleteMainTask(ctx context.Context, id string, i int) error
	AddSubtask(ctx context.Context, id string, i int, in projects.SubtaskInput) error
	UpdateSubtask(ctx context.Context, id string, i, j int, patch projects.SubtaskPatch) error
	DeleteSubtask(ctx context.Context, id string, i, j int) error
	TaskComments(ctx context.Context, id string, i int) ([]models.Comment, error)
	AddTaskComment(ctx context.Context, id string, i int, in projects.CommentInput) error
	SubtaskComments(ctx context.Context, id string, i, j int) ([]models.Comment, error)
	AddSubtaskComment(ctx context.Context, id string, i, j int, in projects.CommentInput) error
}

// Auditor records writes the client makes without a direct user request
type Auditor interface {
	Audit(projectID, action, detail string) error
}

// ViewMode selects how the task list is laid out
type ViewMode int

const (
	ModeList ViewMode = iota
	ModeBoard
	ModeCalendar
)

// ViewModes lists the modes in toggle order
var ViewModes = []ViewMode{ModeList, ModeBoard, ModeCalendar}

func (m ViewMode) String() string {
	switch m {
	case ModeBoard:
		return "Board"
	case ModeCalendar:
		return "Calendar"
	default:
		return "List"
	}
}

// ProjectViewState is an immutable snapshot for rendering
type ProjectViewState struct {
	Project       *models.Project
	Fetch         Phase
	Write         Phase
	Err           error
	Notice        *Notification
	Deleted       bool
	Mode          ViewMode
	Query         string
	HideCompleted bool

	// Tasks is the filtered task list with original indices
	Tasks             []TaskItem
	Progress          int
	CompletionPending bool
}

// ProjectView drives a single project's screen
type ProjectView struct {
	backend      ProjectBackend
	audit        Auditor
	logger       *slog.Logger
	autoComplete bool
	id           string

	mu            sync.Mutex
	loads         uint64
	applied       uint64
	project       *models.Project
	fetch         Phase
	write         Phase
	completing    bool
	err           error
	notice        *Notification
	deleted       bool
	mode          ViewMode
	query         string
	hideCompleted bool
}

// NewProjectView creates a controller for project id. With autoComplete the
// project is marked completed as soon as a load shows every task completed;
// otherwise the user has to call MarkCompleted. auditor may be nil.
func NewProjectView(backend ProjectBackend, auditor Auditor, logger *slog.Logger, autoComplete bool, id string) *ProjectView {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectView{
		backend:      backend,
		audit:        auditor,
		logger:       logger,
		autoComplete: autoComplete,
		id:           id,
	}
}

// ID returns the project id
func (v *ProjectView) ID() string {
	return v.id
}

// State returns a snapshot of the page
func (v *ProjectView) State() ProjectViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := ProjectViewState{
		Project:       v.project,
		Fetch:         v.fetch,
		Write:         v.write,
		Err:           v.err,
		Notice:        v.notice,
		Deleted:       v.deleted,
		Mode:          v.mode,
		Query:         v.query,
		HideCompleted: v.hideCompleted,
	}
	if v.project != nil {
		s.Tasks = FilterTasks(v.project, v.query, v.hideCompleted)
		s.Progress = v.project.Progress()
		s.CompletionPending = !v.autoComplete && v.project.AllTasksCompleted() &&
			v.project.Status != models.ProjectCompleted
	}
	return s
}

// Project returns the latest project snapshot, nil before the first load
func (v *ProjectView) Project() *models.Project {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.project
}

// Load fetches the project and then runs the completion reconcile. A response
// that lands after a newer one has been applied is dropped.
func (v *ProjectView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.loads++
	seq := v.loads
	v.fetch = PhaseLoading
	v.mu.Unlock()

	p, err := v.backend.Get(ctx, v.id)

	v.mu.Lock()
	if seq <= v.applied {
		if seq == v.loads && v.fetch == PhaseLoading {
			v.fetch = PhaseSuccess
		}
		v.mu.Unlock()
		v.logger.Debug("dropped out-of-order project load", "project_id", v.id, "seq", seq)
		return nil
	}
	v.applied = seq
	if err != nil {
		v.fetch = PhaseError
		v.err = err
		v.notice = errorNotice("Failed to load project", err)
		v.mu.Unlock()
		v.logger.Warn("failed to load project", "project_id", v.id, "err", err)
		return err
	}
	v.project = p
	v.fetch = PhaseSuccess
	v.err = nil
	v.mu.Unlock()

	v.reconcile(ctx)
	return nil
}

// Refresh reloads the project
func (v *ProjectView) Refresh(ctx context.Context) error {
	return v.Load(ctx)
}

// reconcile issues the completion write when every task is done. It runs
// after loads only, so the write happens at most once per observed state.
func (v *ProjectView) reconcile(ctx context.Context) {
	v.mu.Lock()
	p := v.project
	if !v.autoComplete || v.completing || p == nil || !p.AllTasksCompleted() || p.Status == models.ProjectCompleted {
		v.mu.Unlock()
		return
	}
	v.completing = true
	v.mu.Unlock()

	err := v.complete(ctx, p, ActionAutoComplete)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.completing = false
	if err != nil {
		v.err = err
		v.notice = errorNotice("Failed to mark project completed", err)
		return
	}
	v.markCompletedLocked()
	v.notice = &Notification{Kind: NotifySuccess, Title: "Project completed", Body: "All tasks are done."}
}

func (v *ProjectView) complete(ctx context.Context, p *models.Project, action string) error {
	status := models.ProjectCompleted
	if _, err := v.backend.Update(ctx, v.id, projects.UpdateProjectRequest{Status: &status}); err != nil {
		v.logger.Warn("failed to complete project", "project_id", v.id, "action", action, "err", err)
		return err
	}

	// Loads issued before the write may still carry the pending status.
	v.mu.Lock()
	v.applied = v.loads
	v.mu.Unlock()

	detail := fmt.Sprintf("%d/%d tasks completed", p.CompletedTasks(), len(p.MainTasks))
	v.logger.Info("project completed", "project_id", v.id, "action", action, "detail", detail)
	if v.audit != nil {
		if err := v.audit.Audit(v.id, action, detail); err != nil {
			v.logger.Warn("failed to record audit entry", "project_id", v.id, "err", err)
		}
	}
	return nil
}

func (v *ProjectView) markCompletedLocked() {
	if v.project == nil {
		return
	}
	cp := *v.project
	cp.Status = models.ProjectCompleted
	v.project = &cp
}

// mutate runs one write against the latest snapshot and then refetches the
// project. fn receives the snapshot to resolve references against.
func (v *ProjectView) mutate(ctx context.Context, action string, fn func(p *models.Project) error) error {
	v.mu.Lock()
	if v.write == PhaseSubmitting {
		v.mu.Unlock()
		return ErrBusy
	}
	p := v.project
	if p == nil {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	v.write = PhaseSubmitting
	v.notice = nil
	v.mu.Unlock()

	if err := fn(p); err != nil {
		v.mu.Lock()
		v.write = PhaseError
		v.err = err
		v.notice = errorNotice("Failed to "+action, err)
		v.mu.Unlock()
		if !errors.Is(err, ErrStaleReference) {
			v.logger.Warn("write failed", "project_id", v.id, "action", action, "err", err)
		}
		return err
	}
	v.logger.Info("project changed", "project_id", v.id, "action", action)

	// The write stays in flight until the refetch lands so the next write
	// resolves its references against fresh positions.
	loadErr := v.Load(ctx)

	v.mu.Lock()
	v.write = PhaseSuccess
	v.mu.Unlock()

	if loadErr != nil {
		return fmt.Errorf("refresh after %s: %w", action, loadErr)
	}
	return nil
}

// UpdateProject applies a partial update to the project itself
func (v *ProjectView) UpdateProject(ctx context.Context, req projects.UpdateProjectRequest) error {
	return v.mutate(ctx, "update project", func(*models.Project) error {
		_, err := v.backend.Update(ctx, v.id, req)
		return err
	})
}

// MarkCompleted sets the project status to completed on request
func (v *ProjectView) MarkCompleted(ctx context.Context) error {
	return v.mutate(ctx, "mark project completed", func(p *models.Project) error {
		if p.Status == models.ProjectCompleted {
			return ErrNotPending
		}
		return v.complete(ctx, p, ActionMarkCompleted)
	})
}

// DeleteProject removes the project. There is nothing to refetch afterwards.
func (v *ProjectView) DeleteProject(ctx context.Context) error {
	v.mu.Lock()
	if v.write == PhaseSubmitting {
		v.mu.Unlock()
		return ErrBusy
	}
	v.write = PhaseSubmitting
	v.mu.Unlock()

	err := v.backend.Delete(ctx, v.id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.write = PhaseError
		v.err = err
		v.notice = errorNotice("Failed to delete project", err)
		return err
	}
	v.write = PhaseSuccess
	v.deleted = true
	v.logger.Info("project deleted", "project_id", v.id)
	return nil
}

// AddTask appends a main task
func (v *ProjectView) AddTask(ctx context.Context, in projects.MainTaskInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return projects.ErrNameRequired
	}
	return v.mutate(ctx, "add task", func(*models.Project) error {
		return v.backend.AddMainTask(ctx, v.id, in)
	})
}

// UpdateTask patches a main task
func (v *ProjectView) UpdateTask(ctx context.Context, ref TaskRef, patch projects.MainTaskPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return projects.ErrNameRequired
	}
	return v.mutate(ctx, "update task", func(p *models.Project) error {
		i, err := ref.Resolve(p)
		if err != nil {
			return err
		}
		return v.backend.UpdateMainTask(ctx, v.id, i, patch)
	})
}

// SetTaskStatus changes a main task's status
func (v *ProjectView) SetTaskStatus(ctx context.Context, ref TaskRef, status models.TaskStatus) error {
	return v.UpdateTask(ctx, ref, projects.MainTaskPatch{Status: &status})
}

// CycleTaskStatus moves a main task to the next status: not started, in
// progress, completed, and back to not started
func (v *ProjectView) CycleTaskStatus(ctx context.Context, ref TaskRef) error {
	p := v.Project()
	i, err := ref.Resolve(p)
	if err != nil {
		return err
	}
	return v.SetTaskStatus(ctx, ref, NextTaskStatus(p.MainTasks[i].Status))
}

// DeleteTask removes a main task. Later tasks shift down one position.
func (v *ProjectView) DeleteTask(ctx context.Context, ref TaskRef) error {
	return v.mutate(ctx, "delete task", func(p *models.Project) error {
		i, err := ref.Resolve(p)
		if err != nil {
			return err
		}
		return v.backend.DeleteMainTask(ctx, v.id, i)
	})
}

// AddSubtask appends a subtask to a main task
func (v *ProjectView) AddSubtask(ctx context.Context, ref TaskRef, in projects.SubtaskInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return projects.ErrNameRequired
	}
	if in.Status == "" {
		in.Status = models.TaskNotStarted
	}
	return v.mutate(ctx, "add subtask", func(p *models.Project) error {
		i, err := ref.Resolve(p)
		if err != nil {
			return err
		}
		return v.backend.AddSubtask(ctx, v.id, i, in)
	})
}

// UpdateSubtask patches a subtask
func (v *ProjectView) UpdateSubtask(ctx context.Context, ref SubtaskRef, patch projects.SubtaskPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return projects.ErrNameRequired
	}
	return v.mutate(ctx, "update subtask", func(p *models.Project) error {
		i, j, err := ref.Resolve(p)
		if err != nil {
			return err
		}
		return v.backend.UpdateSubtask(ctx, v.id, i, j, patch)
	})
}

// ToggleSubtask flips a subtask between completed and not started
func (v *ProjectView) ToggleSubtask(ctx context.Context, ref SubtaskRef) error {
	p := v.Project()
	i, j, err := ref.Resolve(p)
	if err != nil {
		return err
	}
	status := models.TaskCompleted
	if p.MainTasks[i].Subtasks[j].Status == models.TaskCompleted {
		status = models.TaskNotStarted
	}
	return v.UpdateSubtask(ctx, ref, projects.SubtaskPatch{Status: &status})
}

// DeleteSubtask removes a subtask
func (v *ProjectView) DeleteSubtask(ctx context.Context, ref SubtaskRef) error {
	return v.mutate(ctx, "delete subtask", func(p *models.Project) error {
		i, j, err := ref.Resolve(p)
		if err != nil {
			return err
		}
		return v.backend.DeleteSubtask(ctx, v.id, i, j)
	})
}

// AddTaskComment posts a comment on a main task. Blank text is ignored.
func (v *ProjectView) AddTaskComment(ctx context.Context, ref TaskRef, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return v.mutate(ctx, "add comment", func(p *models.Project) error {
		i, err := ref.Resolve(p)
		if err != nil {
			return err
		}
		return v.backend.AddTaskComment(ctx, v.id, i, projects.CommentInput{Text: text})
	})
}

// AddSubtaskComment posts a comment on a subtask. Blank text is ignored.
func (v *ProjectView) AddSubtaskComment(ctx context.Context, ref SubtaskRef, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return v.mutate(ctx, "add comment", func(p *models.Project) error {
		i, j, err := ref.Resolve(p)
		if err != nil {
			return err
		}
		return v.backend.AddSubtaskComment(ctx, v.id, i, j, projects.CommentInput{Text: text})
	})
}

// TaskComments fetches the comments on a main task
func (v *ProjectView) TaskComments(ctx context.Context, ref TaskRef) ([]models.Comment, error) {
	i, err := ref.Resolve(v.Project())
	if err != nil {
		return nil, err
	}
	return v.backend.TaskComments(ctx, v.id, i)
}

// SubtaskComments fetches the comments on a subtask
func (v *ProjectView) SubtaskComments(ctx context.Context, ref SubtaskRef) ([]models.Comment, error) {
	i, j, err := ref.Resolve(v.Project())
	if err != nil {
		return nil, err
	}
	return v.backend.SubtaskComments(ctx, v.id, i, j)
}

// SetMode switches the task layout
func (v *ProjectView) SetMode(m ViewMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = m
}

// NextMode cycles list, board, calendar
func (v *ProjectView) NextMode() ViewMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = ViewModes[(int(v.mode)+1)%len(ViewModes)]
	return v.mode
}

// SetQuery filters tasks by name, case-insensitively
func (v *ProjectView) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
}

// ToggleHideCompleted hides or shows completed tasks
func (v *ProjectView) ToggleHideCompleted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hideCompleted = !v.hideCompleted
	return v.hideCompleted
}

// ClearNotice dismisses the current notification
func (v *ProjectView) ClearNotice() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notice = nil
}

// NextTaskStatus returns the status after s in TaskStatuses, wrapping around
func NextTaskStatus(s models.TaskStatus) models.TaskStatus {
	for i, st := range models.TaskStatuses {
		if st == s {
			return models.TaskStatuses[(i+1)%len(models.TaskStatuses)]
		}
	}
	return models.TaskInProgress
}
