package views

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
	"github.com/tgienger/taskdeck/internal/ui/keys"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

// projectScreen is the part of the project view that owns the keyboard
type projectScreen int

const (
	screenTasks projectScreen = iota
	screenDetail
	screenTaskForm
	screenProjectForm
)

// Task form fields, in tab order
const (
	fieldName = iota
	fieldDesc
	fieldPriority
	fieldStatus
	fieldDue
	fieldSave
	fieldCount
)

type commentsLoadedMsg struct {
	gen      int
	comments []models.Comment
	err      error
}

func (m commentsLoadedMsg) Generation() int { return m.gen }

// pendingConfirm is a destructive action waiting for y/n
type pendingConfirm struct {
	title   string
	subject string
	op      string
	fn      func(ctx context.Context) error
}

// ProjectView shows one project's tasks
type ProjectView struct {
	ctrl    *controller.ProjectView
	gen     int
	styles  *styles.Styles
	keys    keys.KeyMap
	spinner spinner.Model

	width  int
	height int

	screen  projectScreen
	cursor  int
	scrollY int

	searching   bool
	searchInput textinput.Model
	confirm     *pendingConfirm

	// Help popup (shown with ?)
	showHelpPopup bool

	// Task detail
	detail        controller.TaskRef
	subCursor     int
	subTarget     *controller.SubtaskRef // comments shown for this subtask, nil = the task
	comments      []models.Comment
	commentsErr   error
	commenting    bool
	commentInput  textarea.Model
	addingSubtask bool
	subtaskInput  textinput.Model

	// Task form
	editingNew   bool
	editRef      controller.TaskRef
	editFocusIdx int
	editName     textinput.Model
	editDesc     textarea.Model
	editDue      textinput.Model
	editPriority models.Priority
	editStatus   models.TaskStatus

	// Project form
	projFocusIdx int
	projTitle    textinput.Model
	projDesc     textarea.Model
	projDue      textinput.Model

	localNotice *controller.Notification
}

func NewProjectView(ctrl *controller.ProjectView, gen int) *ProjectView {
	search := textinput.New()
	search.Placeholder = "Search..."
	search.CharLimit = 100

	comment := textarea.New()
	comment.Placeholder = "Write a comment..."
	comment.ShowLineNumbers = false
	comment.SetHeight(3)
	comment.CharLimit = 2000

	subtask := textinput.New()
	subtask.Placeholder = "Subtask name"
	subtask.CharLimit = 200

	name := textinput.New()
	name.Placeholder = "Task name"
	name.CharLimit = 200

	desc := textarea.New()
	desc.Placeholder = "Description (markdown)"
	desc.ShowLineNumbers = false
	desc.SetHeight(4)
	desc.CharLimit = 5000

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD"
	due.CharLimit = 10

	projTitle := textinput.New()
	projTitle.CharLimit = 200
	projDesc := textarea.New()
	projDesc.ShowLineNumbers = false
	projDesc.SetHeight(4)
	projDue := textinput.New()
	projDue.Placeholder = "YYYY-MM-DD"
	projDue.CharLimit = 10

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)

	return &ProjectView{
		ctrl:         ctrl,
		gen:          gen,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		spinner:      sp,
		searchInput:  search,
		commentInput: comment,
		subtaskInput: subtask,
		editName:     name,
		editDesc:     desc,
		editDue:      due,
		projTitle:    projTitle,
		projDesc:     projDesc,
		projDue:      projDue,
	}
}

func (v *ProjectView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, run(v.gen, "load", v.ctrl.Load))
}

// write runs a controller mutation. The controller refetches the project
// afterwards, so the DoneMsg always finds fresh state.
func (v *ProjectView) write(op string, fn func(ctx context.Context) error) tea.Cmd {
	v.localNotice = nil
	return tea.Batch(v.spinner.Tick, run(v.gen, op, fn))
}

func (v *ProjectView) loadComments() tea.Cmd {
	gen := v.gen
	ref := v.detail
	sub := v.subTarget
	return func() tea.Msg {
		ctx := context.Background()
		var (
			comments []models.Comment
			err      error
		)
		if sub != nil {
			comments, err = v.ctrl.SubtaskComments(ctx, *sub)
		} else {
			comments, err = v.ctrl.TaskComments(ctx, ref)
		}
		return commentsLoadedMsg{gen: gen, comments: comments, err: err}
	}
}

// ordered returns the tasks in on-screen order for the current mode
func ordered(state controller.ProjectViewState) []controller.TaskItem {
	switch state.Mode {
	case controller.ModeBoard:
		var out []controller.TaskItem
		for _, col := range controller.BoardColumns(state.Tasks) {
			out = append(out, col.Items...)
		}
		return out
	case controller.ModeCalendar:
		var out []controller.TaskItem
		for _, g := range controller.CalendarGroups(state.Tasks) {
			out = append(out, g.Items...)
		}
		return out
	default:
		return state.Tasks
	}
}

func (v *ProjectView) selected(state controller.ProjectViewState) (controller.TaskItem, bool) {
	items := ordered(state)
	if v.cursor < 0 || v.cursor >= len(items) {
		return controller.TaskItem{}, false
	}
	return items[v.cursor], true
}

// detailTask re-resolves the open task against the latest project
func (v *ProjectView) detailTask(state controller.ProjectViewState) (int, *models.MainTask, error) {
	i, err := v.detail.Resolve(state.Project)
	if err != nil {
		return 0, nil, err
	}
	return i, &state.Project.MainTasks[i], nil
}

func (v *ProjectView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.commentInput.SetWidth(clamp(contentWidth-10, 20, 60))
		v.editDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		v.projDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		return v, nil

	case spinner.TickMsg:
		st := v.ctrl.State()
		if st.Fetch != controller.PhaseIdle && !st.Fetch.Busy() && !st.Write.Busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case commentsLoadedMsg:
		v.comments = msg.comments
		v.commentsErr = msg.err
		return v, nil

	case DoneMsg:
		return v.handleDone(msg)

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirm != nil {
			return v.updateConfirm(msg)
		}
		switch v.screen {
		case screenDetail:
			return v.updateDetail(msg)
		case screenTaskForm:
			return v.updateTaskForm(msg)
		case screenProjectForm:
			return v.updateProjectForm(msg)
		}
		if v.searching {
			return v.updateSearch(msg)
		}
		return v.updateTasks(msg)
	}

	return v, nil
}

func (v *ProjectView) handleDone(msg DoneMsg) (tea.Model, tea.Cmd) {
	state := v.ctrl.State()
	if state.Deleted {
		return v, navigate(OpenProjects{})
	}
	if n := len(ordered(state)); v.cursor >= n {
		v.cursor = max(n-1, 0)
	}
	v.ensureVisible()

	if v.screen == screenTaskForm && msg.Err == nil && (msg.Op == "add-task" || msg.Op == "update-task") {
		v.screen = screenTasks
	}
	if v.screen == screenProjectForm && msg.Err == nil && msg.Op == "update-project" {
		v.screen = screenTasks
	}

	if v.screen != screenDetail {
		return v, nil
	}
	_, task, err := v.detailTask(state)
	if err != nil {
		v.closeDetail()
		if errors.Is(err, controller.ErrStaleReference) {
			v.localNotice = &controller.Notification{
				Kind:  controller.NotifyInfo,
				Title: "Task changed",
				Body:  "The task you were viewing was moved or removed.",
			}
		}
		return v, nil
	}
	if v.subCursor >= len(task.Subtasks) {
		v.subCursor = max(len(task.Subtasks)-1, 0)
	}
	if msg.Op == "comment" || msg.Op == "load" {
		return v, v.loadComments()
	}
	return v, nil
}

func (v *ProjectView) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		c := v.confirm
		v.confirm = nil
		return v, v.write(c.op, c.fn)
	case "n", "N", "esc":
		v.confirm = nil
	}
	return v, nil
}

func (v *ProjectView) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.searching = false
		v.searchInput.Blur()
		v.searchInput.Reset()
		v.ctrl.SetQuery("")
		return v, nil
	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Tab):
		v.searching = false
		v.searchInput.Blur()
		return v, nil
	}
	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	v.ctrl.SetQuery(v.searchInput.Value())
	v.cursor = 0
	v.scrollY = 0
	return v, cmd
}

func (v *ProjectView) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := v.ctrl.State()
	items := ordered(state)
	busy := state.Write.Busy()

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case key.Matches(msg, v.keys.Back):
		if state.Query != "" {
			v.searchInput.Reset()
			v.ctrl.SetQuery("")
			return v, nil
		}
		return v, navigate(OpenProjects{})
	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(items)-1 {
			v.cursor++
			v.ensureVisible()
		}
	case key.Matches(msg, v.keys.Left), key.Matches(msg, v.keys.Right):
		if state.Mode == controller.ModeBoard {
			v.jumpColumn(state, key.Matches(msg, v.keys.Right))
		}
	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.searchInput.Focus()
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Mode):
		v.ctrl.NextMode()
		v.cursor = 0
		v.scrollY = 0
	case key.Matches(msg, v.keys.ShowCompleted):
		v.ctrl.ToggleHideCompleted()
		v.cursor = 0
		v.scrollY = 0
	case key.Matches(msg, v.keys.Refresh):
		if !state.Fetch.Busy() && !state.Write.Busy() {
			return v, tea.Batch(v.spinner.Tick, run(v.gen, "load", v.ctrl.Refresh))
		}
	case state.Project == nil || busy:
		// Everything below needs a loaded project and no write in flight
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		if item, ok := v.selected(state); ok {
			return v, v.openDetail(item.Ref())
		}
	case key.Matches(msg, v.keys.New):
		return v, v.startTaskForm(nil)
	case key.Matches(msg, v.keys.Edit):
		if item, ok := v.selected(state); ok {
			return v, v.startTaskForm(&item)
		}
	case key.Matches(msg, v.keys.Toggle):
		if item, ok := v.selected(state); ok {
			ref := item.Ref()
			return v, v.write("status", func(ctx context.Context) error {
				return v.ctrl.CycleTaskStatus(ctx, ref)
			})
		}
	case key.Matches(msg, v.keys.Delete):
		if item, ok := v.selected(state); ok {
			ref := item.Ref()
			v.confirm = &pendingConfirm{
				title: "Delete Task?", subject: item.Task.Name, op: "delete-task",
				fn: func(ctx context.Context) error { return v.ctrl.DeleteTask(ctx, ref) },
			}
		}
	case key.Matches(msg, v.keys.Complete):
		if state.Project.Status != models.ProjectCompleted {
			return v, v.write("complete", v.ctrl.MarkCompleted)
		}
	case msg.String() == "E":
		return v, v.startProjectForm(state.Project)
	case msg.String() == "D":
		v.confirm = &pendingConfirm{
			title: "Delete Project?", subject: state.Project.Title, op: "delete-project",
			fn: v.ctrl.DeleteProject,
		}
	}
	return v, nil
}

// jumpColumn moves the cursor to the first task of the next or previous
// non-empty board column
func (v *ProjectView) jumpColumn(state controller.ProjectViewState, forward bool) {
	cols := controller.BoardColumns(state.Tasks)
	start, current := 0, 0
	starts := make([]int, len(cols))
	for c, col := range cols {
		starts[c] = start
		if v.cursor >= start && v.cursor < start+len(col.Items) {
			current = c
		}
		start += len(col.Items)
	}
	step := -1
	if forward {
		step = 1
	}
	for c := current + step; c >= 0 && c < len(cols); c += step {
		if len(cols[c].Items) > 0 {
			v.cursor = starts[c]
			return
		}
	}
}

func (v *ProjectView) ensureVisible() {
	// Each task item is 2 lines + 1 margin
	visibleItems := max((v.height-16)/3, 1)
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

func (v *ProjectView) openDetail(ref controller.TaskRef) tea.Cmd {
	v.screen = screenDetail
	v.detail = ref
	v.subCursor = 0
	v.subTarget = nil
	v.comments = nil
	v.commentsErr = nil
	v.commenting = false
	v.addingSubtask = false
	return v.loadComments()
}

func (v *ProjectView) closeDetail() {
	v.screen = screenTasks
	v.comments = nil
	v.subTarget = nil
	v.commenting = false
	v.addingSubtask = false
	v.commentInput.Blur()
	v.subtaskInput.Blur()
}

func (v *ProjectView) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := v.ctrl.State()
	_, task, err := v.detailTask(state)
	if err != nil {
		v.closeDetail()
		return v, nil
	}

	if v.commenting {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.commenting = false
			v.commentInput.Blur()
			return v, nil
		case key.Matches(msg, v.keys.Save):
			return v, v.submitComment()
		}
		var cmd tea.Cmd
		v.commentInput, cmd = v.commentInput.Update(msg)
		return v, cmd
	}

	if v.addingSubtask {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.addingSubtask = false
			v.subtaskInput.Blur()
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			name := strings.TrimSpace(v.subtaskInput.Value())
			v.addingSubtask = false
			v.subtaskInput.Blur()
			v.subtaskInput.Reset()
			if name == "" {
				return v, nil
			}
			ref := v.detail
			return v, v.write("add-subtask", func(ctx context.Context) error {
				return v.ctrl.AddSubtask(ctx, ref, projects.SubtaskInput{Name: name})
			})
		}
		var cmd tea.Cmd
		v.subtaskInput, cmd = v.subtaskInput.Update(msg)
		return v, cmd
	}

	busy := state.Write.Busy()
	subRef := func() (controller.SubtaskRef, bool) {
		return controller.SubtaskRefAt(state.Project, mustIndex(v.detail, state.Project), v.subCursor)
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		if v.subTarget != nil {
			v.subTarget = nil
			return v, v.loadComments()
		}
		v.closeDetail()
	case msg.String() == "ctrl+c":
		return v, tea.Quit
	case key.Matches(msg, v.keys.Up):
		if v.subCursor > 0 {
			v.subCursor--
		}
	case key.Matches(msg, v.keys.Down):
		if v.subCursor < len(task.Subtasks)-1 {
			v.subCursor++
		}
	case key.Matches(msg, v.keys.Comment):
		v.commenting = true
		v.commentInput.Focus()
		return v, textarea.Blink
	case msg.String() == "o":
		if ref, ok := subRef(); ok {
			v.subTarget = &ref
			v.comments = nil
			return v, v.loadComments()
		}
	case busy:
		return v, nil
	case key.Matches(msg, v.keys.Toggle):
		if ref, ok := subRef(); ok {
			return v, v.write("toggle-subtask", func(ctx context.Context) error {
				return v.ctrl.ToggleSubtask(ctx, ref)
			})
		}
	case msg.String() == "a":
		v.addingSubtask = true
		v.subtaskInput.Focus()
		return v, textinput.Blink
	case msg.String() == "x":
		if ref, ok := subRef(); ok {
			v.confirm = &pendingConfirm{
				title: "Delete Subtask?", subject: ref.Name, op: "delete-subtask",
				fn: func(ctx context.Context) error { return v.ctrl.DeleteSubtask(ctx, ref) },
			}
		}
	case msg.String() == "t":
		ref := v.detail
		return v, v.write("status", func(ctx context.Context) error {
			return v.ctrl.CycleTaskStatus(ctx, ref)
		})
	case key.Matches(msg, v.keys.Edit):
		item := controller.TaskItem{Index: mustIndex(v.detail, state.Project), Task: *task}
		v.closeDetail()
		return v, v.startTaskForm(&item)
	case key.Matches(msg, v.keys.Delete):
		ref := v.detail
		v.confirm = &pendingConfirm{
			title: "Delete Task?", subject: task.Name, op: "delete-task",
			fn: func(ctx context.Context) error { return v.ctrl.DeleteTask(ctx, ref) },
		}
	}
	return v, nil
}

// mustIndex resolves ref, returning -1 when it no longer matches
func mustIndex(ref controller.TaskRef, p *models.Project) int {
	i, err := ref.Resolve(p)
	if err != nil {
		return -1
	}
	return i
}

func (v *ProjectView) submitComment() tea.Cmd {
	text := v.commentInput.Value()
	v.commenting = false
	v.commentInput.Blur()
	v.commentInput.Reset()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ref, sub := v.detail, v.subTarget
	return v.write("comment", func(ctx context.Context) error {
		if sub != nil {
			return v.ctrl.AddSubtaskComment(ctx, *sub, text)
		}
		return v.ctrl.AddTaskComment(ctx, ref, text)
	})
}

func (v *ProjectView) startTaskForm(item *controller.TaskItem) tea.Cmd {
	v.screen = screenTaskForm
	v.editFocusIdx = fieldName
	v.editingNew = item == nil
	v.editName.Reset()
	v.editDesc.Reset()
	v.editDue.Reset()
	v.editPriority = models.PriorityMedium
	v.editStatus = models.TaskNotStarted

	if item != nil {
		t := item.Task
		v.editRef = item.Ref()
		v.editName.SetValue(t.Name)
		v.editDesc.SetValue(t.Description)
		if t.DueDate != nil {
			v.editDue.SetValue(t.DueDate.Local().Format("2006-01-02"))
		}
		if t.Priority != "" {
			v.editPriority = t.Priority
		}
		if t.Status != "" {
			v.editStatus = t.Status
		}
	}
	v.updateEditFocus()
	return textinput.Blink
}

func (v *ProjectView) updateEditFocus() {
	v.editName.Blur()
	v.editDesc.Blur()
	v.editDue.Blur()
	switch v.editFocusIdx {
	case fieldName:
		v.editName.Focus()
	case fieldDesc:
		v.editDesc.Focus()
	case fieldDue:
		v.editDue.Focus()
	}
}

func (v *ProjectView) updateTaskForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.screen = screenTasks
		v.localNotice = nil
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.editFocusIdx = (v.editFocusIdx + fieldCount - 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		// Enter in the description textarea inserts a newline
		if v.editFocusIdx == fieldSave {
			return v, v.saveTask()
		}
		if v.editFocusIdx != fieldDesc {
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		}

	case v.editFocusIdx == fieldPriority && (key.Matches(msg, v.keys.Left) || key.Matches(msg, v.keys.Right) || msg.String() == " "):
		v.editPriority = cycle(models.Priorities, v.editPriority, !key.Matches(msg, v.keys.Left))
		return v, nil

	case v.editFocusIdx == fieldStatus && (key.Matches(msg, v.keys.Left) || key.Matches(msg, v.keys.Right) || msg.String() == " "):
		v.editStatus = cycle(models.TaskStatuses, v.editStatus, !key.Matches(msg, v.keys.Left))
		return v, nil
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case fieldName:
		v.editName, cmd = v.editName.Update(msg)
	case fieldDesc:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case fieldDue:
		v.editDue, cmd = v.editDue.Update(msg)
	}
	return v, cmd
}

// cycle steps through values, wrapping at either end
func cycle[T comparable](values []T, current T, forward bool) T {
	for i, val := range values {
		if val == current {
			if forward {
				return values[(i+1)%len(values)]
			}
			return values[(i+len(values)-1)%len(values)]
		}
	}
	return values[0]
}

func (v *ProjectView) saveTask() tea.Cmd {
	name := strings.TrimSpace(v.editName.Value())
	if name == "" {
		v.localNotice = &controller.Notification{Kind: controller.NotifyError, Title: "Task name is required"}
		return nil
	}
	due, err := parseDate(v.editDue.Value())
	if err != nil {
		v.localNotice = &controller.Notification{Kind: controller.NotifyError, Title: "Invalid due date", Body: err.Error()}
		return nil
	}
	desc := strings.TrimSpace(v.editDesc.Value())
	priority, status := v.editPriority, v.editStatus

	if v.editingNew {
		in := projects.MainTaskInput{Name: name, Description: desc, Status: status, Priority: priority, DueDate: due}
		return v.write("add-task", func(ctx context.Context) error {
			return v.ctrl.AddTask(ctx, in)
		})
	}
	ref := v.editRef
	patch := projects.MainTaskPatch{Name: &name, Description: &desc, Status: &status, Priority: &priority, DueDate: due}
	return v.write("update-task", func(ctx context.Context) error {
		return v.ctrl.UpdateTask(ctx, ref, patch)
	})
}

func (v *ProjectView) startProjectForm(p *models.Project) tea.Cmd {
	v.screen = screenProjectForm
	v.projFocusIdx = 0
	v.projTitle.SetValue(p.Title)
	v.projDesc.SetValue(p.Description)
	v.projDue.Reset()
	if p.DueDate != nil {
		v.projDue.SetValue(p.DueDate.Local().Format("2006-01-02"))
	}
	v.updateProjectFocus()
	return textinput.Blink
}

func (v *ProjectView) updateProjectFocus() {
	v.projTitle.Blur()
	v.projDesc.Blur()
	v.projDue.Blur()
	switch v.projFocusIdx {
	case 0:
		v.projTitle.Focus()
	case 1:
		v.projDesc.Focus()
	case 2:
		v.projDue.Focus()
	}
}

func (v *ProjectView) updateProjectForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.screen = screenTasks
		v.localNotice = nil
		return v, nil
	case key.Matches(msg, v.keys.Save):
		return v, v.saveProject()
	case key.Matches(msg, v.keys.Tab):
		v.projFocusIdx = (v.projFocusIdx + 1) % 4
		v.updateProjectFocus()
		return v, nil
	case key.Matches(msg, v.keys.ShiftTab):
		v.projFocusIdx = (v.projFocusIdx + 3) % 4
		v.updateProjectFocus()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		if v.projFocusIdx == 3 {
			return v, v.saveProject()
		}
		if v.projFocusIdx != 1 {
			v.projFocusIdx++
			v.updateProjectFocus()
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.projFocusIdx {
	case 0:
		v.projTitle, cmd = v.projTitle.Update(msg)
	case 1:
		v.projDesc, cmd = v.projDesc.Update(msg)
	case 2:
		v.projDue, cmd = v.projDue.Update(msg)
	}
	return v, cmd
}

func (v *ProjectView) saveProject() tea.Cmd {
	title := strings.TrimSpace(v.projTitle.Value())
	if title == "" {
		v.localNotice = &controller.Notification{Kind: controller.NotifyError, Title: "Project title is required"}
		return nil
	}
	due, err := parseDate(v.projDue.Value())
	if err != nil {
		v.localNotice = &controller.Notification{Kind: controller.NotifyError, Title: "Invalid due date", Body: err.Error()}
		return nil
	}
	desc := strings.TrimSpace(v.projDesc.Value())
	req := projects.UpdateProjectRequest{Title: &title, Description: &desc, DueDate: due}
	return v.write("update-project", func(ctx context.Context) error {
		return v.ctrl.UpdateProject(ctx, req)
	})
}
