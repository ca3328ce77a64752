package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskdeck/internal/controller"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

var statusGlyphs = map[models.TaskStatus]string{
	models.TaskNotStarted: "○",
	models.TaskInProgress: "◐",
	models.TaskCompleted:  "●",
}

func glyph(s models.TaskStatus) string {
	g, ok := statusGlyphs[s]
	if !ok {
		g = statusGlyphs[models.TaskNotStarted]
	}
	return lipgloss.NewStyle().Foreground(styles.StatusColor(string(s))).Render(g)
}

// truncate cuts s to at most w runes, marking the cut with an ellipsis
func truncate(s string, w int) string {
	r := []rune(s)
	if w <= 0 || len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}

func dueLabel(t *models.MainTask) string {
	if t.DueDate == nil {
		return ""
	}
	return "due " + t.DueDate.Local().Format("Jan 2")
}

func (v *ProjectView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirm != nil {
		return confirmDialog(v.styles, v.confirm.title, v.confirm.subject, v.width, v.height)
	}

	state := v.ctrl.State()
	if state.Project == nil {
		return v.renderLoading(state)
	}

	switch v.screen {
	case screenDetail:
		return v.renderDetail(state)
	case screenTaskForm:
		return v.renderTaskForm(state)
	case screenProjectForm:
		return v.renderProjectForm(state)
	}

	var b strings.Builder
	b.WriteString(v.renderHeader(state))
	b.WriteString("\n\n")

	switch state.Mode {
	case controller.ModeBoard:
		b.WriteString(v.renderBoard(state))
	case controller.ModeCalendar:
		b.WriteString(v.renderCalendar(state))
	default:
		b.WriteString(v.renderTaskList(state))
	}

	b.WriteString("\n")
	b.WriteString(v.renderFooter(state))
	b.WriteString(v.renderHelp())

	padded := lipgloss.NewStyle().Padding(1, 2).Render(b.String())
	return styles.CenterView(padded, v.width, v.height)
}

func (v *ProjectView) renderLoading(state controller.ProjectViewState) string {
	s := v.styles
	if state.Fetch == controller.PhaseError {
		content := lipgloss.JoinVertical(lipgloss.Left,
			renderNotice(s, state.Notice, styles.ContentWidth(v.width)),
			helpLine(s, "r", "retry", "esc", "back", "q", "quit"),
		)
		return styles.CenterView(lipgloss.NewStyle().Padding(1, 2).Render(content), v.width, v.height)
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(v.spinner.View() + " Loading project...")
}

func (v *ProjectView) renderHeader(state controller.ProjectViewState) string {
	s := v.styles
	p := state.Project
	contentWidth := styles.ContentWidth(v.width)

	title := s.TitleBar.Render(s.Title.Render(p.Title) + "  " + styles.Badge(string(p.Status)))

	barWidth := clamp(contentWidth-30, 10, 40)
	progress := renderProgress(state.Progress, barWidth) + s.StatusBar.Render(fmt.Sprintf("%d/%d tasks • %d%%",
		p.CompletedTasks(), len(p.MainTasks), state.Progress))

	var tabs []string
	for _, m := range controller.ViewModes {
		style := s.FilterButton
		if m == state.Mode {
			style = s.ButtonPrimary
		}
		tabs = append(tabs, style.Render(m.String()))
	}
	modeBar := lipgloss.JoinHorizontal(lipgloss.Center, tabs...)
	if state.HideCompleted {
		modeBar += s.TitleMuted.Render("  (hiding completed)")
	}

	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	searchBox := searchStyle.Width(clamp(contentWidth-8, 10, 30)).Render(s.FilterInput.Render(v.searchInput.View()))

	rows := []string{title}
	if p.Description != "" {
		rows = append(rows, s.TitleMuted.Render(truncate(p.Description, contentWidth-4)))
	}
	rows = append(rows, "", progress, "", lipgloss.JoinHorizontal(lipgloss.Center, modeBar, "  ", searchBox))

	if state.CompletionPending {
		rows = append(rows, "", s.NoticeInfo.Render("All tasks are done. Press C to mark the project completed."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *ProjectView) renderFooter(state controller.ProjectViewState) string {
	s := v.styles
	width := styles.ContentWidth(v.width)
	var rows []string
	if state.Write.Busy() || state.Fetch.Busy() {
		rows = append(rows, v.spinner.View()+s.TitleMuted.Render(" Saving..."))
	}
	notice := v.localNotice
	if notice == nil {
		notice = state.Notice
	}
	if n := renderNotice(s, notice, width); n != "" {
		rows = append(rows, n)
	}
	if len(rows) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func (v *ProjectView) emptyMessage(state controller.ProjectViewState) string {
	if len(state.Project.MainTasks) == 0 {
		return v.styles.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}
	return v.styles.TitleMuted.Render("No tasks match.")
}

func (v *ProjectView) renderTaskList(state controller.ProjectViewState) string {
	if len(state.Tasks) == 0 {
		return v.emptyMessage(state)
	}

	visibleItems := max((v.height-16)/3, 1)
	endIdx := min(v.scrollY+visibleItems, len(state.Tasks))

	var items []string
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(state.Tasks[i], i == v.cursor))
	}
	if endIdx < len(state.Tasks) {
		items = append(items, v.styles.TitleMuted.Render(fmt.Sprintf("  … %d more", len(state.Tasks)-endIdx)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *ProjectView) renderTaskItem(item controller.TaskItem, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-8, 20)
	t := item.Task

	name := t.Name
	if t.Status == models.TaskCompleted {
		name = s.TaskDone.Render(name)
	}
	titleLine := glyph(t.Status) + " " + name

	meta := []string{models.Label(string(t.Status))}
	if t.Priority != "" {
		meta = append(meta, s.Priority(t.Priority).Render(models.Label(string(t.Priority))))
	}
	if len(t.Subtasks) > 0 {
		meta = append(meta, fmt.Sprintf("%d/%d subtasks", t.SubtasksCompleted(), len(t.Subtasks)))
	}
	if d := dueLabel(&t); d != "" {
		meta = append(meta, d)
	}

	var titleStyle, metaStyle lipgloss.Style
	if selected {
		titleStyle = s.ListSelected.Width(width)
		metaStyle = s.ListSelected.Width(width)
	} else {
		titleStyle = s.ListItem.Width(width)
		metaStyle = s.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(titleLine),
		metaStyle.Render(strings.Join(meta, " • ")),
	) + "\n"
}

func (v *ProjectView) renderBoard(state controller.ProjectViewState) string {
	s := v.styles
	if len(state.Tasks) == 0 {
		return v.emptyMessage(state)
	}

	colWidth := clamp((styles.ContentWidth(v.width)-10)/3, 14, 30)
	pos := 0
	var cols []string
	for _, col := range controller.BoardColumns(state.Tasks) {
		lines := []string{s.ColumnHead.Render(fmt.Sprintf("%s (%d)", models.Label(string(col.Status)), len(col.Items))), ""}
		for _, item := range col.Items {
			line := truncate(item.Task.Name, colWidth-4)
			if pos == v.cursor {
				line = s.ListSelected.Padding(0).Width(colWidth - 2).Render(line)
			} else {
				line = s.TaskTitle.Render(line)
			}
			lines = append(lines, line)
			pos++
		}
		cols = append(cols, s.Column.Width(colWidth).Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (v *ProjectView) renderCalendar(state controller.ProjectViewState) string {
	s := v.styles
	if len(state.Tasks) == 0 {
		return v.emptyMessage(state)
	}

	width := max(styles.ContentWidth(v.width)-8, 20)
	pos := 0
	var rows []string
	for _, g := range controller.CalendarGroups(state.Tasks) {
		head := "No due date"
		if !g.Day.IsZero() {
			head = g.Day.Format("Mon, Jan 2 2006")
		}
		rows = append(rows, s.ColumnHead.Render(head))
		for _, item := range g.Items {
			line := glyph(item.Task.Status) + " " + item.Task.Name
			style := s.ListItem.Width(width)
			if pos == v.cursor {
				style = s.ListSelected.Width(width)
			}
			rows = append(rows, style.Render(line))
			pos++
		}
		rows = append(rows, "")
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *ProjectView) renderDetail(state controller.ProjectViewState) string {
	s := v.styles
	i, task, err := v.detailTask(state)
	if err != nil {
		return s.TitleMuted.Render("Task no longer available")
	}
	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 70)
	label := s.TitleMuted

	meta := []string{styles.Badge(string(task.Status))}
	if task.Priority != "" {
		meta = append(meta, s.Priority(task.Priority).Render(models.Label(string(task.Priority))+" priority"))
	}
	if d := dueLabel(task); d != "" {
		meta = append(meta, d)
	}

	var subs []string
	if len(task.Subtasks) == 0 {
		subs = append(subs, s.TitleMuted.Render("No subtasks. Press 'a' to add one."))
	}
	for j, st := range task.Subtasks {
		line := glyph(st.Status) + " " + st.Name
		if st.Status == models.TaskCompleted {
			line = glyph(st.Status) + " " + s.TaskDone.Render(st.Name)
		}
		style := s.ListItem.Width(textWidth)
		if j == v.subCursor {
			style = s.ListSelected.Width(textWidth)
		}
		subs = append(subs, style.Render(line))
	}
	if v.addingSubtask {
		subs = append(subs, s.InputFocused.Width(clamp(textWidth-4, 20, 50)).Render(v.subtaskInput.View()))
	}

	commentsTitle := "Comments"
	if v.subTarget != nil {
		commentsTitle = fmt.Sprintf("Comments on %q", v.subTarget.Name)
	}
	var comments string
	switch {
	case v.commentsErr != nil:
		comments = s.NoticeError.Render("Could not load comments")
	case len(v.comments) == 0:
		comments = s.TitleMuted.Render("No comments yet")
	default:
		var lines []string
		for _, c := range v.comments {
			head := c.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM")
			if c.Author != "" {
				head = c.Author + " • " + head
			}
			lines = append(lines, lipgloss.JoinVertical(lipgloss.Left,
				s.TitleMuted.Render(head),
				lipgloss.NewStyle().Width(textWidth).Render(c.Text),
			))
		}
		comments = lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	commentInputStyle := s.Input
	if v.commenting {
		commentInputStyle = s.InputFocused
	}

	var help string
	switch {
	case v.commenting:
		help = helpLine(s, "ctrl+s", "submit", "esc", "cancel")
	case v.addingSubtask:
		help = helpLine(s, "↵", "add", "esc", "cancel")
	default:
		help = helpLine(s, "space", "toggle subtask", "a", "add subtask", "x", "del subtask",
			"o", "subtask comments", "c", "comment", "t", "status", "e", "edit", "d", "delete", "esc", "back")
	}

	rows := []string{
		s.Title.Render(fmt.Sprintf("#%d  %s", i+1, task.Name)),
		strings.Join(meta, " • "),
		"",
		label.Render("Description"),
		renderMarkdown(s, task.Description, textWidth),
		"",
		label.Render(fmt.Sprintf("Subtasks (%d/%d)", task.SubtasksCompleted(), len(task.Subtasks))),
	}
	rows = append(rows, subs...)
	rows = append(rows,
		"",
		label.Render(commentsTitle),
		comments,
		"",
		commentInputStyle.Render(v.commentInput.View()),
		"",
		v.renderFooter(state)+help,
	)

	padded := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return styles.CenterView(padded, v.width, v.height)
}

func (v *ProjectView) renderTaskForm(state controller.ProjectViewState) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	formTitle := "New Task"
	if !v.editingNew {
		formTitle = "Edit Task"
	}

	fieldStyle := func(idx int) lipgloss.Style {
		if v.editFocusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.editFocusIdx == fieldSave {
		btnStyle = s.ButtonFocused
	}

	priority := s.Priority(v.editPriority).Render("◀ " + models.Label(string(v.editPriority)) + " ▶")
	status := glyph(v.editStatus) + " " + models.Label(string(v.editStatus))

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(formTitle),
		"",
		"Name:",
		fieldStyle(fieldName).Width(inputWidth).Render(v.editName.View()),
		"",
		"Description:",
		fieldStyle(fieldDesc).Render(v.editDesc.View()),
		"",
		"Priority:",
		fieldStyle(fieldPriority).Width(20).Render(priority),
		"",
		"Status:",
		fieldStyle(fieldStatus).Width(20).Render(status),
		"",
		"Due date:",
		fieldStyle(fieldDue).Width(16).Render(v.editDue.View()),
		"",
		btnStyle.Render(" Save "),
		"",
		v.renderFooter(state)+s.TitleMuted.Render("Tab: next • ←/→: change • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectView) renderProjectForm(state controller.ProjectViewState) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	fieldStyle := func(idx int) lipgloss.Style {
		if v.projFocusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.projFocusIdx == 3 {
		btnStyle = s.ButtonFocused
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Edit Project"),
		"",
		"Title:",
		fieldStyle(0).Width(inputWidth).Render(v.projTitle.View()),
		"",
		"Description:",
		fieldStyle(1).Render(v.projDesc.View()),
		"",
		"Due date:",
		fieldStyle(2).Width(16).Render(v.projDue.View()),
		"",
		btnStyle.Render(" Save "),
		"",
		v.renderFooter(state)+s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return helpLine(v.styles,
		"↵", "open", "n", "new", "e", "edit", "space", "status", "d", "del",
		"/", "search", "v", "view", "?", "more", "esc", "back")
}

func (v *ProjectView) renderHelpPopup() string {
	hideLabel := "hide completed"
	if v.ctrl.State().HideCompleted {
		hideLabel = "show completed"
	}
	return helpPopup(v.styles, v.width, v.height,
		"↵", "open task",
		"n", "new task",
		"e", "edit task",
		"space", "cycle status",
		"d", "delete task",
		"/", "search tasks",
		"v", "list / board / calendar",
		"←/→", "board column",
		"H", hideLabel,
		"C", "mark project completed",
		"E", "edit project",
		"D", "delete project",
		"r", "refresh",
		"esc", "back",
		"q", "quit",
	)
}
