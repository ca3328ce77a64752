package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		k, n, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{3, 3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.k, tt.n), "Percent(%d, %d)", tt.k, tt.n)
	}
}

func TestProjectProgress(t *testing.T) {
	p := Project{MainTasks: []MainTask{
		{Name: "a", Status: TaskCompleted},
		{Name: "b", Status: TaskInProgress},
		{Name: "c"},
	}}
	assert.Equal(t, 1, p.CompletedTasks())
	assert.Equal(t, 33, p.Progress())
	assert.False(t, p.AllTasksCompleted())

	for i := range p.MainTasks {
		p.MainTasks[i].Status = TaskCompleted
	}
	assert.Equal(t, 100, p.Progress())
	assert.True(t, p.AllTasksCompleted())

	assert.False(t, Project{}.AllTasksCompleted())
}

func TestSubtasksCompleted(t *testing.T) {
	task := MainTask{Subtasks: []Subtask{{Status: TaskCompleted}, {Status: TaskNotStarted}, {Status: TaskCompleted}}}
	assert.Equal(t, 2, task.SubtasksCompleted())
}

func TestValid(t *testing.T) {
	assert.True(t, ProjectInProgress.Valid())
	assert.False(t, ProjectStatus("archived").Valid())
	assert.True(t, TaskNotStarted.Valid())
	assert.False(t, TaskStatus("todo").Valid())
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("").Valid())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "In Progress", Label(string(TaskInProgress)))
	assert.Equal(t, "Not Started", Label(string(TaskNotStarted)))
	assert.Equal(t, "High", Label(string(PriorityHigh)))
	assert.Equal(t, "-", Label(""))
}

func TestPagination(t *testing.T) {
	p := Pagination{Page: 1, Pages: 3}
	assert.True(t, p.HasNext())
	assert.False(t, p.HasPrev())
	p.Page = 3
	assert.False(t, p.HasNext())
	assert.True(t, p.HasPrev())
}
