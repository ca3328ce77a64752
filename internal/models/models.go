package models

import (
	"math"
	"strings"
	"time"
)

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "pending"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// TaskStatus is the state of a main task or subtask
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not-started"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// Priority of a main task or subtask
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ProjectStatuses lists project statuses in display order
var ProjectStatuses = []ProjectStatus{ProjectPending, ProjectInProgress, ProjectCompleted}

// TaskStatuses lists task statuses in display order (also the board columns)
var TaskStatuses = []TaskStatus{TaskNotStarted, TaskInProgress, TaskCompleted}

// Priorities lists priorities from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known task status
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// Label returns a human readable form, e.g. "in-progress" -> "In Progress"
func Label(s string) string {
	if s == "" {
		return "-"
	}
	words := strings.Split(s, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// User is the authenticated account
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	ProfilePicture  string     `json:"profilePicture,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
}

// Comment is an append-only note on a main task or subtask
type Comment struct {
	ID        string    `json:"_id,omitempty"`
	Author    string    `json:"author,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subtask is a child work item of a main task
type Subtask struct {
	ID       string     `json:"_id,omitempty"`
	Name     string     `json:"name"`
	Status   TaskStatus `json:"status,omitempty"`
	Priority Priority   `json:"priority,omitempty"`
	Comments []Comment  `json:"comments,omitempty"`
}

// MainTask is a top-level work item; the backend addresses it by its
// position in Project.MainTasks
type MainTask struct {
	ID          string     `json:"_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Subtasks    []Subtask  `json:"subtasks,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
}

// SubtasksCompleted returns the number of completed subtasks
func (t MainTask) SubtasksCompleted() int {
	n := 0
	for _, s := range t.Subtasks {
		if s.Status == TaskCompleted {
			n++
		}
	}
	return n
}

// Project is the aggregate root for main tasks
type Project struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	MainTasks   []MainTask    `json:"mainTasks,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// CompletedTasks returns the number of main tasks marked completed
func (p Project) CompletedTasks() int {
	n := 0
	for _, t := range p.MainTasks {
		if t.Status == TaskCompleted {
			n++
		}
	}
	return n
}

// Progress returns round(100*completed/total), 0 for a project without tasks
func (p Project) Progress() int {
	return Percent(p.CompletedTasks(), len(p.MainTasks))
}

// AllTasksCompleted is true when the project has tasks and every one is completed
func (p Project) AllTasksCompleted() bool {
	return len(p.MainTasks) > 0 && p.CompletedTasks() == len(p.MainTasks)
}

// Percent returns round(100*k/n), 0 when n is 0
func Percent(k, n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(k) / float64(n)))
}

// Pagination describes one page of a list response
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// HasNext reports whether a page follows this one
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages
}

// HasPrev reports whether a page precedes this one
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}
