package controller

import (
	"sort"
	"strings"
	"time"

	"github.com/tgienger/taskdeck/internal/models"
)

// TaskItem is a main task with the position it had in the snapshot
type TaskItem struct {
	Index int
	Task  models.MainTask
}

// Ref returns a stable reference to the item
func (t TaskItem) Ref() TaskRef {
	return TaskRef{ID: t.Task.ID, Index: t.Index, Name: t.Task.Name}
}

// FilterTasks returns the tasks whose name contains query (case-insensitive),
// optionally dropping completed ones. Order is preserved.
func FilterTasks(p *models.Project, query string, hideCompleted bool) []TaskItem {
	if p == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	items := make([]TaskItem, 0, len(p.MainTasks))
	for i, t := range p.MainTasks {
		if hideCompleted && t.Status == models.TaskCompleted {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Name), q) {
			continue
		}
		items = append(items, TaskItem{Index: i, Task: t})
	}
	return items
}

// Column is one board lane
type Column struct {
	Status models.TaskStatus
	Items  []TaskItem
}

// BoardColumns groups items by status in TaskStatuses order. Tasks without a
// status land in the not-started lane.
func BoardColumns(items []TaskItem) []Column {
	cols := make([]Column, len(models.TaskStatuses))
	idx := make(map[models.TaskStatus]int, len(models.TaskStatuses))
	for i, s := range models.TaskStatuses {
		cols[i].Status = s
		idx[s] = i
	}
	for _, it := range items {
		c, ok := idx[it.Task.Status]
		if !ok {
			c = idx[models.TaskNotStarted]
		}
		cols[c].Items = append(cols[c].Items, it)
	}
	return cols
}

// DayGroup is the set of tasks due on one day. A zero Day holds undated tasks.
type DayGroup struct {
	Day   time.Time
	Items []TaskItem
}

// CalendarGroups buckets items by due date (local day), earliest first, with
// undated tasks last.
func CalendarGroups(items []TaskItem) []DayGroup {
	byDay := map[time.Time][]TaskItem{}
	var undated []TaskItem
	for _, it := range items {
		if it.Task.DueDate == nil {
			undated = append(undated, it)
			continue
		}
		d := it.Task.DueDate.Local()
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
		byDay[day] = append(byDay[day], it)
	}

	groups := make([]DayGroup, 0, len(byDay)+1)
	for day, its := range byDay {
		groups = append(groups, DayGroup{Day: day, Items: its})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Day.Before(groups[j].Day)
	})
	if len(undated) > 0 {
		groups = append(groups, DayGroup{Items: undated})
	}
	return groups
}
