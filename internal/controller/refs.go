package controller

import "github.com/tgienger/taskdeck/internal/models"

// TaskRef identifies a main task as the user saw it. The backend addresses
// tasks by position, so a ref is resolved against the latest project before
// every write: by ID when the backend supplied one, otherwise by checking the
// position still holds a task with the same name.
type TaskRef struct {
	ID    string
	Index int
	Name  string
}

// SubtaskRef identifies a subtask within a main task
type SubtaskRef struct {
	Task  TaskRef
	ID    string
	Index int
	Name  string
}

// TaskRefAt builds a reference to the main task currently at index i
func TaskRefAt(p *models.Project, i int) (TaskRef, bool) {
	if p == nil || i < 0 || i >= len(p.MainTasks) {
		return TaskRef{}, false
	}
	t := p.MainTasks[i]
	return TaskRef{ID: t.ID, Index: i, Name: t.Name}, true
}

// SubtaskRefAt builds a reference to subtask j of main task i
func SubtaskRefAt(p *models.Project, i, j int) (SubtaskRef, bool) {
	task, ok := TaskRefAt(p, i)
	if !ok {
		return SubtaskRef{}, false
	}
	subs := p.MainTasks[i].Subtasks
	if j < 0 || j >= len(subs) {
		return SubtaskRef{}, false
	}
	return SubtaskRef{Task: task, ID: subs[j].ID, Index: j, Name: subs[j].Name}, true
}

// Resolve returns the task's current index in p
func (r TaskRef) Resolve(p *models.Project) (int, error) {
	if p == nil {
		return 0, ErrNotLoaded
	}
	if r.ID != "" {
		for i, t := range p.MainTasks {
			if t.ID == r.ID {
				return i, nil
			}
		}
		return 0, ErrStaleReference
	}
	if r.Index < 0 || r.Index >= len(p.MainTasks) || p.MainTasks[r.Index].Name != r.Name {
		return 0, ErrStaleReference
	}
	return r.Index, nil
}

// Resolve returns the current (task, subtask) indices in p
func (r SubtaskRef) Resolve(p *models.Project) (int, int, error) {
	i, err := r.Task.Resolve(p)
	if err != nil {
		return 0, 0, err
	}
	subs := p.MainTasks[i].Subtasks
	if r.ID != "" {
		for j, s := range subs {
			if s.ID == r.ID {
				return i, j, nil
			}
		}
		return 0, 0, ErrStaleReference
	}
	if r.Index < 0 || r.Index >= len(subs) || subs[r.Index].Name != r.Name {
		return 0, 0, ErrStaleReference
	}
	return i, r.Index, nil
}
