// Package controller holds the page-level state machines behind each screen.
// Controllers call the accessors, reconcile with the backend after writes and
// expose a read-only snapshot for rendering. All methods are safe to call
// from tea.Cmd goroutines.
package controller

import (
	"errors"

	"github.com/tgienger/taskdeck/internal/api"
)

var (
	// ErrStaleReference means the task or subtask a reference was taken from
	// is no longer at a position the reference can be resolved to
	ErrStaleReference = errors.New("task list changed; reselect and try again")

	// ErrBusy rejects a write while another write on the same page is in flight
	ErrBusy = errors.New("another change is still being saved")

	ErrNotLoaded  = errors.New("project not loaded")
	ErrNoProject  = errors.New("upload response did not include a project id")
	ErrNotPending = errors.New("project cannot be marked completed")
)

// Phase is the state of one fetch or one write
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSubmitting
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// Busy reports whether a request is outstanding
func (p Phase) Busy() bool {
	return p == PhaseLoading || p == PhaseSubmitting
}

// NotificationKind selects how a notification is styled
type NotificationKind int

const (
	NotifyInfo NotificationKind = iota
	NotifySuccess
	NotifyError
)

// Notification is a toast-style message for the current page
type Notification struct {
	Kind  NotificationKind
	Title string
	Body  string
}

func errorNotice(title string, err error) *Notification {
	return &Notification{Kind: NotifyError, Title: title, Body: api.Message(err)}
}
