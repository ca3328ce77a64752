package projects

import "errors"

var (
	ErrProjectIDRequired = errors.New("project id is required")
	ErrInvalidIndex      = errors.New("invalid index")
	ErrTitleRequired     = errors.New("Title is required")
	ErrNameRequired      = errors.New("Name is required")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrEmptyComment      = errors.New("comment is empty")
)
