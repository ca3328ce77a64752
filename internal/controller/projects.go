package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
)

// ProjectLister lists and deletes projects
type ProjectLister interface {
	List(ctx context.Context, page, limit int) (*projects.Page, error)
	Delete(ctx context.Context, id string) error
}

// ProjectsState is a snapshot of the projects page
type ProjectsState struct {
	Projects   []models.Project
	Pagination models.Pagination
	Fetch      Phase
	Write      Phase
	Err        error
	Notice     *Notification
}

// Projects drives the paginated project list
type Projects struct {
	backend ProjectLister
	logger  *slog.Logger
	limit   int

	mu         sync.Mutex
	page       int
	items      []models.Project
	pagination models.Pagination
	fetch      Phase
	write      Phase
	err        error
	notice     *Notification
}

// NewProjects creates the list controller with limit projects per page
func NewProjects(backend ProjectLister, logger *slog.Logger, limit int) *Projects {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 10
	}
	return &Projects{backend: backend, logger: logger, limit: limit, page: 1}
}

// State returns a snapshot of the page
func (c *Projects) State() ProjectsState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ProjectsState{
		Projects:   c.items,
		Pagination: c.pagination,
		Fetch:      c.fetch,
		Write:      c.write,
		Err:        c.err,
		Notice:     c.notice,
	}
}

// Load fetches the current page
func (c *Projects) Load(ctx context.Context) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	return c.GoTo(ctx, page)
}

// GoTo fetches page n
func (c *Projects) GoTo(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.fetch = PhaseLoading
	c.mu.Unlock()

	res, err := c.backend.List(ctx, n, c.limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fetch = PhaseError
		c.err = err
		c.notice = errorNotice("Failed to load projects", err)
		c.logger.Warn("failed to list projects", "page", n, "err", err)
		return err
	}
	c.page = n
	c.items = res.Projects
	c.pagination = res.Pagination
	c.fetch = PhaseSuccess
	c.err = nil
	return nil
}

// NextPage moves forward one page; false when already on the last page
func (c *Projects) NextPage(ctx context.Context) (bool, error) {
	c.mu.Lock()
	p := c.pagination
	c.mu.Unlock()
	if !p.HasNext() {
		return false, nil
	}
	return true, c.GoTo(ctx, p.Page+1)
}

// PrevPage moves back one page; false when already on the first page
func (c *Projects) PrevPage(ctx context.Context) (bool, error) {
	c.mu.Lock()
	p := c.pagination
	c.mu.Unlock()
	if !p.HasPrev() {
		return false, nil
	}
	return true, c.GoTo(ctx, p.Page-1)
}

// Delete removes a project and refetches the page. If that empties a page
// past the first, the previous page is shown.
func (c *Projects) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.write == PhaseSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.write = PhaseSubmitting
	c.notice = nil
	c.mu.Unlock()

	if err := c.backend.Delete(ctx, id); err != nil {
		c.mu.Lock()
		c.write = PhaseError
		c.err = err
		c.notice = errorNotice("Failed to delete project", err)
		c.mu.Unlock()
		return err
	}
	c.logger.Info("project deleted", "project_id", id)

	err := c.Load(ctx)
	if err == nil {
		c.mu.Lock()
		empty := len(c.items) == 0 && c.page > 1
		page := c.page
		c.mu.Unlock()
		if empty {
			err = c.GoTo(ctx, page-1)
		}
	}

	c.mu.Lock()
	c.write = PhaseSuccess
	if err == nil {
		c.notice = &Notification{Kind: NotifySuccess, Title: "Project deleted"}
	}
	c.mu.Unlock()
	return err
}
