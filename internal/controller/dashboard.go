package controller

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
)

const (
	// DashboardProjectLimit is how many projects the stats are computed over
	DashboardProjectLimit = 100
	// RecentProjects is the length of the recent list
	RecentProjects = 5
	dueWindow      = 7 * 24 * time.Hour
)

// ProfileSource fetches the current user
type ProfileSource interface {
	Profile(ctx context.Context) (*models.User, error)
}

// ProjectPager lists projects
type ProjectPager interface {
	List(ctx context.Context, page, limit int) (*projects.Page, error)
}

// Stats are the dashboard counters
type Stats struct {
	ActiveProjects int
	DueThisWeek    int
	CompletedTasks int
	TotalProjects  int
}

// DashboardData is everything the dashboard renders
type DashboardData struct {
	User     *models.User
	Greeting string
	Stats    Stats
	Recent   []models.Project
}

// DashboardState is a snapshot of the dashboard
type DashboardState struct {
	Data   *DashboardData
	Fetch  Phase
	Err    error
	Notice *Notification
}

// Dashboard drives the landing screen
type Dashboard struct {
	profile ProfileSource
	pager   ProjectPager
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	data   *DashboardData
	fetch  Phase
	err    error
	notice *Notification
}

// NewDashboard creates the dashboard controller
func NewDashboard(profile ProfileSource, pager ProjectPager, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{profile: profile, pager: pager, logger: logger, now: time.Now}
}

// State returns a snapshot of the dashboard
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DashboardState{Data: d.data, Fetch: d.fetch, Err: d.err, Notice: d.notice}
}

// Load fetches the profile and the project list concurrently and computes
// the stats
func (d *Dashboard) Load(ctx context.Context) (*DashboardData, error) {
	d.mu.Lock()
	d.fetch = PhaseLoading
	d.mu.Unlock()

	var (
		user *models.User
		page *projects.Page
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := d.profile.Profile(gctx)
		user = u
		return err
	})
	g.Go(func() error {
		p, err := d.pager.List(gctx, 1, DashboardProjectLimit)
		page = p
		return err
	})

	if err := g.Wait(); err != nil {
		d.mu.Lock()
		d.fetch = PhaseError
		d.err = err
		d.notice = errorNotice("Failed to load dashboard", err)
		d.mu.Unlock()
		d.logger.Warn("failed to load dashboard", "err", err)
		return nil, err
	}

	now := d.now()
	data := &DashboardData{
		User:     user,
		Greeting: Greeting(now),
		Stats:    ComputeStats(page, now),
		Recent:   RecentlyUpdated(page.Projects, RecentProjects),
	}

	d.mu.Lock()
	d.data = data
	d.fetch = PhaseSuccess
	d.err = nil
	d.notice = nil
	d.mu.Unlock()
	return data, nil
}

// Greeting returns the salutation for the hour of t
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// ComputeStats derives the dashboard counters. A task is due this week when
// it is not completed and its due date falls between the start of today and
// seven days from now.
func ComputeStats(page *projects.Page, now time.Time) Stats {
	var s Stats
	if page == nil {
		return s
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := now.Add(dueWindow)

	for _, p := range page.Projects {
		if p.Status != models.ProjectCompleted {
			s.ActiveProjects++
		}
		s.CompletedTasks += p.CompletedTasks()
		for _, t := range p.MainTasks {
			if t.Status == models.TaskCompleted || t.DueDate == nil {
				continue
			}
			if !t.DueDate.Before(start) && !t.DueDate.After(end) {
				s.DueThisWeek++
			}
		}
	}

	s.TotalProjects = page.Pagination.Total
	if s.TotalProjects < len(page.Projects) {
		s.TotalProjects = len(page.Projects)
	}
	return s
}

// RecentlyUpdated returns up to n projects, most recently updated first
func RecentlyUpdated(list []models.Project, n int) []models.Project {
	out := make([]models.Project, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
