package controller

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskdeck/internal/logging"
	"github.com/tgienger/taskdeck/internal/models"
)

func manyProjects(n int) []models.Project {
	out := make([]models.Project, n)
	for i := range out {
		out[i] = models.Project{ID: fmt.Sprintf("p%02d", i+1), Title: fmt.Sprintf("Project %d", i+1), Status: models.ProjectPending}
	}
	return out
}

func TestProjects_Pagination(t *testing.T) {
	ctx := context.Background()
	_, svc := newFakeBackend(t, manyProjects(5)...)
	c := NewProjects(svc, logging.Discard(), 2)

	require.NoError(t, c.Load(ctx))
	s := c.State()
	assert.Equal(t, PhaseSuccess, s.Fetch)
	require.Len(t, s.Projects, 2)
	assert.Equal(t, "p01", s.Projects[0].ID)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 2, Total: 5, Pages: 3}, s.Pagination)

	moved, err := c.PrevPage(ctx)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = c.NextPage(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = c.NextPage(ctx)
	require.NoError(t, err)
	assert.True(t, moved)

	s = c.State()
	assert.Equal(t, 3, s.Pagination.Page)
	require.Len(t, s.Projects, 1)
	assert.Equal(t, "p05", s.Projects[0].ID)

	moved, err = c.NextPage(ctx)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestProjects_DeleteLastOnPageStepsBack(t *testing.T) {
	ctx := context.Background()
	fb, svc := newFakeBackend(t, manyProjects(3)...)
	c := NewProjects(svc, logging.Discard(), 2)

	require.NoError(t, c.GoTo(ctx, 2))
	require.Len(t, c.State().Projects, 1)

	require.NoError(t, c.Delete(ctx, "p03"))
	assert.Equal(t, 1, fb.count(http.MethodDelete, "/projects/p03"))

	s := c.State()
	assert.Equal(t, 1, s.Pagination.Page)
	assert.Len(t, s.Projects, 2)
	assert.Equal(t, PhaseSuccess, s.Write)
	require.NotNil(t, s.Notice)
	assert.Equal(t, NotifySuccess, s.Notice.Kind)
}

func TestProjects_DeleteFailure(t *testing.T) {
	ctx := context.Background()
	_, svc := newFakeBackend(t, manyProjects(1)...)
	c := NewProjects(svc, logging.Discard(), 10)
	require.NoError(t, c.Load(ctx))

	err := c.Delete(ctx, "nope")
	require.Error(t, err)
	s := c.State()
	assert.Equal(t, PhaseError, s.Write)
	assert.Len(t, s.Projects, 1, "failed delete leaves the list alone")
	assert.Equal(t, "Project not found", s.Notice.Body)
}
