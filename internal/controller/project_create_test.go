package controller

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/logging"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
	"github.com/tgienger/taskdeck/internal/upload"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type stubCreator struct {
	uploaded chan struct{}
	release  chan struct{}
	project  *models.Project
	err      error
	calls    int
}

func (s *stubCreator) UploadPDF(ctx context.Context, filename string, r io.Reader) (*models.Project, error) {
	s.calls++
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	if s.uploaded != nil {
		close(s.uploaded)
		<-s.release
	}
	return s.project, s.err
}

func (s *stubCreator) Create(ctx context.Context, req projects.CreateProjectRequest) (*models.Project, error) {
	s.calls++
	return s.project, s.err
}

func TestProjectCreate_RejectsNonPDFWithoutRequest(t *testing.T) {
	fb, svc := newFakeBackend(t)
	c := NewProjectCreate(svc, logging.Discard())

	_, err := c.Upload(context.Background(), writeTemp(t, "notes.txt", "meeting notes"))
	assert.ErrorIs(t, err, upload.ErrNotPDF)
	assert.Equal(t, 0, fb.total())

	s := c.State()
	assert.Equal(t, UploadIdle, s.Status)
	require.NotNil(t, s.Notice)
	assert.Equal(t, NotifyError, s.Notice.Kind)
	assert.Equal(t, "Invalid file type", s.Notice.Title)
	assert.Equal(t, "Please upload a PDF file.", s.Notice.Body)

	_, _, ok := c.Redirect()
	assert.False(t, ok)
}

func TestProjectCreate_UploadSuccess(t *testing.T) {
	fb, svc := newFakeBackend(t)
	c := NewProjectCreate(svc, logging.Discard())

	p, err := c.Upload(context.Background(), writeTemp(t, "brief.pdf", "%PDF-1.4\n"))
	require.NoError(t, err)
	assert.Equal(t, "brief.pdf", p.Title)
	assert.Equal(t, 1, fb.total())

	s := c.State()
	assert.Equal(t, UploadSuccess, s.Status)
	assert.Equal(t, 100, s.Status.Percent())
	assert.Equal(t, "brief.pdf", s.File.Name)
	require.NotNil(t, s.Notice)
	assert.Equal(t, "Project created successfully!", s.Notice.Title)
	assert.Contains(t, s.Notice.Body, `"brief.pdf" has been processed`)

	id, delay, ok := c.Redirect()
	require.True(t, ok)
	assert.Equal(t, p.ID, id)
	assert.Equal(t, 1500*time.Millisecond, delay)
}

func TestProjectCreate_StatusProgression(t *testing.T) {
	stub := &stubCreator{
		uploaded: make(chan struct{}),
		release:  make(chan struct{}),
		project:  &models.Project{ID: "p9"},
	}
	c := NewProjectCreate(stub, logging.Discard())
	assert.Equal(t, 0, c.State().Status.Percent())

	path := writeTemp(t, "brief.pdf", "%PDF-1.4\n")
	done := make(chan error, 1)
	go func() {
		_, err := c.Upload(context.Background(), path)
		done <- err
	}()

	select {
	case <-stub.uploaded:
	case <-time.After(5 * time.Second):
		t.Fatal("upload never reached the backend")
	}
	s := c.State()
	assert.Equal(t, UploadProcessing, s.Status)
	assert.Equal(t, 80, s.Status.Percent())

	_, err := c.Upload(context.Background(), path)
	assert.ErrorIs(t, err, ErrBusy)

	close(stub.release)
	require.NoError(t, <-done)
	assert.Equal(t, UploadSuccess, c.State().Status)
	assert.Equal(t, 1, stub.calls)
}

func TestProjectCreate_UploadFailure(t *testing.T) {
	stub := &stubCreator{err: &api.APIError{Status: 422, Message: "Could not extract tasks"}}
	c := NewProjectCreate(stub, logging.Discard())

	_, err := c.Upload(context.Background(), writeTemp(t, "brief.pdf", "%PDF-1.4\n"))
	require.Error(t, err)

	s := c.State()
	assert.Equal(t, UploadError, s.Status)
	assert.Equal(t, 0, s.Status.Percent())
	require.NotNil(t, s.Notice)
	assert.Equal(t, "Upload failed", s.Notice.Title)
	assert.Equal(t, "Could not extract tasks", s.Notice.Body)

	c.Reset()
	assert.Equal(t, UploadIdle, c.State().Status)
	assert.Nil(t, c.State().Notice)
}

func TestProjectCreate_MissingProjectID(t *testing.T) {
	stub := &stubCreator{project: &models.Project{}}
	c := NewProjectCreate(stub, logging.Discard())

	_, err := c.Upload(context.Background(), writeTemp(t, "brief.pdf", "%PDF-1.4\n"))
	assert.True(t, errors.Is(err, ErrNoProject))
	assert.Equal(t, "There was an error processing your file.", c.State().Notice.Body)
}

func TestProjectCreate_Manual(t *testing.T) {
	fb, svc := newFakeBackend(t)
	c := NewProjectCreate(svc, logging.Discard())

	_, err := c.CreateManual(context.Background(), "  ", "", nil)
	assert.ErrorIs(t, err, projects.ErrTitleRequired)
	assert.Equal(t, 0, fb.total())

	p, err := c.CreateManual(context.Background(), "Website", "Relaunch", nil)
	require.NoError(t, err)
	assert.Equal(t, "Website", p.Title)
	assert.Equal(t, models.ProjectPending, p.Status)

	id, _, ok := c.Redirect()
	require.True(t, ok)
	assert.Equal(t, p.ID, id)
}
