package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
	"github.com/tgienger/taskdeck/internal/upload"
)

// RedirectDelay is how long the success state is shown before opening the
// new project
const RedirectDelay = 1500 * time.Millisecond

// UploadStatus is the state of the PDF upload flow
type UploadStatus int

const (
	UploadIdle UploadStatus = iota
	UploadUploading
	UploadProcessing
	UploadSuccess
	UploadError
)

func (s UploadStatus) String() string {
	switch s {
	case UploadUploading:
		return "uploading"
	case UploadProcessing:
		return "processing"
	case UploadSuccess:
		return "success"
	case UploadError:
		return "error"
	default:
		return "idle"
	}
}

// Percent is the progress bar value for the status. The backend reports no
// progress, so these are fixed estimates.
func (s UploadStatus) Percent() int {
	switch s {
	case UploadUploading:
		return 30
	case UploadProcessing:
		return 80
	case UploadSuccess:
		return 100
	default:
		return 0
	}
}

// Creator is the subset of the project accessors used to create projects
type Creator interface {
	UploadPDF(ctx context.Context, filename string, r io.Reader) (*models.Project, error)
	Create(ctx context.Context, req projects.CreateProjectRequest) (*models.Project, error)
}

// ProjectCreateState is a snapshot of the create page
type ProjectCreateState struct {
	Status  UploadStatus
	File    *upload.File
	Project *models.Project
	Err     error
	Notice  *Notification
}

// ProjectCreate drives the upload screen and explicit project creation
type ProjectCreate struct {
	backend Creator
	logger  *slog.Logger

	mu      sync.Mutex
	status  UploadStatus
	file    *upload.File
	project *models.Project
	err     error
	notice  *Notification
}

// NewProjectCreate creates the upload controller
func NewProjectCreate(backend Creator, logger *slog.Logger) *ProjectCreate {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectCreate{backend: backend, logger: logger}
}

// State returns a snapshot of the page
func (c *ProjectCreate) State() ProjectCreateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ProjectCreateState{
		Status:  c.status,
		File:    c.file,
		Project: c.project,
		Err:     c.err,
		Notice:  c.notice,
	}
}

// Upload checks path locally and sends it to the backend. A file that is not
// a PDF is rejected with a notification and nothing is sent.
func (c *ProjectCreate) Upload(ctx context.Context, path string) (*models.Project, error) {
	c.mu.Lock()
	if c.status == UploadUploading || c.status == UploadProcessing {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.mu.Unlock()

	f, err := upload.Inspect(path)
	if err != nil {
		c.mu.Lock()
		c.err = err
		if errors.Is(err, upload.ErrNotPDF) {
			c.notice = &Notification{Kind: NotifyError, Title: "Invalid file type", Body: "Please upload a PDF file."}
		} else {
			c.notice = errorNotice("Upload failed", err)
		}
		c.mu.Unlock()
		return nil, err
	}

	r, err := os.Open(f.Path)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	defer r.Close()

	c.mu.Lock()
	c.status = UploadUploading
	c.file = f
	c.project = nil
	c.err = nil
	c.notice = nil
	c.mu.Unlock()

	if f.Oversize {
		c.logger.Warn("uploading file above advisory size", "file", f.Name, "size", f.Size)
	}
	c.logger.Info("uploading pdf", "file", f.Name, "size", f.Size, "pages", f.Pages)

	body := &eofReader{r: r, onEOF: func() { c.setStatus(UploadProcessing) }}
	p, err := c.backend.UploadPDF(ctx, f.Name, body)
	if err == nil && (p == nil || p.ID == "") {
		err = ErrNoProject
	}
	if err != nil {
		c.fail(err)
		return nil, err
	}

	c.mu.Lock()
	c.status = UploadSuccess
	c.project = p
	c.notice = &Notification{
		Kind:  NotifySuccess,
		Title: "Project created successfully!",
		Body:  fmt.Sprintf("%q has been processed and your project is ready.", f.Name),
	}
	c.mu.Unlock()
	c.logger.Info("project created from pdf", "project_id", p.ID, "file", f.Name)
	return p, nil
}

// CreateManual creates a project without a PDF
func (c *ProjectCreate) CreateManual(ctx context.Context, title, description string, due *time.Time) (*models.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, projects.ErrTitleRequired
	}

	c.mu.Lock()
	if c.status == UploadUploading || c.status == UploadProcessing {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.status = UploadProcessing
	c.file = nil
	c.project = nil
	c.err = nil
	c.notice = nil
	c.mu.Unlock()

	p, err := c.backend.Create(ctx, projects.CreateProjectRequest{
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      models.ProjectPending,
		DueDate:     due,
	})
	if err == nil && (p == nil || p.ID == "") {
		err = ErrNoProject
	}
	if err != nil {
		c.fail(err)
		return nil, err
	}

	c.mu.Lock()
	c.status = UploadSuccess
	c.project = p
	c.notice = &Notification{Kind: NotifySuccess, Title: "Project created", Body: p.Title}
	c.mu.Unlock()
	c.logger.Info("project created", "project_id", p.ID)
	return p, nil
}

// Redirect returns the project to open and the delay before opening it, once
// the flow has succeeded
func (c *ProjectCreate) Redirect() (string, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != UploadSuccess || c.project == nil {
		return "", 0, false
	}
	return c.project.ID, RedirectDelay, true
}

// Reset returns the flow to idle unless a request is in flight
func (c *ProjectCreate) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == UploadUploading || c.status == UploadProcessing {
		return
	}
	c.status = UploadIdle
	c.file = nil
	c.project = nil
	c.err = nil
	c.notice = nil
}

func (c *ProjectCreate) setStatus(s UploadStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

func (c *ProjectCreate) fail(err error) {
	body := api.Message(err)
	if body == "" || errors.Is(err, ErrNoProject) {
		body = "There was an error processing your file."
	}
	c.mu.Lock()
	c.status = UploadError
	c.err = err
	c.notice = &Notification{Kind: NotifyError, Title: "Upload failed", Body: body}
	c.mu.Unlock()
	c.logger.Warn("project creation failed", "err", err)
}

// eofReader reports when the request body has been fully read, which is the
// point the backend starts processing
type eofReader struct {
	r     io.Reader
	onEOF func()
	done  bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) && !e.done {
		e.done = true
		e.onEOF()
	}
	return n, err
}
