package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/models"
)

// UploadField is the multipart field the backend reads the PDF from
const UploadField = "pdf"

// CreateProjectRequest is the body of an explicit project creation
type CreateProjectRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Status      models.ProjectStatus `json:"status,omitempty"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
}

// UpdateProjectRequest is a partial project update; nil fields are not sent
type UpdateProjectRequest struct {
	Title       *string               `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Status      *models.ProjectStatus `json:"status,omitempty"`
	DueDate     *time.Time            `json:"dueDate,omitempty"`
}

// MainTaskInput creates a main task
type MainTaskInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Status      models.TaskStatus `json:"status,omitempty"`
	Priority    models.Priority   `json:"priority,omitempty"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
}

// MainTaskPatch is a partial main task update
type MainTaskPatch struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *models.TaskStatus `json:"status,omitempty"`
	Priority    *models.Priority   `json:"priority,omitempty"`
	DueDate     *time.Time         `json:"dueDate,omitempty"`
}

// SubtaskInput creates a subtask
type SubtaskInput struct {
	Name     string            `json:"name"`
	Status   models.TaskStatus `json:"status,omitempty"`
	Priority models.Priority   `json:"priority,omitempty"`
}

// SubtaskPatch is a partial subtask update
type SubtaskPatch struct {
	Name     *string            `json:"name,omitempty"`
	Status   *models.TaskStatus `json:"status,omitempty"`
	Priority *models.Priority   `json:"priority,omitempty"`
}

// CommentInput adds a comment
type CommentInput struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

// Page is one page of the project list
type Page struct {
	Projects   []models.Project  `json:"projects"`
	Pagination models.Pagination `json:"pagination"`
}

// UnmarshalJSON accepts both {"projects": [...], "pagination": {...}} and a
// bare array, which older backends return.
func (p *Page) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []models.Project
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*p = Page{
			Projects:   list,
			Pagination: models.Pagination{Page: 1, Limit: len(list), Total: len(list), Pages: 1},
		}
		return nil
	}

	type page Page
	var raw page
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Page(raw)
	return nil
}

// Service wraps the project, main task, subtask and comment endpoints. It
// does no caching and no merging; callers reconcile.
type Service struct {
	client *api.Client
}

// NewService creates a project accessor over client
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// List returns one page of the user's projects
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out Page
	if err := s.client.Do(ctx, http.MethodGet, "/projects", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Pagination.Page == 0 {
		out.Pagination.Page = page
	}
	if out.Pagination.Limit == 0 {
		out.Pagination.Limit = limit
	}
	return &out, nil
}

// Get fetches a project with its tasks
func (s *Service) Get(ctx context.Context, id string) (*models.Project, error) {
	path, err := projectPath(id)
	if err != nil {
		return nil, err
	}
	var p models.Project
	if err := s.client.Do(ctx, http.MethodGet, path, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a project without a PDF
func (s *Service) Create(ctx context.Context, req CreateProjectRequest) (*models.Project, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, ErrTitleRequired
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}
	var p models.Project
	if err := s.client.Do(ctx, http.MethodPost, "/projects", nil, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial update to a project
func (s *Service) Update(ctx context.Context, id string, req UpdateProjectRequest) (*models.Project, error) {
	path, err := projectPath(id)
	if err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, ErrTitleRequired
	}
	var p models.Project
	if err := s.client.Do(ctx, http.MethodPut, path, nil, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a project and its tasks
func (s *Service) Delete(ctx context.Context, id string) error {
	path, err := projectPath(id)
	if err != nil {
		return err
	}
	return s.client.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// UploadPDF sends a PDF for the backend to turn into a project. The created
// project may come back bare or wrapped as {"project": {...}}.
func (s *Service) UploadPDF(ctx context.Context, filename string, r io.Reader) (*models.Project, error) {
	var raw json.RawMessage
	if err := s.client.Upload(ctx, "/projects/upload", UploadField, filename, r, &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		Project *models.Project `json:"project"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Project != nil {
		return wrapped.Project, nil
	}
	var p models.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrMalformedEnvelope, err)
	}
	return &p, nil
}

// AddMainTask appends a main task to a project
func (s *Service) AddMainTask(ctx context.Context, id string, in MainTaskInput) error {
	path, err := projectPath(id)
	if err != nil {
		return err
	}
	if err := validateTask(in.Name, in.Status, in.Priority); err != nil {
		return err
	}
	return s.client.Do(ctx, http.MethodPost, path+"/mainTasks", nil, in, nil)
}

// UpdateMainTask patches the main task at index i
func (s *Service) UpdateMainTask(ctx context.Context, id string, i int, patch MainTaskPatch) error {
	path, err := taskPath(id, i)
	if err != nil {
		return err
	}
	if err := validatePatch(patch.Name, patch.Status, patch.Priority); err != nil {
		return err
	}
	return s.client.Do(ctx, http.MethodPut, path, nil, patch, nil)
}

// DeleteMainTask removes the main task at index i. Later tasks shift down.
func (s *Service) DeleteMainTask(ctx context.Context, id string, i int) error {
	path, err := taskPath(id, i)
	if err != nil {
		return err
	}
	return s.client.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// AddSubtask appends a subtask to main task i
func (s *Service) AddSubtask(ctx context.Context, id string, i int, in SubtaskInput) error {
	path, err := taskPath(id, i)
	if err != nil {
		return err
	}
	if err := validateTask(in.Name, in.Status, in.Priority); err != nil {
		return err
	}
	return s.client.Do(ctx, http.MethodPost, path+"/subtasks", nil, in, nil)
}

// UpdateSubtask patches subtask j of main task i
func (s *Service) UpdateSubtask(ctx context.Context, id string, i, j int, patch SubtaskPatch) error {
	path, err := subtaskPath(id, i, j)
	if err != nil {
		return err
	}
	if err := validatePatch(patch.Name, patch.Status, patch.Priority); err != nil {
		return err
	}
	return s.client.Do(ctx, http.MethodPut, path, nil, patch, nil)
}

// DeleteSubtask removes subtask j of main task i
func (s *Service) DeleteSubtask(ctx context.Context, id string, i, j int) error {
	path, err := subtaskPath(id, i, j)
	if err != nil {
		return err
	}
	return s.client.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// TaskComments lists the comments on main task i
func (s *Service) TaskComments(ctx context.Context, id string, i int) ([]models.Comment, error) {
	path, err := taskPath(id, i)
	if err != nil {
		return nil, err
	}
	var out []models.Comment
	if err := s.client.Do(ctx, http.MethodGet, path+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddTaskComment appends a comment to main task i
func (s *Service) AddTaskComment(ctx context.Context, id string, i int, in CommentInput) error {
	path, err := taskPath(id, i)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.Text) == "" {
		return ErrEmptyComment
	}
	return s.client.Do(ctx, http.MethodPost, path+"/comments", nil, in, nil)
}

// SubtaskComments lists the comments on subtask j of main task i
func (s *Service) SubtaskComments(ctx context.Context, id string, i, j int) ([]models.Comment, error) {
	path, err := subtaskPath(id, i, j)
	if err != nil {
		return nil, err
	}
	var out []models.Comment
	if err := s.client.Do(ctx, http.MethodGet, path+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddSubtaskComment appends a comment to subtask j of main task i
func (s *Service) AddSubtaskComment(ctx context.Context, id string, i, j int, in CommentInput) error {
	path, err := subtaskPath(id, i, j)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.Text) == "" {
		return ErrEmptyComment
	}
	return s.client.Do(ctx, http.MethodPost, path+"/comments", nil, in, nil)
}

func projectPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrProjectIDRequired
	}
	return "/projects/" + url.PathEscape(id), nil
}

func taskPath(id string, i int) (string, error) {
	base, err := projectPath(id)
	if err != nil {
		return "", err
	}
	if i < 0 {
		return "", fmt.Errorf("%w: main task %d", ErrInvalidIndex, i)
	}
	return base + "/mainTasks/" + strconv.Itoa(i), nil
}

func subtaskPath(id string, i, j int) (string, error) {
	base, err := taskPath(id, i)
	if err != nil {
		return "", err
	}
	if j < 0 {
		return "", fmt.Errorf("%w: subtask %d", ErrInvalidIndex, j)
	}
	return base + "/subtasks/" + strconv.Itoa(j), nil
}

func validateTask(name string, status models.TaskStatus, priority models.Priority) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if status != "" && !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if priority != "" && !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	return nil
}

func validatePatch(name *string, status *models.TaskStatus, priority *models.Priority) error {
	if name != nil && strings.TrimSpace(*name) == "" {
		return ErrNameRequired
	}
	if status != nil && !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
	}
	if priority != nil && !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, *priority)
	}
	return nil
}
