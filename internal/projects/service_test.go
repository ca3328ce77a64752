package projects

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/logging"
	"github.com/tgienger/taskdeck/internal/models"
)

type call struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	reply string
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &c.body)
	}
	rec.mu.Lock()
	rec.calls = append(rec.calls, c)
	reply := rec.reply
	rec.mu.Unlock()
	if reply == "" {
		reply = `{"data":{}}`
	}
	_, _ = io.WriteString(w, reply)
}

func (rec *recorder) only(t *testing.T) call {
	t.Helper()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.calls, 1)
	return rec.calls[0]
}

func newTestService(t *testing.T, reply string) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{reply: reply}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return NewService(api.NewClient(srv.URL, api.WithLogger(logging.Discard()))), rec
}

func ptr[T any](v T) *T { return &v }

func TestList_PaginatedShape(t *testing.T) {
	s, rec := newTestService(t, `{"data":{"projects":[{"_id":"p1","title":"A","status":"pending"}],"pagination":{"page":2,"limit":5,"total":6,"pages":2}}}`)

	page, err := s.List(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Len(t, page.Projects, 1)
	assert.Equal(t, "p1", page.Projects[0].ID)
	assert.Equal(t, 6, page.Pagination.Total)
	assert.False(t, page.Pagination.HasNext())
	assert.True(t, page.Pagination.HasPrev())

	c := rec.only(t)
	assert.Equal(t, "/projects", c.path)
	assert.Equal(t, "limit=5&page=2", c.query)
}

func TestList_BareArray(t *testing.T) {
	s, _ := newTestService(t, `{"data":[{"_id":"p1","title":"A"},{"_id":"p2","title":"B"}]}`)

	page, err := s.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Len(t, page.Projects, 2)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 1, page.Pagination.Pages)
}

func TestGetAndUpdate(t *testing.T) {
	s, rec := newTestService(t, `{"data":{"_id":"p1","title":"A","status":"completed","mainTasks":[{"name":"t1","status":"completed"}]}}`)

	status := models.ProjectCompleted
	p, err := s.Update(context.Background(), "p1", UpdateProjectRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, p.Status)
	assert.Equal(t, 100, p.Progress())

	c := rec.only(t)
	assert.Equal(t, http.MethodPut, c.method)
	assert.Equal(t, "/projects/p1", c.path)
	assert.Equal(t, map[string]any{"status": "completed"}, c.body)
}

func TestCreate_RequiresTitle(t *testing.T) {
	s, rec := newTestService(t, "")

	_, err := s.Create(context.Background(), CreateProjectRequest{Title: "   "})
	assert.ErrorIs(t, err, ErrTitleRequired)
	assert.Empty(t, rec.calls)
}

func TestNestedPaths(t *testing.T) {
	tests := []struct {
		name   string
		run    func(s *Service) error
		method string
		path   string
	}{
		{"add task", func(s *Service) error {
			return s.AddMainTask(context.Background(), "p1", MainTaskInput{Name: "Design"})
		}, http.MethodPost, "/projects/p1/mainTasks"},
		{"update task", func(s *Service) error {
			return s.UpdateMainTask(context.Background(), "p1", 2, MainTaskPatch{Status: ptr(models.TaskCompleted)})
		}, http.MethodPut, "/projects/p1/mainTasks/2"},
		{"delete task", func(s *Service) error {
			return s.DeleteMainTask(context.Background(), "p1", 0)
		}, http.MethodDelete, "/projects/p1/mainTasks/0"},
		{"add subtask", func(s *Service) error {
			return s.AddSubtask(context.Background(), "p1", 1, SubtaskInput{Name: "Wireframes"})
		}, http.MethodPost, "/projects/p1/mainTasks/1/subtasks"},
		{"update subtask", func(s *Service) error {
			return s.UpdateSubtask(context.Background(), "p1", 1, 3, SubtaskPatch{Priority: ptr(models.PriorityHigh)})
		}, http.MethodPut, "/projects/p1/mainTasks/1/subtasks/3"},
		{"delete subtask", func(s *Service) error {
			return s.DeleteSubtask(context.Background(), "p1", 1, 3)
		}, http.MethodDelete, "/projects/p1/mainTasks/1/subtasks/3"},
		{"task comment", func(s *Service) error {
			return s.AddTaskComment(context.Background(), "p1", 1, CommentInput{Text: "looks good"})
		}, http.MethodPost, "/projects/p1/mainTasks/1/comments"},
		{"subtask comment", func(s *Service) error {
			return s.AddSubtaskComment(context.Background(), "p1", 1, 0, CommentInput{Text: "done"})
		}, http.MethodPost, "/projects/p1/mainTasks/1/subtasks/0/comments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newTestService(t, "")
			require.NoError(t, tt.run(s))
			c := rec.only(t)
			assert.Equal(t, tt.method, c.method)
			assert.Equal(t, tt.path, c.path)
		})
	}
}

func TestComments(t *testing.T) {
	s, rec := newTestService(t, `{"data":[{"_id":"c1","author":"Ada","text":"hi"}]}`)

	comments, err := s.SubtaskComments(context.Background(), "p1", 0, 1)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "hi", comments[0].Text)
	assert.Equal(t, "/projects/p1/mainTasks/0/subtasks/1/comments", rec.only(t).path)
}

func TestValidationSendsNothing(t *testing.T) {
	s, rec := newTestService(t, "")
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteMainTask(ctx, "p1", -1), ErrInvalidIndex)
	assert.ErrorIs(t, s.UpdateSubtask(ctx, "p1", 0, -2, SubtaskPatch{}), ErrInvalidIndex)
	assert.ErrorIs(t, s.AddMainTask(ctx, "p1", MainTaskInput{Name: " "}), ErrNameRequired)
	assert.ErrorIs(t, s.AddMainTask(ctx, "p1", MainTaskInput{Name: "x", Priority: "urgent"}), ErrInvalidPriority)
	assert.ErrorIs(t, s.UpdateMainTask(ctx, "p1", 0, MainTaskPatch{Status: ptr(models.TaskStatus("todo"))}), ErrInvalidStatus)
	assert.ErrorIs(t, s.AddTaskComment(ctx, "p1", 0, CommentInput{Text: " \n\t"}), ErrEmptyComment)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrProjectIDRequired)
	assert.Empty(t, rec.calls)
}

func TestUploadPDF(t *testing.T) {
	s, rec := newTestService(t, `{"data":{"_id":"p7","title":"From PDF"}}`)

	p, err := s.UploadPDF(context.Background(), "brief.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "p7", p.ID)
	assert.Equal(t, "/projects/upload", rec.only(t).path)
}

func TestUploadPDF_WrappedProject(t *testing.T) {
	s, _ := newTestService(t, `{"data":{"project":{"_id":"p8","title":"Wrapped"}}}`)

	p, err := s.UploadPDF(context.Background(), "brief.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "p8", p.ID)
	assert.Equal(t, "Wrapped", p.Title)
}
