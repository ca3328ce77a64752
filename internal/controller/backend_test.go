package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/logging"
	"github.com/tgienger/taskdeck/internal/models"
	"github.com/tgienger/taskdeck/internal/projects"
)

type request struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeBackend is an in-memory project store behind the real REST routes
type fakeBackend struct {
	t   *testing.T
	mux *http.ServeMux

	mu       sync.Mutex
	projects map[string]*models.Project
	requests []request
	nextID   int
	user     models.User

	// hook, when set, runs before a request is handled
	hook func(r *http.Request)
}

func newFakeBackend(t *testing.T, seed ...models.Project) (*fakeBackend, *projects.Service) {
	t.Helper()
	fb := &fakeBackend{
		t:        t,
		mux:      http.NewServeMux(),
		projects: map[string]*models.Project{},
		user:     models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"},
	}
	for i := range seed {
		p := seed[i]
		fb.projects[p.ID] = &p
	}
	fb.routes()

	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, api.WithLogger(logging.Discard()))
	return fb, projects.NewService(client)
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := request{Method: r.Method, Path: r.URL.Path}
	if r.Header.Get("Content-Type") == "application/json" {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &req.Body)
		r.Body = io.NopCloser(bytes.NewReader(b))
	}
	fb.mu.Lock()
	fb.requests = append(fb.requests, req)
	hook := fb.hook
	fb.mu.Unlock()

	if hook != nil {
		hook(r)
	}
	fb.mux.ServeHTTP(w, r)
}

// count returns how many requests matched method and path
func (fb *fakeBackend) count(method, path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, r := range fb.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (fb *fakeBackend) total() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.requests)
}

func (fb *fakeBackend) writes() []request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var out []request
	for _, r := range fb.requests {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

func (fb *fakeBackend) setHook(h func(r *http.Request)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.hook = h
}

func data(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func fail(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

func decode(r *http.Request, v any) {
	_ = json.NewDecoder(r.Body).Decode(v)
}

func (fb *fakeBackend) routes() {
	fb.mux.HandleFunc("GET /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		data(w, map[string]any{"user": fb.user})
	})

	fb.mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 10
		}
		ids := make([]string, 0, len(fb.projects))
		for id := range fb.projects {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		list := []models.Project{}
		for i := (page - 1) * limit; i < len(ids) && i < page*limit; i++ {
			list = append(list, *fb.projects[ids[i]])
		}
		pages := (len(ids) + limit - 1) / limit
		data(w, map[string]any{
			"projects":   list,
			"pagination": models.Pagination{Page: page, Limit: limit, Total: len(ids), Pages: pages},
		})
	})

	fb.mux.HandleFunc("POST /projects", func(w http.ResponseWriter, r *http.Request) {
		var in projects.CreateProjectRequest
		decode(r, &in)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.nextID++
		p := &models.Project{ID: fmt.Sprintf("new%d", fb.nextID), Title: in.Title, Description: in.Description, Status: in.Status}
		fb.projects[p.ID] = p
		data(w, p)
	})

	fb.mux.HandleFunc("POST /projects/upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile(projects.UploadField)
		if err != nil {
			fail(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		f.Close()
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.nextID++
		p := &models.Project{ID: fmt.Sprintf("pdf%d", fb.nextID), Title: hdr.Filename, Status: models.ProjectPending}
		fb.projects[p.ID] = p
		data(w, map[string]any{"project": p})
	})

	fb.mux.HandleFunc("GET /projects/{id}", fb.withProject(func(w http.ResponseWriter, r *http.Request, p *models.Project) {
		data(w, p)
	}))

	fb.mux.HandleFunc("PUT /projects/{id}", fb.withProject(func(w http.ResponseWriter, r *http.Request, p *models.Project) {
		var in projects.UpdateProjectRequest
		decode(r, &in)
		if in.Title != nil {
			p.Title = *in.Title
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.Status != nil {
			p.Status = *in.Status
		}
		p.UpdatedAt = time.Now()
		data(w, p)
	}))

	fb.mux.HandleFunc("DELETE /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if _, ok := fb.projects[r.PathValue("id")]; !ok {
			fail(w, http.StatusNotFound, "Project not found")
			return
		}
		delete(fb.projects, r.PathValue("id"))
		data(w, map[string]string{"message": "Project deleted"})
	})

	fb.mux.HandleFunc("POST /projects/{id}/mainTasks", fb.withProject(func(w http.ResponseWriter, r *http.Request, p *models.Project) {
		var in projects.MainTaskInput
		decode(r, &in)
		p.MainTasks = append(p.MainTasks, models.MainTask{
			Name: in.Name, Description: in.Description, Status: in.Status, Priority: in.Priority, DueDate: in.DueDate,
		})
		data(w, p)
	}))

	fb.mux.HandleFunc("PUT /projects/{id}/mainTasks/{i}", fb.withTask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i int) {
		var in projects.MainTaskPatch
		decode(r, &in)
		t := &p.MainTasks[i]
		if in.Name != nil {
			t.Name = *in.Name
		}
		if in.Status != nil {
			t.Status = *in.Status
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
		}
		data(w, t)
	}))

	fb.mux.HandleFunc("DELETE /projects/{id}/mainTasks/{i}", fb.withTask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i int) {
		p.MainTasks = append(p.MainTasks[:i], p.MainTasks[i+1:]...)
		data(w, p)
	}))

	fb.mux.HandleFunc("POST /projects/{id}/mainTasks/{i}/subtasks", fb.withTask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i int) {
		var in projects.SubtaskInput
		decode(r, &in)
		p.MainTasks[i].Subtasks = append(p.MainTasks[i].Subtasks, models.Subtask{Name: in.Name, Status: in.Status, Priority: in.Priority})
		data(w, p.MainTasks[i])
	}))

	fb.mux.HandleFunc("PUT /projects/{id}/mainTasks/{i}/subtasks/{j}", fb.withSubtask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i, j int) {
		var in projects.SubtaskPatch
		decode(r, &in)
		s := &p.MainTasks[i].Subtasks[j]
		if in.Name != nil {
			s.Name = *in.Name
		}
		if in.Status != nil {
			s.Status = *in.Status
		}
		data(w, s)
	}))

	fb.mux.HandleFunc("DELETE /projects/{id}/mainTasks/{i}/subtasks/{j}", fb.withSubtask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i, j int) {
		subs := p.MainTasks[i].Subtasks
		p.MainTasks[i].Subtasks = append(subs[:j], subs[j+1:]...)
		data(w, p.MainTasks[i])
	}))

	fb.mux.HandleFunc("GET /projects/{id}/mainTasks/{i}/comments", fb.withTask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i int) {
		comments := p.MainTasks[i].Comments
		if comments == nil {
			comments = []models.Comment{}
		}
		data(w, comments)
	}))

	fb.mux.HandleFunc("POST /projects/{id}/mainTasks/{i}/comments", fb.withTask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i int) {
		var in projects.CommentInput
		decode(r, &in)
		c := models.Comment{ID: fmt.Sprintf("c%d", len(p.MainTasks[i].Comments)+1), Author: "Ada", Text: in.Text}
		p.MainTasks[i].Comments = append(p.MainTasks[i].Comments, c)
		data(w, c)
	}))

	fb.mux.HandleFunc("POST /projects/{id}/mainTasks/{i}/subtasks/{j}/comments", fb.withSubtask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i, j int) {
		var in projects.CommentInput
		decode(r, &in)
		s := &p.MainTasks[i].Subtasks[j]
		c := models.Comment{ID: fmt.Sprintf("c%d", len(s.Comments)+1), Author: "Ada", Text: in.Text}
		s.Comments = append(s.Comments, c)
		data(w, c)
	}))
}

func (fb *fakeBackend) withProject(h func(http.ResponseWriter, *http.Request, *models.Project)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		p, ok := fb.projects[r.PathValue("id")]
		if !ok {
			fail(w, http.StatusNotFound, "Project not found")
			return
		}
		h(w, r, p)
	}
}

func (fb *fakeBackend) withTask(h func(http.ResponseWriter, *http.Request, *models.Project, int)) http.HandlerFunc {
	return fb.withProject(func(w http.ResponseWriter, r *http.Request, p *models.Project) {
		i, err := strconv.Atoi(r.PathValue("i"))
		if err != nil || i < 0 || i >= len(p.MainTasks) {
			fail(w, http.StatusNotFound, "Main task not found")
			return
		}
		h(w, r, p, i)
	})
}

func (fb *fakeBackend) withSubtask(h func(http.ResponseWriter, *http.Request, *models.Project, int, int)) http.HandlerFunc {
	return fb.withTask(func(w http.ResponseWriter, r *http.Request, p *models.Project, i int) {
		j, err := strconv.Atoi(r.PathValue("j"))
		if err != nil || j < 0 || j >= len(p.MainTasks[i].Subtasks) {
			fail(w, http.StatusNotFound, "Subtask not found")
			return
		}
		h(w, r, p, i, j)
	})
}

type auditRecord struct {
	ProjectID, Action, Detail string
}

type memAuditor struct {
	mu      sync.Mutex
	entries []auditRecord
}

func (a *memAuditor) Audit(projectID, action, detail string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditRecord{projectID, action, detail})
	return nil
}

func (a *memAuditor) all() []auditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]auditRecord(nil), a.entries...)
}
