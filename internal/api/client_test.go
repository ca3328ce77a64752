package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func TestDo_UnwrapsEnvelopeAndSendsBearer(t *testing.T) {
	var gotAuth, gotReqID, gotQuery, gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"title": "Alpha"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithTokenSource(staticToken("tok-1")))

	var out struct {
		Title string `json:"title"`
	}
	err := c.Do(context.Background(), http.MethodPost, "/projects", url.Values{"page": {"2"}}, map[string]string{"title": "Alpha"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Alpha", out.Title)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Alpha", gotBody["title"])
}

func TestDo_AnonymousWhenNoToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"data":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenSource(staticToken("")))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil, &struct{}{}))
	assert.Empty(t, gotAuth)
}

func TestDo_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Title is required"}`, "Title is required"},
		{"error field", http.StatusNotFound, `{"error":"project not found","code":"NOT_FOUND"}`, "project not found"},
		{"no body", http.StatusInternalServerError, ``, "500 Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Do(context.Background(), http.MethodGet, "/projects/1", nil, nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantMsg, Message(err))
		})
	}
}

func TestDo_MalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"title":"not enveloped"}`)
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient(srv.URL).Do(context.Background(), http.MethodGet, "/projects/1", nil, nil, &out)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	err := NewClient(base).Do(context.Background(), http.MethodGet, "/projects", nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, Message(err), "Network error")
}

func TestDo_NoRetryOnFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_ = NewClient(srv.URL).Do(context.Background(), http.MethodGet, "/projects", nil, nil, nil)
	assert.Equal(t, 1, calls)
}

func TestUpload_SendsMultipart(t *testing.T) {
	var field, filename, content string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		f, hdr, err := r.FormFile("pdf")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		field, filename, content = "pdf", hdr.Filename, string(b)
		_, _ = io.WriteString(w, `{"data":{"_id":"p9"}}`)
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"_id"`
	}
	err := NewClient(srv.URL).Upload(context.Background(), "/projects/upload", "pdf", "brief.pdf", strings.NewReader("%PDF-1.4"), &out)
	require.NoError(t, err)
	assert.Equal(t, "p9", out.ID)
	assert.Equal(t, "pdf", field)
	assert.Equal(t, "brief.pdf", filename)
	assert.Equal(t, "%PDF-1.4", content)
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&APIError{Status: http.StatusUnauthorized}))
	assert.False(t, IsUnauthorized(&APIError{Status: http.StatusForbidden}))
	assert.False(t, IsUnauthorized(errors.New("boom")))
}
