package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/logging"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{data: map[string]string{}}
}

func (m *memStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &rec.body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.respond(w, r)
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeBackend) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeData(w http.ResponseWriter, data any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func newTestStore(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Store, *fakeBackend, *memStorage) {
	t.Helper()
	fb := &fakeBackend{respond: respond}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	storage := newMemStorage()
	client := api.NewClient(srv.URL, api.WithLogger(logging.Discard()))
	return NewStore(client, storage, logging.Discard()), fb, storage
}

func loginResponder(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		writeData(w, map[string]any{
			"user":   map[string]any{"id": "u1", "name": "Ada", "email": "ada@example.com", "role": "user"},
			"tokens": map[string]string{"accessToken": "acc-1", "refreshToken": "ref-1"},
		})
	case "/auth/profile":
		writeData(w, map[string]any{"user": map[string]any{"id": "u1", "name": "Ada L", "email": "ada@example.com"}})
	case "/auth/change-password":
		writeData(w, map[string]string{"message": "Password changed"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestLogin_PersistsExactlyThreeKeys(t *testing.T) {
	s, fb, storage := newTestStore(t, loginResponder)

	res, err := s.Login(context.Background(), " ada@example.com ", "Secret1!x")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)

	assert.Len(t, storage.data, 3)
	assert.Equal(t, "acc-1", storage.data[KeyAccessToken])
	assert.Equal(t, "ref-1", storage.data[KeyRefreshToken])
	assert.Contains(t, storage.data[KeyUser], `"email":"ada@example.com"`)
	assert.Equal(t, "ada@example.com", fb.last().body["email"])

	assert.True(t, s.IsAuthenticated())
	u, err := s.CurrentUser()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ada", u.Name)
}

func TestLogin_FailureStoresNothing(t *testing.T) {
	s, _, storage := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Invalid email or password"}`)
	})

	_, err := s.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", api.Message(err))
	assert.Empty(t, storage.data)
	assert.False(t, s.IsAuthenticated())
}

func TestLogout_RemovesSessionKeys(t *testing.T) {
	s, fb, storage := newTestStore(t, loginResponder)
	_, err := s.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, storage.Set("last_project_id", "p1"))
	calls := fb.count()

	require.NoError(t, s.Logout())

	assert.Equal(t, calls, fb.count(), "logout must not call the backend")
	assert.Equal(t, map[string]string{"last_project_id": "p1"}, storage.data)
	assert.False(t, s.IsAuthenticated())
	u, err := s.CurrentUser()
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestAuthenticatedRequestsCarryBearer(t *testing.T) {
	s, fb, _ := newTestStore(t, loginResponder)
	_, err := s.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = s.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer acc-1", fb.last().auth)
}

func TestRegister_ValidationSendsNoRequest(t *testing.T) {
	s, fb, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{})
	})

	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"missing name", RegisterRequest{Email: "a@b.c", Password: "Abcdef1!", ConfirmPassword: "Abcdef1!"}, ErrNameRequired},
		{"missing email", RegisterRequest{Name: "A", Password: "Abcdef1!", ConfirmPassword: "Abcdef1!"}, ErrEmailRequired},
		{"short", RegisterRequest{Name: "A", Email: "a@b.c", Password: "Ab1!", ConfirmPassword: "Ab1!"}, ErrPasswordTooShort},
		{"mismatch", RegisterRequest{Name: "A", Email: "a@b.c", Password: "Abcdef1!", ConfirmPassword: "Abcdef1?"}, ErrPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, fb.count())
}

func TestRegister_DoesNotLogIn(t *testing.T) {
	s, fb, storage := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"user": map[string]any{"id": "u2", "email": "b@c.d"}})
	})

	res, err := s.Register(context.Background(), RegisterRequest{
		Name: "Bea", Email: "b@c.d", Password: "Abcdef1!", ConfirmPassword: "Abcdef1!",
	})
	require.NoError(t, err)
	assert.Equal(t, "u2", res.User.ID)
	assert.Equal(t, "/auth/register", fb.last().path)
	assert.Empty(t, storage.data)
}

func TestVerifyEmail_NormalizesCode(t *testing.T) {
	s, fb, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{"message": "Email verified"})
	})

	msg, err := s.VerifyEmail(context.Background(), "a@b.c", "12-34 56")
	require.NoError(t, err)
	assert.Equal(t, "Email verified", msg)
	assert.Equal(t, "123456", fb.last().body["verificationCode"])

	_, err = s.VerifyEmail(context.Background(), "a@b.c", "12a45")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, 1, fb.count())
}

func TestResetPassword_PolicyFailureSendsNoRequest(t *testing.T) {
	s, fb, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{"message": "ok"})
	})

	_, err := s.ResetPassword(context.Background(), "tok", "alllowercase1!", "alllowercase1!")
	assert.ErrorIs(t, err, ErrPasswordNoUpper)
	_, err = s.ResetPassword(context.Background(), "", "Abcdef1!", "Abcdef1!")
	assert.ErrorIs(t, err, ErrResetTokenRequired)
	assert.Equal(t, 0, fb.count())

	_, err = s.ResetPassword(context.Background(), "tok", "Abcdef1!", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, "tok", fb.last().body["resetToken"])
}

func TestChangePassword_RequiresLogin(t *testing.T) {
	s, fb, _ := newTestStore(t, loginResponder)

	_, err := s.ChangePassword(context.Background(), "old", "Abcdef1!", "Abcdef1!")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, fb.count())

	_, err = s.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	msg, err := s.ChangePassword(context.Background(), "old", "Abcdef1!", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, "Password changed", msg)
	assert.Equal(t, "Bearer acc-1", fb.last().auth)
}

func TestUpdateProfile_RefreshesStoredUser(t *testing.T) {
	s, fb, storage := newTestStore(t, loginResponder)
	_, err := s.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	name := "Ada L"
	u, err := s.UpdateProfile(context.Background(), ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", u.Name)
	assert.Equal(t, http.MethodPut, fb.last().method)
	assert.Len(t, storage.data, 3)

	stored, err := s.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "Ada L", stored.Name)
}

func TestCurrentUser_Corrupt(t *testing.T) {
	s, _, storage := newTestStore(t, loginResponder)
	require.NoError(t, storage.Set(KeyUser, "{not json"))

	_, err := s.CurrentUser()
	assert.ErrorIs(t, err, ErrCorruptUser)
}

func TestTokenExpiry(t *testing.T) {
	s, _, storage := newTestStore(t, loginResponder)

	_, ok := s.TokenExpiry()
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	require.NoError(t, storage.Set(KeyAccessToken, tok))

	got, ok := s.TokenExpiry()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	require.NoError(t, storage.Set(KeyAccessToken, "opaque"))
	_, ok = s.TokenExpiry()
	assert.False(t, ok)
}
