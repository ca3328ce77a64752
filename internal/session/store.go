package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/tgienger/taskdeck/internal/api"
	"github.com/tgienger/taskdeck/internal/models"
)

// Storage keys. Login writes exactly these three; Logout removes them.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Storage is durable string key/value storage
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Tokens is the pair issued on login
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is the payload of register and login
type AuthResult struct {
	User   models.User `json:"user"`
	Tokens Tokens      `json:"tokens"`
}

// RegisterRequest holds the sign-up form
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileUpdate is a partial profile change; nil fields are left alone
type ProfileUpdate struct {
	Name           *string `json:"name,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

type messageResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
}

type userResponse struct {
	User models.User `json:"user"`
}

// Store holds the current user and tokens, persisted in Storage, and wraps
// the backend's auth endpoints.
type Store struct {
	client  *api.Client
	storage Storage
	logger  *slog.Logger
}

// NewStore creates a session store and registers it as the client's token source
func NewStore(client *api.Client, storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{client: client, storage: storage, logger: logger}
	client.SetTokenSource(s)
	return s
}

// Register creates an account. It does not log the user in; the backend
// sends a verification code first.
func (s *Store) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		return nil, err
	}
	req.Email = email
	if err := ValidatePassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	var res AuthResult
	if err := s.client.Do(ctx, http.MethodPost, "/auth/register", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Login authenticates and persists the access token, refresh token and user.
func (s *Store) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	payload := map[string]string{"email": email, "password": password}
	var res AuthResult
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login", nil, payload, &res); err != nil {
		return nil, err
	}

	userJSON, err := json.Marshal(res.User)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Set(KeyAccessToken, res.Tokens.AccessToken); err != nil {
		return nil, fmt.Errorf("persist access token: %w", err)
	}
	if err := s.storage.Set(KeyRefreshToken, res.Tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	if err := s.storage.Set(KeyUser, string(userJSON)); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}

	s.logger.Info("logged in", "user_id", res.User.ID)
	return &res, nil
}

// VerifyEmail submits the 6-digit code sent to email
func (s *Store) VerifyEmail(ctx context.Context, email, code string) (string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return "", err
	}
	c, err := ValidateCode(code)
	if err != nil {
		return "", err
	}

	payload := map[string]string{"email": email, "verificationCode": c}
	var res messageResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/verify-email", nil, payload, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// ResendVerification asks the backend to send a new code
func (s *Store) ResendVerification(ctx context.Context, email string) (string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return "", err
	}
	var res messageResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/resend-verification", nil, map[string]string{"email": email}, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// ForgotPassword requests a reset link for email
func (s *Store) ForgotPassword(ctx context.Context, email string) (string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return "", err
	}
	var res messageResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/forgot-password", nil, map[string]string{"email": email}, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// ResetPassword sets a new password using the emailed reset token. The
// password policy is checked first; a failing policy sends no request.
func (s *Store) ResetPassword(ctx context.Context, resetToken, password, confirm string) (string, error) {
	resetToken = strings.TrimSpace(resetToken)
	if resetToken == "" {
		return "", ErrResetTokenRequired
	}
	if err := ValidatePassword(password, confirm); err != nil {
		return "", err
	}

	payload := map[string]string{
		"resetToken":      resetToken,
		"password":        password,
		"confirmPassword": confirm,
	}
	var res messageResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/reset-password", nil, payload, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// ChangePassword changes the logged-in user's password
func (s *Store) ChangePassword(ctx context.Context, current, next, confirm string) (string, error) {
	if !s.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	if current == "" {
		return "", ErrPasswordRequired
	}
	if err := ValidatePassword(next, confirm); err != nil {
		return "", err
	}

	payload := map[string]string{
		"currentPassword": current,
		"newPassword":     next,
		"confirmPassword": confirm,
	}
	var res messageResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/change-password", nil, payload, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// Profile fetches the current user from the backend
func (s *Store) Profile(ctx context.Context) (*models.User, error) {
	var res userResponse
	if err := s.client.Do(ctx, http.MethodGet, "/auth/profile", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// UpdateProfile applies a partial profile change and refreshes the stored user
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*models.User, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		upd.Name = &name
	}

	var res userResponse
	if err := s.client.Do(ctx, http.MethodPut, "/auth/profile", nil, upd, &res); err != nil {
		return nil, err
	}

	if s.IsAuthenticated() {
		if userJSON, err := json.Marshal(res.User); err == nil {
			if err := s.storage.Set(KeyUser, string(userJSON)); err != nil {
				s.logger.Warn("failed to persist updated profile", "err", err)
			}
		}
	}
	return &res.User, nil
}

// Logout clears the three session keys. It makes no backend call.
func (s *Store) Logout() error {
	var errs []error
	for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := s.storage.Remove(k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// CurrentUser returns the stored user, or nil when logged out
func (s *Store) CurrentUser() (*models.User, error) {
	raw, err := s.storage.Get(KeyUser)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptUser, err)
	}
	return &u, nil
}

// IsAuthenticated reports whether an access token is stored. It does not
// check expiry; the backend decides whether the token is still good.
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// AccessToken implements api.TokenSource
func (s *Store) AccessToken() string {
	token, err := s.storage.Get(KeyAccessToken)
	if err != nil {
		s.logger.Warn("failed to read access token", "err", err)
		return ""
	}
	return token
}

// RefreshToken returns the stored refresh token
func (s *Store) RefreshToken() string {
	token, err := s.storage.Get(KeyRefreshToken)
	if err != nil {
		return ""
	}
	return token
}

// TokenExpiry decodes the access token's exp claim without verifying the
// signature. For display only.
func (s *Store) TokenExpiry() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
