package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTimeout = 15 * time.Second

// ErrNotAuthenticated is returned when no session token is available or the
// stored token has expired.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// ErrInvalidCredentials is returned when the backend rejects a login attempt.
var ErrInvalidCredentials = errors.New("session: invalid credentials")

// User identifies the authenticated account.
type User struct {
	Username string `json:"username"`
	UserID   int    `json:"user_id"`
}

// State is what a TokenStore persists between runs.
type State struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// TokenStore persists session state. Implementations must tolerate Load
// before any Save and treat a missing state as empty, not an error.
type TokenStore interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// Config configures a Session client.
type Config struct {
	// BaseURL is the analytics backend root, e.g. http://localhost:8000.
	BaseURL string
	// Store persists tokens across restarts. Defaults to an in-memory store.
	Store TokenStore
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Session manages authentication against the analytics backend: login, token
// storage, expiry checks, and current-user lookups.
type Session struct {
	mu      sync.RWMutex
	baseURL string
	store   TokenStore
	client  *http.Client
	state   State
}

// New builds a Session, loading any persisted state from the store.
func New(cfg Config) (*Session, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("session: base URL is required")
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	s := &Session{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		store:   store,
		client:  client,
	}
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("session: load state: %w", err)
	}
	s.state = state
	return s, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
	UserID      int    `json:"user_id"`
}

// Login authenticates with the backend and persists the returned token.
func (s *Session) Login(ctx context.Context, username, password string) (User, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return User{}, fmt.Errorf("session: encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return User{}, fmt.Errorf("session: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("session: login: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return User{}, ErrInvalidCredentials
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return User{}, fmt.Errorf("session: login failed %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload loginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return User{}, fmt.Errorf("session: decode login: %w", err)
	}

	state := State{
		Token: payload.AccessToken,
		User:  User{Username: payload.Username, UserID: payload.UserID},
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if err := s.store.Save(state); err != nil {
		return state.User, fmt.Errorf("session: persist state: %w", err)
	}
	return state.User, nil
}

// Me fetches the current user from the backend using the stored token.
func (s *Session) Me(ctx context.Context) (User, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return User{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/auth/me", nil)
	if err != nil {
		return User{}, fmt.Errorf("session: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := s.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("session: me: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		s.Logout()
		return User{}, ErrNotAuthenticated
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return User{}, fmt.Errorf("session: me failed %d", res.StatusCode)
	}

	var user User
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("session: decode user: %w", err)
	}
	return user, nil
}

// Token returns the stored bearer token. Expired tokens are cleared and
// reported as ErrNotAuthenticated so callers can prompt a fresh login.
// The signature matches metrics.TokenSource.
func (s *Session) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	token := s.state.Token
	s.mu.RUnlock()

	if token == "" {
		return "", ErrNotAuthenticated
	}
	if expired(token) {
		s.Logout()
		return "", ErrNotAuthenticated
	}
	return token, nil
}

// User returns the locally stored user identity without a network call.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User, s.state.Token != ""
}

// Authenticated reports whether a usable token is stored.
func (s *Session) Authenticated() bool {
	_, err := s.Token(context.Background())
	return err == nil
}

// Logout discards the stored token and user.
func (s *Session) Logout() {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
	_ = s.store.Clear()
}

// expired inspects the token's exp claim without verifying the signature.
// The backend is the verifier; the client only needs to know when to stop
// sending a token that will be rejected anyway.
func expired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Not a JWT we can read. Let the backend decide.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
