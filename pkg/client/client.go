// Package client implements the browser-equivalent session lifecycle for a
// rosterd server: cookie-backed credentials, a single shared refresh on 401,
// and proactive local logout when the access credential is about to expire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnauthorized is returned when the server rejects the session and a
// refresh could not recover it. The session is locally logged out when this
// is returned.
var ErrUnauthorized = errors.New("session unauthorized")

// expiryLead is how far before the announced access-token expiry the session
// flips itself to logged out. Keeps the client from racing the server clock.
const expiryLead = 2 * time.Second

// Member is one directory row, column name to cell value.
type Member map[string]string

// Option configures a Session at construction.
type Option func(*Session)

// WithHTTPClient replaces the transport. A cookie jar is attached if the
// client has none; the server delivers credentials as HttpOnly cookies.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.httpClient = hc }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithLogoutCallback registers a hook invoked whenever the session
// transitions to logged out on its own (expiry or failed refresh). Not
// invoked for explicit Logout calls.
func WithLogoutCallback(fn func()) Option {
	return func(s *Session) { s.onLogout = fn }
}

// Session is a client-side credential lifecycle manager. Safe for concurrent
// use; concurrent 401 recoveries collapse into one refresh request.
type Session struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	onLogout   func()
	group      singleflight.Group

	mu            sync.Mutex
	authenticated bool
	expiryTimer   *time.Timer
	members       []Member
}

// New builds a Session against baseURL (no trailing slash required).
func New(baseURL string, opts ...Option) (*Session, error) {
	s := &Session{
		baseURL: baseURL,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if s.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("build cookie jar: %w", err)
		}
		s.httpClient.Jar = jar
	}
	return s, nil
}

type sessionResponse struct {
	User      string `json:"user"`
	ExpiresIn int64  `json:"expires_in"`
}

// Login authenticates and arms the expiry timer from the server-announced
// access-token lifetime.
func (s *Session) Login(ctx context.Context, username, password string) error {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encode login request: %w", err)
	}

	resp, err := s.post(ctx, "/auth/login", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", resp.Status)
	}

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	s.mu.Lock()
	s.authenticated = true
	s.mu.Unlock()
	s.scheduleExpiry(time.Duration(body.ExpiresIn) * time.Second)
	return nil
}

// AuthorizedRequest performs an authenticated request against the server.
// On a 401 it runs exactly one refresh and retries once; a second 401 logs
// the session out locally and returns ErrUnauthorized. The caller owns the
// returned body.
func (s *Session) AuthorizedRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	drain(resp)
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	resp, err = s.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		s.becomeLoggedOut()
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// Members fetches the directory, caching the last successful result until
// the session expires or logs out.
func (s *Session) Members(ctx context.Context) ([]Member, error) {
	s.mu.Lock()
	if s.members != nil {
		cached := s.members
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	resp, err := s.AuthorizedRequest(ctx, http.MethodGet, "/data", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory request failed: %s", resp.Status)
	}

	var members []Member
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}

	s.mu.Lock()
	s.members = members
	s.mu.Unlock()
	return members, nil
}

// Logout ends the session. Local state is cleared first; the server-side
// delete is best effort and a network failure does not fail the logout.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
		s.expiryTimer = nil
	}
	s.authenticated = false
	s.members = nil
	s.mu.Unlock()

	resp, err := s.post(ctx, "/auth/logout", nil)
	if err != nil {
		s.logger.Warn("server-side logout failed", "error", err)
		return nil
	}
	drain(resp)
	return nil
}

// Authenticated reports whether the session currently holds credentials it
// believes are valid.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// refresh collapses concurrent recoveries into one POST /auth/refresh. On
// failure the session is logged out locally.
func (s *Session) refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		resp, err := s.post(ctx, "/auth/refresh", nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			s.becomeLoggedOut()
			return nil, ErrUnauthorized
		}

		var body sessionResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode refresh response: %w", err)
		}
		s.scheduleExpiry(time.Duration(body.ExpiresIn) * time.Second)
		return nil, nil
	})
	return err
}

// scheduleExpiry arms the one-shot expiry timer, cancelling any previous one
// so at most a single timer is ever pending.
func (s *Session) scheduleExpiry(expiresIn time.Duration) {
	delay := expiresIn - expiryLead
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
	}
	s.expiryTimer = time.AfterFunc(delay, s.becomeLoggedOut)
}

// becomeLoggedOut flips the session to logged out, drops the cached
// directory, and fires the registered callback. No network traffic.
func (s *Session) becomeLoggedOut() {
	s.mu.Lock()
	wasAuthenticated := s.authenticated
	s.authenticated = false
	s.members = nil
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
		s.expiryTimer = nil
	}
	cb := s.onLogout
	s.mu.Unlock()

	if wasAuthenticated && cb != nil {
		cb()
	}
}

func (s *Session) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	return s.do(ctx, http.MethodPost, path, body)
}

func (s *Session) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
