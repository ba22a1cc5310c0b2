package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterd/internal/auth/service"
	refreshtoken "rosterd/internal/auth/store/refresh-token"
	"rosterd/internal/directory"
	jwttoken "rosterd/internal/jwt_token"
	"rosterd/internal/platform/config"
	dErrors "rosterd/pkg/domain-errors"
	"rosterd/pkg/platform/httputil"
)

type stubDirectory struct {
	members []directory.Member
	err     error
}

func (s *stubDirectory) Members(_ context.Context) ([]directory.Member, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.members, nil
}

func newTestServer(t *testing.T, dir DirectoryService) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.New("test-signing-key", "rosterd", 15*time.Minute)
	store := refreshtoken.NewInMemoryStore()
	auth := service.New(
		config.Operator{Username: "admin", Password: "secret"},
		tokens, store, 7*24*time.Hour, logger,
	)

	router := NewRouter(RouterConfig{
		Logger:          logger,
		Auth:            auth,
		Directory:       dir,
		Verifier:        tokens,
		Cookies:         httputil.CookieWriter{Secure: false},
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newJarClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func login(t *testing.T, client *http.Client, srv *httptest.Server, username, password string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)
	resp, err := client.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestLoginMissingFields(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{})
	client := newJarClient(t)

	for _, body := range []string{`{}`, `{"username":"admin"}`, `{"password":"secret"}`, `not json`} {
		resp, err := client.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
		resp.Body.Close()
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{})
	client := newJarClient(t)

	resp := login(t, client, srv, "admin", "wrong")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body["error"])
	// The description never says which field was wrong.
	assert.Equal(t, "invalid credentials", body["error_description"])
	assert.Empty(t, resp.Cookies())
}

func TestEndToEndLoginAndData(t *testing.T) {
	dir := &stubDirectory{members: []directory.Member{
		{"Name": "Ada Lovelace", "Status": "active"},
		{"Name": "Grace Hopper", "Status": "expired"},
	}}
	srv := newTestServer(t, dir)

	// Without any credential the protected endpoint rejects.
	anon, err := http.Get(srv.URL + "/data")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, anon.StatusCode)
	anon.Body.Close()

	client := newJarClient(t)
	resp := login(t, client, srv, "admin", "secret")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginBody struct {
		User      string `json:"user"`
		ExpiresIn int64  `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginBody))
	assert.Equal(t, "admin", loginBody.User)
	assert.Equal(t, int64(900), loginBody.ExpiresIn)

	// Both credential cookies are HttpOnly.
	cookies := resp.Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.True(t, c.HttpOnly, "cookie %s must be HttpOnly", c.Name)
	}

	// With the cookie jar the directory comes back.
	dataResp, err := client.Get(srv.URL + "/data")
	require.NoError(t, err)
	defer dataResp.Body.Close()
	require.Equal(t, http.StatusOK, dataResp.StatusCode)

	var members []directory.Member
	require.NoError(t, json.NewDecoder(dataResp.Body).Decode(&members))
	require.Len(t, members, 2)
	assert.Equal(t, "Ada Lovelace", members[0]["Name"])
}

func TestDataWithBearerToken(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{members: []directory.Member{{"Name": "Ada"}}})
	client := newJarClient(t)

	resp := login(t, client, srv, "admin", "secret")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accessToken string
	for _, c := range resp.Cookies() {
		if c.Name == httputil.AccessCookieName {
			accessToken = c.Value
		}
	}
	require.NotEmpty(t, accessToken)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/data", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	dataResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer dataResp.Body.Close()
	assert.Equal(t, http.StatusOK, dataResp.StatusCode)
}

func TestRefreshWithCookie(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{})
	client := newJarClient(t)

	resp := login(t, client, srv, "admin", "secret")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	refreshResp, err := client.Post(srv.URL+"/auth/refresh", "application/json", nil)
	require.NoError(t, err)
	defer refreshResp.Body.Close()
	require.Equal(t, http.StatusOK, refreshResp.StatusCode)

	var body struct {
		ExpiresIn int64 `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(refreshResp.Body).Decode(&body))
	assert.Equal(t, int64(900), body.ExpiresIn)

	// A fresh access cookie was issued.
	var sawAccess bool
	for _, c := range refreshResp.Cookies() {
		if c.Name == httputil.AccessCookieName && c.Value != "" {
			sawAccess = true
		}
	}
	assert.True(t, sawAccess)
}

func TestRefreshBodyFallback(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{})
	client := newJarClient(t)

	resp := login(t, client, srv, "admin", "secret")
	resp.Body.Close()

	var refreshToken string
	for _, c := range resp.Cookies() {
		if c.Name == httputil.RefreshCookieName {
			refreshToken = c.Value
		}
	}
	require.NotEmpty(t, refreshToken)

	// A cookie-less client can still refresh through the body field.
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	refreshResp, err := http.Post(srv.URL+"/auth/refresh", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer refreshResp.Body.Close()
	assert.Equal(t, http.StatusOK, refreshResp.StatusCode)
}

func TestRefreshWithoutToken(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{})

	resp, err := http.Post(srv.URL+"/auth/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Dead credentials are cleared from the browser.
	for _, c := range resp.Cookies() {
		assert.Equal(t, -1, c.MaxAge, "cookie %s should be expired", c.Name)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{})
	client := newJarClient(t)

	resp := login(t, client, srv, "admin", "secret")
	resp.Body.Close()

	for i := 0; i < 2; i++ {
		logoutResp, err := client.Post(srv.URL+"/auth/logout", "application/json", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, logoutResp.StatusCode)
		logoutResp.Body.Close()
	}

	// The refresh credential is gone after logout.
	refreshResp, err := client.Post(srv.URL+"/auth/refresh", "application/json", nil)
	require.NoError(t, err)
	defer refreshResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, refreshResp.StatusCode)
}

func TestDataUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &stubDirectory{
		err: dErrors.Wrap(errors.New("sheet returned 503"), dErrors.CodeUnavailable, "directory upstream unavailable"),
	})
	client := newJarClient(t)

	resp := login(t, client, srv, "admin", "secret")
	resp.Body.Close()

	dataResp, err := client.Get(srv.URL + "/data")
	require.NoError(t, err)
	defer dataResp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, dataResp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(dataResp.Body).Decode(&body))
	assert.Equal(t, "unavailable", body["error"])
	assert.Contains(t, body["error_description"], "directory upstream unavailable")
}
