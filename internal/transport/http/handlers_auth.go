package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"rosterd/internal/auth/models"
	dErrors "rosterd/pkg/domain-errors"
	"rosterd/pkg/platform/httputil"
	"rosterd/pkg/requestcontext"
)

// AuthService is the session lifecycle consumed by the transport.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// AuthHandler exposes login, refresh, and logout. Credentials travel as
// HttpOnly cookies; the JSON bodies only carry non-secret session metadata.
type AuthHandler struct {
	auth       AuthService
	cookies    httputil.CookieWriter
	refreshTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(auth AuthService, cookies httputil.CookieWriter, refreshTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		cookies:    cookies,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Register mounts the auth routes on the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/logout", h.handleLogout)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.cookies.SetAccessCookie(w, result.AccessToken, time.Duration(result.ExpiresIn)*time.Second)
	h.cookies.SetRefreshCookie(w, result.RefreshToken, h.refreshTTL)
	httputil.WriteJSON(w, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// Cookie first; a JSON body field serves non-browser clients.
	token := httputil.RefreshToken(r)
	if token == "" && r.Body != nil {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.RefreshToken
		}
	}

	result, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnauthorized) {
			// A dead refresh credential is useless to the browser too.
			h.cookies.ClearCredentialCookies(w)
		}
		httputil.WriteError(w, err)
		return
	}

	h.cookies.SetAccessCookie(w, result.AccessToken, time.Duration(result.ExpiresIn)*time.Second)
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), httputil.RefreshToken(r)); err != nil {
		// Logout is specified to always succeed; log and fall through.
		h.logger.WarnContext(r.Context(), "logout error ignored",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	h.cookies.ClearCredentialCookies(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
