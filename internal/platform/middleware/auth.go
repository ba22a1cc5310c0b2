package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"rosterd/pkg/platform/httputil"
	"rosterd/pkg/requestcontext"
)

// TokenVerifier validates an access credential and returns its subject.
// Implemented by internal/jwt_token.Service.
type TokenVerifier interface {
	Verify(token string, now time.Time) (string, error)
}

// RequireAuth guards protected routes. It accepts the access credential from
// the cookie or an Authorization: Bearer header, verifies it against the
// request-scoped clock, and injects the subject into the context. Missing,
// tampered, and expired credentials all answer 401; the distinction stays in
// the logs.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := httputil.AccessToken(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing credential",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				writeUnauthorized(w, "missing access credential")
				return
			}

			subject, err := verifier.Verify(token, requestcontext.Now(ctx))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid credential",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				writeUnauthorized(w, "invalid or expired access credential")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithSubject(ctx, subject)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
