// Package service implements the session lifecycle: login issues a paired
// access/refresh credential set, refresh exchanges a live refresh credential
// for a new access credential, logout revokes the refresh record. Access
// credentials are stateless and cannot be revoked early; their residual
// validity after logout is bounded by the access TTL.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rosterd/internal/auth/models"
	jwttoken "rosterd/internal/jwt_token"
	"rosterd/internal/platform/config"
	"rosterd/internal/platform/metrics"
	dErrors "rosterd/pkg/domain-errors"
	"rosterd/pkg/platform/sentinel"
	"rosterd/pkg/requestcontext"
)

// RefreshTokenStore is the server-side registry for refresh credentials.
// Implementations live in internal/auth/store/refresh-token.
type RefreshTokenStore interface {
	Put(ctx context.Context, record *models.RefreshTokenRecord) error
	Get(ctx context.Context, token string) (*models.RefreshTokenRecord, error)
	Delete(ctx context.Context, token string) error
	DeleteExpiredAt(ctx context.Context, now time.Time) (int, error)
}

// Service orchestrates login, refresh, and logout against the single
// configured operator identity.
type Service struct {
	operator   config.Operator
	tokens     *jwttoken.Service
	store      RefreshTokenStore
	refreshTTL time.Duration
	logger     *slog.Logger
}

func New(operator config.Operator, tokens *jwttoken.Service, store RefreshTokenStore, refreshTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		operator:   operator,
		tokens:     tokens,
		store:      store,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Login validates the presented pair against the configured operator and, on
// success, issues one access credential and one refresh record. The error
// never reveals which of the two fields was wrong.
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	now := requestcontext.Now(ctx)

	if !s.credentialsMatch(username, password) {
		metrics.IncLogin(metrics.OutcomeInvalid)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	accessToken, err := s.tokens.GenerateAccessToken(s.operator.Username, now)
	if err != nil {
		metrics.IncLogin(metrics.OutcomeError)
		return nil, err
	}

	refreshToken, err := NewRefreshToken()
	if err != nil {
		metrics.IncLogin(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint refresh token")
	}

	record := &models.RefreshTokenRecord{
		Token:     refreshToken,
		Subject:   s.operator.Username,
		Device:    deviceFromContext(ctx),
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.store.Put(ctx, record); err != nil {
		metrics.IncLogin(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist refresh token")
	}

	metrics.IncLogin(metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "operator logged in",
		"subject", record.Subject,
		"device", record.Device,
		"refresh_expires_at", record.ExpiresAt,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &models.LoginResult{
		Username:     record.Subject,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a live refresh credential for a new access credential.
// The refresh credential itself is kept identical rather than rotated; a
// stolen one therefore stays usable for its full lifetime, which is the
// accepted trade-off for a simpler client.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResult, error) {
	now := requestcontext.Now(ctx)

	if refreshToken == "" {
		metrics.IncRefresh(metrics.OutcomeInvalid)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token required")
	}

	record, err := s.store.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			metrics.IncRefresh(metrics.OutcomeInvalid)
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid refresh token")
		}
		metrics.IncRefresh(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load refresh token")
	}

	if record.ExpiredAt(now) {
		// Lazy eviction: the expired record is removed here, so a repeat of
		// the same call reports invalid rather than expired.
		if err := s.store.Delete(ctx, refreshToken); err != nil {
			s.logger.WarnContext(ctx, "failed to evict expired refresh token",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		metrics.IncRefresh(metrics.OutcomeExpired)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token expired")
	}

	accessToken, err := s.tokens.GenerateAccessToken(record.Subject, now)
	if err != nil {
		metrics.IncRefresh(metrics.OutcomeError)
		return nil, err
	}

	metrics.IncRefresh(metrics.OutcomeSuccess)
	return &models.RefreshResult{
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
		AccessToken: accessToken,
	}, nil
}

// Logout deletes the refresh record if present. It always succeeds, even for
// unknown or already-deleted tokens, so repeated logouts are harmless.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		if err := s.store.Delete(ctx, refreshToken); err != nil {
			s.logger.WarnContext(ctx, "failed to delete refresh token on logout",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	metrics.IncLogout()
	return nil
}

// credentialsMatch compares both fields in constant time before combining
// the results, so the timing never hints at which field was wrong. When a
// bcrypt hash is configured it takes precedence over the plain password; an
// operator with neither configured can never log in.
func (s *Service) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.operator.Username)) == 1

	passOK := false
	switch {
	case s.operator.PasswordHash != "":
		passOK = bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(password)) == nil
	case s.operator.Password != "":
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(s.operator.Password)) == 1
	}

	return userOK && passOK
}
