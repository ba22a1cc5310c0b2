package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"rosterd/internal/auth/models"
	refreshtoken "rosterd/internal/auth/store/refresh-token"
	jwttoken "rosterd/internal/jwt_token"
	"rosterd/internal/platform/config"
	dErrors "rosterd/pkg/domain-errors"
	"rosterd/pkg/requestcontext"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

// recordingStore wraps the in-memory store to observe writes.
type recordingStore struct {
	*refreshtoken.InMemoryStore
	puts int
}

func (r *recordingStore) Put(ctx context.Context, record *models.RefreshTokenRecord) error {
	r.puts++
	return r.InMemoryStore.Put(ctx, record)
}

type ServiceSuite struct {
	suite.Suite
	tokens  *jwttoken.Service
	store   *recordingStore
	service *Service
	now     time.Time
	ctx     context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.tokens = jwttoken.New("test-signing-key", "rosterd", testAccessTTL)
	s.store = &recordingStore{InMemoryStore: refreshtoken.NewInMemoryStore()}
	s.service = New(
		config.Operator{Username: "admin", Password: "secret"},
		s.tokens,
		s.store,
		testRefreshTTL,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TestLoginSuccess() {
	result, err := s.service.Login(s.ctx, "admin", "secret")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "admin", result.Username)
	assert.Equal(s.T(), int64(900), result.ExpiresIn)
	assert.NotEmpty(s.T(), result.AccessToken)
	assert.NotEmpty(s.T(), result.RefreshToken)

	// Access credential verifies until, but not after, its embedded expiry.
	subject, err := s.tokens.Verify(result.AccessToken, s.now.Add(testAccessTTL-time.Second))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "admin", subject)

	_, err = s.tokens.Verify(result.AccessToken, s.now.Add(testAccessTTL+time.Second))
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))

	// Exactly one refresh record with the configured absolute expiry.
	record, err := s.store.Get(s.ctx, result.RefreshToken)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "admin", record.Subject)
	assert.True(s.T(), record.ExpiresAt.Equal(s.now.Add(testRefreshTTL)))
	assert.Equal(s.T(), 1, s.store.puts)
}

func (s *ServiceSuite) TestLoginInvalidCredentials() {
	cases := []struct{ username, password string }{
		{"admin", "wrong"},
		{"wrong", "secret"},
		{"wrong", "wrong"},
		{"", ""},
	}
	for _, tc := range cases {
		result, err := s.service.Login(s.ctx, tc.username, tc.password)
		assert.Nil(s.T(), result)
		require.Error(s.T(), err)
		assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))
		// The message never reveals which field was wrong.
		assert.Equal(s.T(), "invalid credentials", err.Error())
	}
	// No refresh record was created for any failed attempt.
	assert.Equal(s.T(), 0, s.store.puts)
}

func (s *ServiceSuite) TestLoginRecordsDevice() {
	ctx := requestcontext.WithUserAgent(s.ctx,
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	result, err := s.service.Login(ctx, "admin", "secret")
	require.NoError(s.T(), err)

	record, err := s.store.Get(ctx, result.RefreshToken)
	require.NoError(s.T(), err)
	assert.Contains(s.T(), record.Device, "Chrome")
	assert.Contains(s.T(), record.Device, "on Linux")
}

func (s *ServiceSuite) TestLoginBcryptMode() {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(s.T(), err)

	svc := New(
		config.Operator{Username: "admin", PasswordHash: string(hash)},
		s.tokens, s.store, testRefreshTTL, slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	_, err = svc.Login(s.ctx, "admin", "secret")
	assert.NoError(s.T(), err)

	_, err = svc.Login(s.ctx, "admin", "wrong")
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginUnconfiguredOperatorAlwaysFails() {
	svc := New(
		config.Operator{Username: "admin"},
		s.tokens, s.store, testRefreshTTL, slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	// An empty configured password must not match an empty presented one.
	_, err := svc.Login(s.ctx, "admin", "")
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestRefreshSuccessKeepsTokenUnrotated() {
	login, err := s.service.Login(s.ctx, "admin", "secret")
	require.NoError(s.T(), err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(10*time.Minute))
	result, err := s.service.Refresh(later, login.RefreshToken)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(900), result.ExpiresIn)

	// New access credential is bound to the record's subject and expires at
	// refresh-time + access TTL.
	subject, err := s.tokens.Verify(result.AccessToken, s.now.Add(10*time.Minute+testAccessTTL-time.Second))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "admin", subject)

	// The refresh credential is unchanged and still valid: using it again works.
	record, err := s.store.Get(s.ctx, login.RefreshToken)
	require.NoError(s.T(), err)
	assert.True(s.T(), record.ExpiresAt.Equal(s.now.Add(testRefreshTTL)))

	_, err = s.service.Refresh(later, login.RefreshToken)
	assert.NoError(s.T(), err)
}

func (s *ServiceSuite) TestRefreshMissingToken() {
	result, err := s.service.Refresh(s.ctx, "")
	assert.Nil(s.T(), result)
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(s.T(), err.Error(), "required")
}

func (s *ServiceSuite) TestRefreshUnknownToken() {
	result, err := s.service.Refresh(s.ctx, "rt_never_issued")
	assert.Nil(s.T(), result)
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(s.T(), err.Error(), "invalid refresh token")
}

func (s *ServiceSuite) TestRefreshExpiredTokenEvictsRecord() {
	login, err := s.service.Login(s.ctx, "admin", "secret")
	require.NoError(s.T(), err)

	afterExpiry := requestcontext.WithTime(context.Background(), s.now.Add(testRefreshTTL+time.Second))

	// First attempt reports expired and removes the record.
	_, err = s.service.Refresh(afterExpiry, login.RefreshToken)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(s.T(), err.Error(), "expired")

	// The identical second attempt now reports invalid.
	_, err = s.service.Refresh(afterExpiry, login.RefreshToken)
	require.Error(s.T(), err)
	assert.Contains(s.T(), err.Error(), "invalid refresh token")
}

func (s *ServiceSuite) TestLogoutIsIdempotent() {
	login, err := s.service.Login(s.ctx, "admin", "secret")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.service.Logout(s.ctx, login.RefreshToken))
	require.NoError(s.T(), s.service.Logout(s.ctx, login.RefreshToken))
	require.NoError(s.T(), s.service.Logout(s.ctx, "rt_unknown"))
	require.NoError(s.T(), s.service.Logout(s.ctx, ""))

	// The refresh credential no longer works after logout.
	_, err = s.service.Refresh(s.ctx, login.RefreshToken)
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func TestNewRefreshToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := NewRefreshToken()
		require.NoError(t, err)
		assert.Greater(t, len(token), 50, "40 bytes of entropy base64-encoded plus prefix")
		assert.Contains(t, token, "rt_")
		if _, dup := seen[token]; dup {
			t.Fatal("duplicate refresh token generated")
		}
		seen[token] = struct{}{}
	}
}
