// Package jwttoken issues and verifies the signed access credentials.
// Tokens are self-contained: validity depends only on the signature and the
// embedded expiry, never on server-side state, so an issued token stays
// valid until it expires even after logout.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "rosterd/pkg/domain-errors"
)

// Service handles access token creation and validation with a fixed
// symmetric signing key.
type Service struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
}

func New(signingKey string, issuer string, accessTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
	}
}

// AccessTTL reports the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateAccessToken mints a signed token for subject, valid from now for
// the configured TTL.
func (s *Service) GenerateAccessToken(subject string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	return signed, nil
}

// Verify validates tokenString against the signing key and the supplied
// clock reading, returning the subject. Expired and tampered tokens both
// come back as CodeUnauthorized; the wrapped cause distinguishes them for
// logging.
func (s *Service) Verify(tokenString string, now time.Time) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return s.signingKey, nil
		},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "access token expired")
		}
		return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid access token")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid access token claims")
	}
	return claims.Subject, nil
}
