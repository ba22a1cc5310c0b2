package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/mssola/useragent"

	"rosterd/pkg/requestcontext"
)

// refreshTokenBytes is the entropy behind each opaque refresh credential.
// 40 random bytes make collisions and guessing equally improbable.
const refreshTokenBytes = 40

// NewRefreshToken mints a high-entropy opaque refresh credential.
func NewRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "rt_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

// deviceFromContext renders the requesting User-Agent as a short
// human-readable device description for the refresh record.
func deviceFromContext(ctx context.Context) string {
	raw := requestcontext.UserAgent(ctx)
	if raw == "" {
		return ""
	}

	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}

	device := name
	if version != "" {
		device += " " + version
	}
	if os := ua.OS(); os != "" {
		device += " on " + os
	}
	return device
}
