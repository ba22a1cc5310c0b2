package models

import "time"

// RefreshTokenRecord is the server-side registry entry for one opaque
// refresh credential. The store owns the record for its lifetime; the client
// holds only the opaque token string.
type RefreshTokenRecord struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	Device    string    `json:"device,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the record's absolute expiry has passed.
func (r *RefreshTokenRecord) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && r.ExpiresAt.Before(now)
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries the issued credentials plus the access TTL the client
// uses for local expiry scheduling. Tokens travel as cookies, never in the
// JSON body.
type LoginResult struct {
	Username  string `json:"user"`
	ExpiresIn int64  `json:"expires_in"`

	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

// RefreshResult carries a newly issued access credential.
type RefreshResult struct {
	ExpiresIn int64 `json:"expires_in"`

	AccessToken string `json:"-"`
}
