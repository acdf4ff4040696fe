package domain

import "time"

// TokenPair is what authentication endpoints return: a short-lived signed
// access token and a rotatable refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access token lifetime, seconds
}

// RefreshToken models a stored refresh token row. One row per issuance;
// rotation blacklists the old row and creates a new one. Rows are never
// physically deleted while valid (audit trail) and only reaped by expiry.
type RefreshToken struct {
	ID          string
	UserID      string
	TokenHash   string // SHA-256 fingerprint of the signed token
	ExpiresAt   time.Time
	Blacklisted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SingleUseKind discriminates the server-side single-use token rows.
type SingleUseKind string

const (
	SingleUseReset  SingleUseKind = "reset"
	SingleUseVerify SingleUseKind = "verify"
)

// SingleUseToken models a password-reset or email-verification token row.
// These are high-entropy random strings persisted server-side (not signed),
// consumed at most once.
type SingleUseToken struct {
	ID        string
	UserID    string
	Kind      SingleUseKind
	TokenHash string // SHA-256 fingerprint of the opaque token
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// LoginResult is the outcome of a login or MFA-completion flow.
type LoginResult struct {
	User   PublicUser `json:"user"`
	Tokens TokenPair  `json:"tokens"`
}

// MFAChallenge is returned when credentials were correct but MFA completion
// is still required. TempToken is a short-lived access-kind token scoped to
// finishing the challenge.
type MFAChallenge struct {
	RequireMFA bool   `json:"require_mfa"` // always true
	TempToken  string `json:"temp_token"`
}
