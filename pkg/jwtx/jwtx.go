// Package jwtx wraps github.com/golang-jwt/jwt/v5 with the claim shape and
// signing-domain separation used by the token service.
//
// Tokens carry a "kind" claim (access, refresh, reset, verify) and each kind
// is verified against a kind-specific secret: refresh tokens use a dedicated
// secret, every other kind shares the access secret. A token presented for
// the wrong kind therefore fails either the signature check (wrong secret
// domain) or the kind check (same domain, different kind) and is never
// interchangeable.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind identifies the purpose a token was minted for.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindReset   Kind = "reset"
	KindVerify  Kind = "verify"
)

// Default token TTLs. Short-lived access tokens limit the blast radius of a
// leak; refresh lifetime is a convenience/security trade-off left to config.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrKindMismatch = errors.New("jwtx: token kind mismatch")
)

// Claims are the token claims shared across the service.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the subject at issuance time.
	Email string `json:"email,omitempty"`

	// Role of the subject at issuance time ("user", "admin", "manager").
	Role string `json:"role,omitempty"`

	// Kind the token was minted for. Mandatory; see package doc.
	Kind Kind `json:"kind"`
}

// NewClaims builds minimally-correct claims for a token of the given kind.
func NewClaims(subject, email, role string, kind Kind, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Email: email,
		Role:  role,
		Kind:  kind,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Codec signs and verifies kind-scoped HS256 tokens.
type Codec struct {
	accessSecret  []byte // signs access, reset and verify kinds
	refreshSecret []byte // signs refresh kind only
	issuer        string
	now           func() time.Time
}

// NewCodec creates a Codec. now may be nil, in which case time.Now is used.
func NewCodec(accessSecret, refreshSecret []byte, issuer string, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		now:           now,
	}
}

// Issuer returns the issuer claims are minted and verified with.
func (c *Codec) Issuer() string { return c.issuer }

func (c *Codec) secretFor(kind Kind) []byte {
	if kind == KindRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

// Sign produces a signed compact JWT for the claims, using the secret domain
// of the claims' kind.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secretFor(claims.Kind))
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify validates signature, expiry, issuer and kind of a token. The
// signature is checked against the secret domain of the EXPECTED kind, so a
// token forged with mismatching kind claims fails verification outright.
func (c *Codec) Verify(raw string, expected Kind) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secretFor(expected), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.Kind != expected {
		return Claims{}, ErrKindMismatch
	}

	return claims, nil
}
