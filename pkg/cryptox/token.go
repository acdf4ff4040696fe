package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize32 provides 32 bits of entropy. Only for human-typed codes
	// that are single-use and rate limited (e.g. MFA backup codes).
	TokenSize32 = 4
	// TokenSize256 provides 256 bits of entropy (recommended for
	// password-reset and email-verification tokens).
	TokenSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the given
// byte length, hex encoded. Hex keeps the tokens safe to embed in URLs and
// trivially typable, which matters for codes delivered over email.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token,
// base64url encoded. Stored tokens are always persisted as fingerprints so a
// database leak never exposes usable credentials.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
