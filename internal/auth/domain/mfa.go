package domain

import "time"

// MFARecord holds a user's TOTP enrollment. Created unverified at setup;
// verified flips to true only after a correct TOTP challenge. A user owns at
// most one record.
type MFARecord struct {
	UserID    string
	Secret    string // base32 TOTP seed
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFASetupResponse is returned from setup so the caller can render a QR code.
type MFASetupResponse struct {
	Secret     string `json:"secret"`      // base32, for manual entry
	OTPAuthURL string `json:"otpauth_url"` // otpauth:// URI for QR encoding
}
