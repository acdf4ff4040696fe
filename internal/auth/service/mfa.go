package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/store"
	"github.com/halcyonlabs/authd/pkg/cryptox"
	"github.com/jonboulle/clockwork"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	backupCodeCount = 10
	backupCodeBytes = cryptox.TokenSize32 // 8 hex chars, matches what users will type
)

// MFAService manages per-user TOTP enrollment, challenges and backup codes.
// Enrollment is a two-step state machine: BeginSetup stores an unverified
// secret, ConfirmSetup proves possession of the authenticator and only then
// flips mfa_enabled on the user.
type MFAService struct {
	Store  store.Store
	Clock  clockwork.Clock
	Issuer string // account issuer shown in authenticator apps
}

func (s *MFAService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

// BeginSetup generates a fresh TOTP secret for the user and stores it
// unverified. Re-invoking before confirmation overwrites the pending secret;
// invoking after MFA is enabled fails with ErrMFAAlreadyEnabled.
func (s *MFAService) BeginSetup(ctx context.Context, userID string) (domain.MFASetupResponse, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MFASetupResponse{}, ErrNotFound
		}
		return domain.MFASetupResponse{}, err
	}
	if u.MFAEnabled {
		return domain.MFASetupResponse{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: u.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFASetupResponse{}, fmt.Errorf("generate totp key: %w", err)
	}

	now := s.now()
	rec := domain.MFARecord{
		UserID:    userID,
		Secret:    key.Secret(),
		Verified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.MFARecords().UpsertMFARecord(ctx, rec); err != nil {
		return domain.MFASetupResponse{}, err
	}

	return domain.MFASetupResponse{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
	}, nil
}

// ConfirmSetup validates a code against the pending secret, enables MFA and
// issues the user's backup codes. The plaintext codes are returned exactly
// once; only fingerprints are stored.
func (s *MFAService) ConfirmSetup(ctx context.Context, userID, code string) ([]string, error) {
	rec, err := s.Store.MFARecords().GetMFARecord(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMFANotEnabled
		}
		return nil, err
	}
	if rec.Verified {
		return nil, ErrMFAAlreadyEnabled
	}

	if !totp.Validate(code, rec.Secret) {
		return nil, ErrInvalidMFACode
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.MFARecords().MarkMFAVerified(ctx, userID); err != nil {
			return err
		}
		if err := tx.Users().SetMFAEnabled(ctx, userID, true); err != nil {
			return err
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		for _, c := range codes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, userID, cryptox.FingerprintToken(c)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// Challenge is the stateless login-time TOTP check against a verified
// enrollment.
func (s *MFAService) Challenge(ctx context.Context, userID, code string) error {
	rec, err := s.Store.MFARecords().GetMFARecord(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMFANotEnabled
		}
		return err
	}
	if !rec.Verified {
		return ErrMFANotEnabled
	}
	if !totp.Validate(code, rec.Secret) {
		return ErrInvalidMFACode
	}
	return nil
}

// ConsumeBackupCode spends one of the user's backup codes. Each code works
// at most once; an unknown or already-spent code fails with
// ErrInvalidMFACode.
func (s *MFAService) ConsumeBackupCode(ctx context.Context, userID, code string) error {
	ok, err := s.Store.BackupCodes().ConsumeBackupCode(ctx, userID, cryptox.FingerprintToken(code))
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidMFACode
	}
	return nil
}

// RegenerateBackupCodes replaces the user's backup codes wholesale after a
// successful TOTP challenge, returning the fresh plaintext codes once.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if err := s.Challenge(ctx, userID, code); err != nil {
		return nil, err
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		for _, c := range codes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, userID, cryptox.FingerprintToken(c)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// Disable removes the user's enrollment and backup codes, returning them to
// the unenrolled state. The disabling credential is a TOTP code or, when
// useBackupCode is set, one of the user's backup codes, so a lost
// authenticator does not lock the account into MFA forever.
func (s *MFAService) Disable(ctx context.Context, userID, code string, useBackupCode bool) error {
	if useBackupCode {
		rec, err := s.Store.MFARecords().GetMFARecord(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMFANotEnabled
			}
			return err
		}
		if !rec.Verified {
			return ErrMFANotEnabled
		}
		if err := s.ConsumeBackupCode(ctx, userID, code); err != nil {
			return err
		}
	} else if err := s.Challenge(ctx, userID, code); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		if err := tx.MFARecords().DeleteMFARecord(ctx, userID); err != nil {
			return err
		}
		return tx.Users().SetMFAEnabled(ctx, userID, false)
	})
}

// RemainingBackupCodes reports how many unused backup codes the user holds.
func (s *MFAService) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	return s.Store.BackupCodes().CountBackupCodes(ctx, userID)
}

func generateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range codes {
		c, err := cryptox.GenerateToken(backupCodeBytes)
		if err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		codes[i] = c
	}
	return codes, nil
}
