package sqlite

import (
	"context"

	"github.com/halcyonlabs/authd/internal/auth/domain"
)

type mfaRecordsRepo struct {
	db dbtx
}

func (r *mfaRecordsRepo) UpsertMFARecord(ctx context.Context, rec domain.MFARecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mfa_records (user_id, secret, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			secret = excluded.secret,
			verified = excluded.verified,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.Secret, boolToInt(rec.Verified),
		timeToMillis(rec.CreatedAt), timeToMillis(rec.UpdatedAt),
	)
	return err
}

func (r *mfaRecordsRepo) GetMFARecord(ctx context.Context, userID string) (domain.MFARecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, secret, verified, created_at, updated_at
		FROM mfa_records WHERE user_id = ?`, userID)

	var (
		rec                        domain.MFARecord
		verified, created, updated int64
	)
	if err := row.Scan(&rec.UserID, &rec.Secret, &verified, &created, &updated); err != nil {
		return domain.MFARecord{}, mapNotFound(err)
	}

	rec.Verified = verified != 0
	rec.CreatedAt = millisToTime(created)
	rec.UpdatedAt = millisToTime(updated)
	return rec, nil
}

func (r *mfaRecordsRepo) MarkMFAVerified(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE mfa_records SET verified = 1, updated_at = ? WHERE user_id = ?`,
		nowMillis(), userID)
	return err
}

func (r *mfaRecordsRepo) DeleteMFARecord(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_records WHERE user_id = ?`, userID)
	return err
}
