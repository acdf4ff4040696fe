package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/halcyonlabs/authd/internal/auth/store"
)

// txStore is a transaction-scoped store. It satisfies store.Tx by exposing
// the same repositories bound to the underlying *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore { return &txStore{tx: tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Users() store.Users                     { return &usersRepo{db: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens     { return &refreshTokensRepo{db: t.tx} }
func (t *txStore) SingleUseTokens() store.SingleUseTokens { return &singleUseTokensRepo{db: t.tx} }
func (t *txStore) MFARecords() store.MFARecords           { return &mfaRecordsRepo{db: t.tx} }
func (t *txStore) BackupCodes() store.BackupCodes         { return &backupCodesRepo{db: t.tx} }
func (t *txStore) LoginAttempts() store.LoginAttempts     { return &loginAttemptsRepo{db: t.tx} }

// The operations below are not meaningful within a transaction scope. They
// exist only to satisfy store.Store; calling them is a programming error.

var errNestedTx = errors.New("sqlite: operation not supported inside a transaction")

func (t *txStore) ApplyMigrations() error { return errNestedTx }
func (t *txStore) Close() error           { return errNestedTx }

func (t *txStore) Ping(context.Context) error { return errNestedTx }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, errNestedTx }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errNestedTx
}
