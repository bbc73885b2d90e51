// Package pgstore keeps two-factor records in PostgreSQL.
//
// Mutations run in a transaction that holds a transaction-scoped advisory
// lock on the account and a row lock on its record, so concurrent callbacks
// for one account run one after another. The schema lives in the root
// migrations package.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/twofactor/pkg/pg"
	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements twofactor.Storage on the two_factor_records table.
type Store struct {
	db DB
}

var _ twofactor.Storage = (*Store)(nil)

// New panics on a nil db.
func New(db DB) *Store {
	if db == nil {
		panic("pgstore: db cannot be nil")
	}
	return &Store{db: db}
}

const (
	selectColumns = `SELECT account_id, encrypted_secret, encrypted_backup_codes, is_enabled,
		last_used_at, created_at, updated_at, version
		FROM two_factor_records WHERE account_id = $1`

	lockAccount = `SELECT pg_advisory_xact_lock(hashtext($1))`

	upsertRecord = `INSERT INTO two_factor_records (account_id, encrypted_secret,
		encrypted_backup_codes, is_enabled, last_used_at, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (account_id) DO UPDATE SET
			encrypted_secret = EXCLUDED.encrypted_secret,
			encrypted_backup_codes = EXCLUDED.encrypted_backup_codes,
			is_enabled = EXCLUDED.is_enabled,
			last_used_at = EXCLUDED.last_used_at,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			version = two_factor_records.version + 1`

	deleteRecord = `DELETE FROM two_factor_records WHERE account_id = $1`
)

func (s *Store) Find(ctx context.Context, accountID string) (twofactor.Record, error) {
	return scan(s.db.QueryRow(ctx, selectColumns, accountID))
}

func (s *Store) Upsert(ctx context.Context, accountID string, fn func(rec *twofactor.Record, exists bool) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockAccount, accountID); err != nil {
			return errors.Join(twofactor.ErrUnavailable, err)
		}

		rec, err := scan(tx.QueryRow(ctx, selectColumns+" FOR UPDATE", accountID))
		exists := err == nil
		switch {
		case errors.Is(err, twofactor.ErrRecordNotFound):
			rec = twofactor.Record{AccountID: accountID}
		case err != nil:
			return err
		}

		if err := fn(&rec, exists); err != nil {
			return err
		}
		return write(ctx, tx, accountID, rec)
	})
}

func (s *Store) Update(ctx context.Context, accountID string, fn func(rec *twofactor.Record) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		rec, err := scan(tx.QueryRow(ctx, selectColumns+" FOR UPDATE", accountID))
		if err != nil {
			return err
		}

		if err := fn(&rec); err != nil {
			return err
		}
		return write(ctx, tx, accountID, rec)
	})
}

func (s *Store) DeleteIf(ctx context.Context, accountID string, fn func(rec *twofactor.Record) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		rec, err := scan(tx.QueryRow(ctx, selectColumns+" FOR UPDATE", accountID))
		if err != nil {
			return err
		}

		if err := fn(&rec); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, deleteRecord, accountID); err != nil {
			return errors.Join(twofactor.ErrUnavailable, err)
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, accountID string) error {
	tag, err := s.db.Exec(ctx, deleteRecord, accountID)
	if err != nil {
		return errors.Join(twofactor.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return twofactor.ErrRecordNotFound
	}
	return nil
}

// inTx commits when fn succeeds. Errors from fn are returned unchanged.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(twofactor.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(twofactor.ErrUnavailable, err)
	}
	return nil
}

func write(ctx context.Context, tx pgx.Tx, accountID string, rec twofactor.Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	_, err := tx.Exec(ctx, upsertRecord,
		accountID,
		rec.EncryptedSecret,
		rec.EncryptedBackupCodes,
		rec.Enabled,
		rec.LastUsedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return errors.Join(twofactor.ErrUnavailable, err)
	}
	return nil
}

func scan(row pgx.Row) (twofactor.Record, error) {
	var rec twofactor.Record
	err := row.Scan(
		&rec.AccountID,
		&rec.EncryptedSecret,
		&rec.EncryptedBackupCodes,
		&rec.Enabled,
		&rec.LastUsedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.Version,
	)
	if pg.IsNotFoundError(err) {
		return twofactor.Record{}, twofactor.ErrRecordNotFound
	}
	if err != nil {
		return twofactor.Record{}, errors.Join(twofactor.ErrUnavailable, err)
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if rec.LastUsedAt != nil {
		t := rec.LastUsedAt.UTC()
		rec.LastUsedAt = &t
	}
	return rec, nil
}
