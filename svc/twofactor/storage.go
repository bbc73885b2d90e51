package twofactor

import "context"

// Storage persists records. Upsert, Update and DeleteIf must run fn while no
// other mutation for the same account can interleave. If fn returns
// an error nothing is written and that error is returned unchanged. Backend
// failures are wrapped with ErrUnavailable.
//
// Optimistic backends may call fn more than once when they lose a race; only
// the changes made by the last call are saved.
type Storage interface {
	// Find returns ErrRecordNotFound when the account has no record.
	Find(ctx context.Context, accountID string) (Record, error)

	// Upsert calls fn with the current record, or a zero record carrying
	// only AccountID when exists is false, and saves the result.
	Upsert(ctx context.Context, accountID string, fn func(rec *Record, exists bool) error) error

	// Update calls fn with the current record and saves the result. It
	// returns ErrRecordNotFound without calling fn when there is no record.
	Update(ctx context.Context, accountID string, fn func(rec *Record) error) error

	// DeleteIf calls fn with the current record and deletes it when fn
	// returns nil. It returns ErrRecordNotFound without calling fn when
	// there is no record.
	DeleteIf(ctx context.Context, accountID string, fn func(rec *Record) error) error

	// Delete returns ErrRecordNotFound when there is nothing to delete.
	Delete(ctx context.Context, accountID string) error
}
