// Package storagetest checks that a twofactor.Storage honours the storage
// contract. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

// Factory returns an empty storage. Account IDs are random per test, so a
// shared backend does not need cleaning between tests.
type Factory func(t *testing.T) twofactor.Storage

// Run executes the contract suite against storages built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	// Millisecond precision survives every backend.
	stamp := time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

	t.Run("find missing", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.Find(context.Background(), uuid.NewString())
		require.ErrorIs(t, err, twofactor.ErrRecordNotFound)
	})

	t.Run("upsert creates then updates", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		id := uuid.NewString()

		err := s.Upsert(ctx, id, func(rec *twofactor.Record, exists bool) error {
			assert.False(t, exists)
			assert.Equal(t, id, rec.AccountID)
			rec.EncryptedSecret = "secret-1"
			rec.EncryptedBackupCodes = "codes-1"
			rec.CreatedAt = stamp
			rec.UpdatedAt = stamp
			return nil
		})
		require.NoError(t, err)

		got, err := s.Find(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.AccountID)
		assert.Equal(t, "secret-1", got.EncryptedSecret)
		assert.Equal(t, "codes-1", got.EncryptedBackupCodes)
		assert.False(t, got.Enabled)
		assert.Nil(t, got.LastUsedAt)
		assert.True(t, stamp.Equal(got.CreatedAt))
		firstVersion := got.Version

		err = s.Upsert(ctx, id, func(rec *twofactor.Record, exists bool) error {
			assert.True(t, exists)
			assert.Equal(t, "secret-1", rec.EncryptedSecret)
			rec.EncryptedSecret = "secret-2"
			return nil
		})
		require.NoError(t, err)

		got, err = s.Find(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "secret-2", got.EncryptedSecret)
		assert.Greater(t, got.Version, firstVersion)
	})

	t.Run("update missing does not call fn", func(t *testing.T) {
		s := newStorage(t)
		called := false
		err := s.Update(context.Background(), uuid.NewString(), func(*twofactor.Record) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, twofactor.ErrRecordNotFound)
		assert.False(t, called)
	})

	t.Run("update persists changes", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		id := create(t, s, "secret")

		err := s.Update(ctx, id, func(rec *twofactor.Record) error {
			rec.Enabled = true
			rec.LastUsedAt = &stamp
			rec.UpdatedAt = stamp
			return nil
		})
		require.NoError(t, err)

		got, err := s.Find(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Enabled)
		require.NotNil(t, got.LastUsedAt)
		assert.True(t, stamp.Equal(*got.LastUsedAt))
	})

	t.Run("callback error aborts without write", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		id := create(t, s, "original")
		boom := errors.New("boom")

		err := s.Update(ctx, id, func(rec *twofactor.Record) error {
			rec.EncryptedSecret = "changed"
			return boom
		})
		require.ErrorIs(t, err, boom)

		err = s.Upsert(ctx, id, func(rec *twofactor.Record, _ bool) error {
			rec.EncryptedSecret = "changed"
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := s.Find(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "original", got.EncryptedSecret)

		missing := uuid.NewString()
		err = s.Upsert(ctx, missing, func(*twofactor.Record, bool) error { return boom })
		require.ErrorIs(t, err, boom)
		_, err = s.Find(ctx, missing)
		require.ErrorIs(t, err, twofactor.ErrRecordNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		id := create(t, s, "secret")

		require.NoError(t, s.Delete(ctx, id))
		_, err := s.Find(ctx, id)
		require.ErrorIs(t, err, twofactor.ErrRecordNotFound)
		require.ErrorIs(t, s.Delete(ctx, id), twofactor.ErrRecordNotFound)
	})

	t.Run("delete if", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		id := create(t, s, "secret")
		boom := errors.New("boom")

		err := s.DeleteIf(ctx, id, func(rec *twofactor.Record) error {
			assert.Equal(t, "secret", rec.EncryptedSecret)
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := s.Find(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "secret", got.EncryptedSecret)

		require.NoError(t, s.DeleteIf(ctx, id, func(*twofactor.Record) error { return nil }))
		_, err = s.Find(ctx, id)
		require.ErrorIs(t, err, twofactor.ErrRecordNotFound)

		called := false
		err = s.DeleteIf(ctx, id, func(*twofactor.Record) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, twofactor.ErrRecordNotFound)
		assert.False(t, called)
	})

	t.Run("delete if does not interleave with updates", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		id := create(t, s, "0")

		const workers = 10
		var (
			wg      sync.WaitGroup
			deleted int
			mu      sync.Mutex
		)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if i == workers/2 {
					err := s.DeleteIf(ctx, id, func(*twofactor.Record) error { return nil })
					if err == nil {
						mu.Lock()
						deleted++
						mu.Unlock()
					}
					return
				}
				err := s.Update(ctx, id, func(rec *twofactor.Record) error {
					n, err := strconv.Atoi(rec.EncryptedSecret)
					if err != nil {
						return err
					}
					rec.EncryptedSecret = strconv.Itoa(n + 1)
					return nil
				})
				if err != nil {
					assert.ErrorIs(t, err, twofactor.ErrRecordNotFound)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, deleted)
		_, err := s.Find(ctx, id)
		require.ErrorIs(t, err, twofactor.ErrRecordNotFound)
	})

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		id := create(t, s, "0")

		const workers = 10
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Update(ctx, id, func(rec *twofactor.Record) error {
					n, err := strconv.Atoi(rec.EncryptedSecret)
					if err != nil {
						return err
					}
					rec.EncryptedSecret = strconv.Itoa(n + 1)
					return nil
				})
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.Find(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(workers), got.EncryptedSecret)
	})
}

func create(t *testing.T, s twofactor.Storage, secret string) string {
	t.Helper()
	id := uuid.NewString()
	err := s.Upsert(context.Background(), id, func(rec *twofactor.Record, _ bool) error {
		rec.EncryptedSecret = secret
		rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
		rec.UpdatedAt = rec.CreatedAt
		return nil
	})
	require.NoError(t, err)
	return id
}
