package twofactor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
	"github.com/dmitrymomot/twofactor/svc/twofactor/storagetest"
)

func TestMemoryStorage_Contract(t *testing.T) {
	t.Parallel()
	storagetest.Run(t, func(*testing.T) twofactor.Storage {
		return twofactor.NewMemoryStorage()
	})
}

func TestMemoryStorage_FindReturnsCopy(t *testing.T) {
	t.Parallel()

	s := twofactor.NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "acc", func(rec *twofactor.Record, _ bool) error {
		rec.EncryptedSecret = "secret"
		return nil
	}))

	got, err := s.Find(ctx, "acc")
	require.NoError(t, err)
	got.EncryptedSecret = "mutated"

	again, err := s.Find(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, "secret", again.EncryptedSecret)
}

func TestMemoryStorage_CancelledContext(t *testing.T) {
	t.Parallel()

	s := twofactor.NewMemoryStorage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, "acc")
	require.ErrorIs(t, err, context.Canceled)
	err = s.Update(ctx, "acc", func(*twofactor.Record) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
