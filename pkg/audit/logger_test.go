package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/audit"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Store(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("panics with nil storage", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			audit.NewLogger(nil)
		})
	})
}

func TestLogger_Log(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("stores event with extracted context values", func(t *testing.T) {
		t.Parallel()
		storage := &mockStorage{}
		storage.On("Store", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
			return e.Action == "TWO_FACTOR_ENABLED" &&
				e.AccountID == "acc-1" &&
				e.Result == audit.ResultSuccess &&
				e.RequestID == "req-1" &&
				e.IP == "10.0.0.1" &&
				e.UserAgent == "test-agent" &&
				e.ID != "" &&
				e.CreatedAt.Equal(fixed)
		})).Return(nil).Once()

		logger := audit.NewLogger(storage,
			audit.WithClock(func() time.Time { return fixed }),
			audit.WithRequestIDExtractor(func(context.Context) (string, bool) { return "req-1", true }),
			audit.WithIPExtractor(func(context.Context) (string, bool) { return "10.0.0.1", true }),
			audit.WithUserAgentExtractor(func(context.Context) (string, bool) { return "test-agent", true }),
		)

		err := logger.Log(context.Background(), "TWO_FACTOR_ENABLED", audit.WithAccount("acc-1"))
		require.NoError(t, err)
		storage.AssertExpectations(t)
	})

	t.Run("rejects empty action", func(t *testing.T) {
		t.Parallel()
		storage := &mockStorage{}
		logger := audit.NewLogger(storage)

		err := logger.Log(context.Background(), "")
		require.ErrorIs(t, err, audit.ErrEventValidation)
		storage.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("returns storage error", func(t *testing.T) {
		t.Parallel()
		storage := &mockStorage{}
		storage.On("Store", mock.Anything, mock.Anything).Return(audit.ErrStorageNotAvailable)

		err := audit.NewLogger(storage).Log(context.Background(), "TWO_FACTOR_SETUP")
		require.ErrorIs(t, err, audit.ErrStorageNotAvailable)
	})

	t.Run("filters sensitive metadata", func(t *testing.T) {
		t.Parallel()
		storage := audit.NewMemoryStorage()
		logger := audit.NewLogger(storage)

		err := logger.Log(context.Background(), "TWO_FACTOR_BACKUP_CODE_USED",
			audit.WithMetadata("backup_code", "ABCD-EFGH"),
			audit.WithMetadata("remaining", 9),
		)
		require.NoError(t, err)

		events := storage.Events()
		require.Len(t, events, 1)
		assert.NotContains(t, events[0].Metadata, "backup_code")
		assert.Equal(t, 9, events[0].Metadata["remaining"])
	})
}

func TestLogger_LogError(t *testing.T) {
	t.Parallel()

	storage := audit.NewMemoryStorage()
	logger := audit.NewLogger(storage)

	err := logger.LogError(context.Background(), "TWO_FACTOR_VERIFICATION_FAILED",
		errors.New("invalid code"),
		audit.WithAccount("acc-2"),
		audit.WithResult(audit.ResultFailure),
	)
	require.NoError(t, err)

	events := storage.ByAction("TWO_FACTOR_VERIFICATION_FAILED")
	require.Len(t, events, 1)
	assert.Equal(t, "invalid code", events[0].Error)
	assert.Equal(t, audit.ResultFailure, events[0].Result)
	assert.Equal(t, "acc-2", events[0].AccountID)
}
