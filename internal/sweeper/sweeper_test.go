package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExpiryStore struct {
	mock.Mock
}

func (m *MockExpiryStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("reports the number of deactivated links", func(t *testing.T) {
		store := &MockExpiryStore{}
		store.On("DeactivateExpired", ctx, mock.AnythingOfType("time.Time")).
			Return(int64(3), nil).Once()

		s := New(store, time.Minute, nil)

		count, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		store.AssertExpectations(t)
	})

	t.Run("zero expired links is a normal pass", func(t *testing.T) {
		store := &MockExpiryStore{}
		store.On("DeactivateExpired", ctx, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil).Once()

		s := New(store, time.Minute, nil)

		count, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		store := &MockExpiryStore{}
		storeErr := errors.New("connection refused")
		store.On("DeactivateExpired", ctx, mock.AnythingOfType("time.Time")).
			Return(int64(0), storeErr).Once()

		s := New(store, time.Minute, nil)

		_, err := s.RunOnce(ctx)
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("uses the injected clock", func(t *testing.T) {
		store := &MockExpiryStore{}
		fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		store.On("DeactivateExpired", ctx, fixed).Return(int64(1), nil).Once()

		s := New(store, time.Minute, nil).WithClock(func() time.Time { return fixed })

		_, err := s.RunOnce(ctx)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestSweeper_StartStop(t *testing.T) {
	t.Run("loop sweeps on each tick", func(t *testing.T) {
		var calls atomic.Int64
		store := &MockExpiryStore{}
		store.On("DeactivateExpired", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil).
			Run(func(args mock.Arguments) { calls.Add(1) })

		s := New(store, 10*time.Millisecond, nil)
		s.Start()

		assert.Eventually(t, func() bool {
			return calls.Load() >= 2
		}, 2*time.Second, 5*time.Millisecond)

		s.Stop()
	})

	t.Run("stop terminates the loop and is idempotent", func(t *testing.T) {
		store := &MockExpiryStore{}
		store.On("DeactivateExpired", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil).Maybe()

		s := New(store, 10*time.Millisecond, nil)
		s.Start()
		s.Stop()
		s.Stop()
	})

	t.Run("start is safe to call twice", func(t *testing.T) {
		store := &MockExpiryStore{}
		store.On("DeactivateExpired", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil).Maybe()

		s := New(store, 10*time.Millisecond, nil)
		s.Start()
		s.Start()
		s.Stop()
	})

	t.Run("a failing sweep does not kill the loop", func(t *testing.T) {
		var calls atomic.Int64
		store := &MockExpiryStore{}
		store.On("DeactivateExpired", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), errors.New("transient")).
			Run(func(args mock.Arguments) { calls.Add(1) })

		s := New(store, 10*time.Millisecond, nil)
		s.Start()

		assert.Eventually(t, func() bool {
			return calls.Load() >= 2
		}, 2*time.Second, 5*time.Millisecond)

		s.Stop()
	})
}

func TestNew_Defaults(t *testing.T) {
	s := New(&MockExpiryStore{}, 0, nil)
	assert.Equal(t, DefaultInterval, s.interval)
}
