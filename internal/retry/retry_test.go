package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/goap/internal/logger"
	"github.com/gxo-labs/goap/internal/retry"
)

var errTransient = errors.New("transient")

func TestHelper_Do(t *testing.T) {
	testCases := []struct {
		name          string
		cfg           retry.Config
		failures      int
		err           error
		expectErr     bool
		expectedCalls int
	}{
		{
			name:          "succeeds first time",
			cfg:           retry.Config{Attempts: 3, OnError: true},
			expectedCalls: 1,
		},
		{
			name:          "succeeds after retries",
			cfg:           retry.Config{Attempts: 3, OnError: true, Delay: time.Millisecond},
			failures:      2,
			err:           errTransient,
			expectedCalls: 3,
		},
		{
			name:          "exhausts attempts",
			cfg:           retry.Config{Attempts: 2, OnError: true},
			failures:      5,
			err:           errTransient,
			expectErr:     true,
			expectedCalls: 2,
		},
		{
			name:          "retry disabled",
			cfg:           retry.Config{Attempts: 5, OnError: false},
			failures:      5,
			err:           errTransient,
			expectErr:     true,
			expectedCalls: 1,
		},
		{
			name: "non retryable error stops",
			cfg: retry.Config{Attempts: 5, OnError: true, Retryable: func(err error) bool {
				return !errors.Is(err, errTransient)
			}},
			failures:      5,
			err:           errTransient,
			expectErr:     true,
			expectedCalls: 1,
		},
		{
			name:          "zero attempts runs once",
			cfg:           retry.Config{},
			expectedCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := retry.NewHelper(logger.NewNopLogger())
			calls := 0
			err := h.Do(context.Background(), tc.cfg, func(ctx context.Context) error {
				calls++
				if calls <= tc.failures {
					return tc.err
				}
				return nil
			})
			if tc.expectErr {
				assert.ErrorIs(t, err, tc.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expectedCalls, calls)
		})
	}
}

func TestHelper_Do_ContextCancelledDuringDelay(t *testing.T) {
	h := retry.NewHelper(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := h.Do(ctx, retry.Config{Attempts: 3, OnError: true, Delay: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestHelper_Do_CancelledBeforeStart(t *testing.T) {
	h := retry.NewHelper(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Do(ctx, retry.Config{Attempts: 3, OnError: true}, func(ctx context.Context) error {
		t.Fatal("operation must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
