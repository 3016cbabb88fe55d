/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		var attempts int
		var notified []time.Duration
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), nil,
			func(_ error, delay time.Duration) { notified = append(notified, delay) },
			func(ctx context.Context) error {
				attempts++
				if attempts < 3 {
					return errTransient
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
		require.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, notified)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var attempts int
		err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 2), nil, nil,
			func(ctx context.Context) error {
				attempts++
				return errTransient
			})
		require.ErrorIs(t, err, errTransient)
		require.Equal(t, 3, attempts)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		errPermanent := errors.New("permanent")
		var attempts int
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5),
			func(err error) bool { return errors.Is(err, errTransient) }, nil,
			func(ctx context.Context) error {
				attempts++
				return errPermanent
			})
		require.ErrorIs(t, err, errPermanent)
		require.Equal(t, 1, attempts)
	})

	t.Run("no retry policy", func(t *testing.T) {
		var attempts int
		err := DoWithRetry(context.Background(), NoRetryPolicy, nil, nil, func(ctx context.Context) error {
			attempts++
			return errTransient
		})
		require.ErrorIs(t, err, errTransient)
		require.Equal(t, 1, attempts)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var attempts int
		err := DoWithRetry(ctx, NewConstantBackoffPolicy(time.Hour, 5), nil, nil, func(ctx context.Context) error {
			attempts++
			cancel()
			return errTransient
		})
		require.Error(t, err)
		require.Equal(t, 1, attempts)
	})
}
