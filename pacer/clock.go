/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package pacer

import (
	"context"
	"time"
)

// Clock is a source of time for Pacer.
type Clock interface {
	Now() time.Time
	// Sleep blocks for the given duration or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
