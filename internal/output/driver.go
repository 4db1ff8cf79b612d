// Package output switches the physical outputs (relay channels).
//
// Drivers are synchronous and idempotent: switching an output to the state
// it already has is harmless. They sleep a settle delay between successive
// outputs so relays never switch all at once.
package output

import (
	"context"
	"errors"
	"time"
)

var ErrUnknownChannel = errors.New("output: channel not configured")

// Driver is the capability set the scheduler needs from the hardware.
type Driver interface {
	// On and Off ignore channels that were not configured.
	On(ctx context.Context, channels []int) error
	Off(ctx context.Context, channels []int) error
	Read(channel int) (on bool, err error)
	Close() error
}

// DefaultSettle is the pause between two successive outputs.
const DefaultSettle = 500 * time.Millisecond

// settle sleeps d unless ctx is done first.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
