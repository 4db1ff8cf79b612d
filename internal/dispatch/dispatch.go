// Package dispatch pushes desired output states to the driver and reports
// only real changes.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gardenlights/internal/notifier"
	"gardenlights/internal/output"
	"gardenlights/internal/schedule"
	logx "gardenlights/pkg/logx"
)

// Apply actuates desired and diffs it against previous.
//
// Every call switches the off set and then the on set, even when nothing
// changed: re-asserting the state each tick corrects outputs that drifted.
// changed is true when desired differs from previous as a whole mapping;
// the returned state is then desired, else previous.
func Apply(ctx context.Context, desired, previous schedule.State, channels []int, drv output.Driver) (schedule.State, bool, error) {
	off, on := desired.Split(channels)
	if err := drv.Off(ctx, off); err != nil {
		return previous, false, fmt.Errorf("switch off %v: %w", off, err)
	}
	if err := drv.On(ctx, on); err != nil {
		return previous, false, fmt.Errorf("switch on %v: %w", on, err)
	}
	if desired.Equal(previous) {
		return previous, false, nil
	}
	return desired.Clone(), true, nil
}

// Notifier receives status changes.
type Notifier interface {
	Notify(ctx context.Context, ev notifier.Event) error
}

// Snapshot is a copy of the dispatcher's state.
type Snapshot struct {
	Applied   schedule.State
	ChangedAt time.Time
	AppliedAt time.Time
}

// Dispatcher owns the applied state for the process lifetime. It starts
// empty, so the first Apply always reports a change.
type Dispatcher struct {
	drv      output.Driver
	channels []int
	notify   Notifier
	device   string
	log      logx.Logger
	now      func() time.Time

	mu        sync.RWMutex
	applied   schedule.State
	changedAt time.Time
	appliedAt time.Time
}

type Option func(*Dispatcher)

func WithLogger(log logx.Logger) Option     { return func(d *Dispatcher) { d.log = log } }
func WithDevice(name string) Option         { return func(d *Dispatcher) { d.device = name } }
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

func New(drv output.Driver, channels []int, n Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		drv:      drv,
		channels: append([]int(nil), channels...),
		notify:   n,
		now:      time.Now,
		applied:  schedule.State{},
	}
	for _, o := range opts {
		o(d)
	}
	if d.log.IsZero() {
		d.log = logx.Nop()
	}
	return d
}

// Apply actuates desired; on change it records the new state and emits
// one status notification.
func (d *Dispatcher) Apply(ctx context.Context, desired schedule.State) (bool, error) {
	d.mu.RLock()
	prev := d.applied
	d.mu.RUnlock()

	next, changed, err := Apply(ctx, desired, prev, d.channels, d.drv)
	if err != nil {
		return false, err
	}

	now := d.now()
	d.mu.Lock()
	d.applied = next
	d.appliedAt = now
	if changed {
		d.changedAt = now
	}
	d.mu.Unlock()

	if !changed {
		return false, nil
	}
	ev := notifier.Event{
		ID:       uuid.NewString(),
		At:       now,
		Device:   d.device,
		Channels: d.Status(desired),
	}
	if d.notify != nil {
		if err := d.notify.Notify(ctx, ev); err != nil {
			d.log.Debug("status notification not queued", logx.Err(err))
		}
	}
	return true, nil
}

// Status reads every channel back from the driver. Channels the driver
// cannot read fall back to fallback (may be nil).
func (d *Dispatcher) Status(fallback schedule.State) []notifier.ChannelStatus {
	out := make([]notifier.ChannelStatus, 0, len(d.channels))
	for i, ch := range d.channels {
		on, err := d.drv.Read(ch)
		if err != nil {
			d.log.Warn("output read failed", logx.Int("channel", ch), logx.Err(err))
			on = fallback[ch]
		}
		out = append(out, notifier.ChannelStatus{Index: i + 1, Channel: ch, On: on})
	}
	return out
}

// Snapshot is safe to call from other goroutines.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		Applied:   d.applied.Clone(),
		ChangedAt: d.changedAt,
		AppliedAt: d.appliedAt,
	}
}
