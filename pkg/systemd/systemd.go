// Package systemd reports service state to systemd for Type=notify units.
// Every call is a no-op when the process was not started by systemd.
package systemd

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. The zero value is disabled.
type Notifier struct {
	enabled bool
	send    func(state string) (bool, error)
}

func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send:    func(state string) (bool, error) { return daemon.SdNotify(false, state) },
	}
}

func (n *Notifier) notify(state string) error {
	if n == nil || !n.enabled {
		return nil
	}
	_, err := n.send(state)
	return err
}

func (n *Notifier) Ready() error    { return n.notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() error { return n.notify(daemon.SdNotifyStopping) }
func (n *Notifier) Watchdog() error { return n.notify(daemon.SdNotifyWatchdog) }

// Status sets the one-line status shown by systemctl status.
func (n *Notifier) Status(line string) error { return n.notify("STATUS=" + line) }

// WatchdogInterval returns the unit's WatchdogSec, or 0 when unset.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}
