package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ChannelStatus is one output in a status report.
type ChannelStatus struct {
	Index   int  `json:"index"`   // 1-based, as used in task files
	Channel int  `json:"channel"` // GPIO channel
	On      bool `json:"on"`
}

// Event is a status change.
type Event struct {
	ID       string          `json:"id"`
	At       time.Time       `json:"at"`
	Device   string          `json:"device,omitempty"`
	Channels []ChannelStatus `json:"channels"`
}

// Text renders the status line, e.g. "01:On, 02:Off".
func (e Event) Text() string { return FormatStatus(e.Channels) }

// FormatStatus renders channels as "NN:On|Off" pairs, in order.
func FormatStatus(chs []ChannelStatus) string {
	parts := make([]string, 0, len(chs))
	for _, c := range chs {
		st := "Off"
		if c.On {
			st = "On"
		}
		parts = append(parts, fmt.Sprintf("%02d:%s", c.Index, st))
	}
	return strings.Join(parts, ", ")
}

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}
