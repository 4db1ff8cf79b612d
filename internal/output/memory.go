package output

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Call records one On/Off invocation.
type Call struct {
	On       bool
	Channels []int
}

// Memory is a Driver without hardware: --dry-run, machines without GPIO,
// and tests.
type Memory struct {
	settle time.Duration

	mu    sync.Mutex
	state map[int]bool
	calls []Call
}

func NewMemory(channels []int, settleDelay time.Duration) *Memory {
	m := &Memory{
		settle: settleDelay,
		state:  make(map[int]bool, len(channels)),
	}
	for _, ch := range channels {
		m.state[ch] = false
	}
	return m
}

func (m *Memory) set(ctx context.Context, channels []int, on bool) error {
	m.mu.Lock()
	m.calls = append(m.calls, Call{On: on, Channels: append([]int(nil), channels...)})
	m.mu.Unlock()
	for _, ch := range channels {
		m.mu.Lock()
		if _, ok := m.state[ch]; ok {
			m.state[ch] = on
		}
		m.mu.Unlock()
		if err := settle(ctx, m.settle); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) On(ctx context.Context, channels []int) error  { return m.set(ctx, channels, true) }
func (m *Memory) Off(ctx context.Context, channels []int) error { return m.set(ctx, channels, false) }

func (m *Memory) Read(channel int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	on, ok := m.state[channel]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownChannel, channel)
	}
	return on, nil
}

// Calls returns every On/Off invocation so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *Memory) Close() error { return nil }
