package output

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	logx "gardenlights/pkg/logx"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO drives relay channels through the host's GPIO pins (BCM numbering).
type GPIO struct {
	log       logx.Logger
	settle    time.Duration
	activeLow bool

	mu   sync.Mutex
	pins map[int]gpio.PinIO
}

// NewGPIO initializes the host drivers and configures every channel as an
// output. Pins keep their current level, so lights that were on before a
// restart stay on until the first tick decides otherwise.
func NewGPIO(channels []int, activeLow bool, settleDelay time.Duration, log logx.Logger) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio host init: %w", err)
	}
	pins := make(map[int]gpio.PinIO, len(channels))
	for _, ch := range channels {
		p := gpioreg.ByName(strconv.Itoa(ch))
		if p == nil {
			return nil, fmt.Errorf("gpio %d: pin not found", ch)
		}
		pins[ch] = p
	}
	return newGPIO(pins, activeLow, settleDelay, log)
}

func newGPIO(pins map[int]gpio.PinIO, activeLow bool, settleDelay time.Duration, log logx.Logger) (*GPIO, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	for ch, p := range pins {
		lvl := p.Read()
		if err := p.Out(lvl); err != nil {
			return nil, fmt.Errorf("gpio %d: set output: %w", ch, err)
		}
		log.Debug("gpio output ready", logx.Int("pin", ch), logx.Bool("high", bool(lvl)))
	}
	return &GPIO{
		log:       log,
		settle:    settleDelay,
		activeLow: activeLow,
		pins:      pins,
	}, nil
}

func (g *GPIO) level(on bool) gpio.Level {
	if g.activeLow {
		return gpio.Level(!on)
	}
	return gpio.Level(on)
}

func (g *GPIO) set(ctx context.Context, channels []int, on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ch := range channels {
		p, ok := g.pins[ch]
		if !ok {
			continue
		}
		if err := p.Out(g.level(on)); err != nil {
			return fmt.Errorf("gpio %d: %w", ch, err)
		}
		g.log.Trace("gpio set", logx.Int("pin", ch), logx.Bool("on", on))
		if err := settle(ctx, g.settle); err != nil {
			return err
		}
	}
	return nil
}

func (g *GPIO) On(ctx context.Context, channels []int) error  { return g.set(ctx, channels, true) }
func (g *GPIO) Off(ctx context.Context, channels []int) error { return g.set(ctx, channels, false) }

func (g *GPIO) Read(channel int) (bool, error) {
	g.mu.Lock()
	p, ok := g.pins[channel]
	g.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownChannel, channel)
	}
	return p.Read() == g.level(true), nil
}

// Close leaves the pins as they are: lights keep their state across restarts.
func (g *GPIO) Close() error { return nil }
