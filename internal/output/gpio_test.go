package output

import (
	"context"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	logx "gardenlights/pkg/logx"
)

// outPin counts Out calls on top of the periph test pin.
type outPin struct {
	*gpiotest.Pin
	outs int
}

func (p *outPin) Out(l gpio.Level) error {
	p.outs++
	return p.Pin.Out(l)
}

func TestGPIOInitSetsOutputsKeepingLevel(t *testing.T) {
	t.Parallel()
	p17 := &outPin{Pin: &gpiotest.Pin{N: "GPIO17", Num: 17, L: gpio.High}}
	p27 := &outPin{Pin: &gpiotest.Pin{N: "GPIO27", Num: 27, L: gpio.Low}}

	g, err := newGPIO(map[int]gpio.PinIO{17: p17, 27: p27}, true, 0, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if p17.outs != 1 || p27.outs != 1 {
		t.Fatalf("Out calls = %d, %d; want every pin driven once at init", p17.outs, p27.outs)
	}
	if p17.Read() != gpio.High || p27.Read() != gpio.Low {
		t.Fatal("init changed pin levels")
	}

	// Active-low: High reads as off, Low as on.
	if on, _ := g.Read(17); on {
		t.Fatal("pin 17 (High) reported on")
	}
	if on, _ := g.Read(27); !on {
		t.Fatal("pin 27 (Low) reported off")
	}
}

func TestGPIOActiveLevels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		activeLow bool
		on        bool
		want      gpio.Level
	}{
		{name: "active low on", activeLow: true, on: true, want: gpio.Low},
		{name: "active low off", activeLow: true, on: false, want: gpio.High},
		{name: "active high on", activeLow: false, on: true, want: gpio.High},
		{name: "active high off", activeLow: false, on: false, want: gpio.Low},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &gpiotest.Pin{N: "GPIO22", Num: 22, L: !tt.want}
			g, err := newGPIO(map[int]gpio.PinIO{22: p}, tt.activeLow, 0, logx.Nop())
			if err != nil {
				t.Fatal(err)
			}
			if tt.on {
				err = g.On(context.Background(), []int{22})
			} else {
				err = g.Off(context.Background(), []int{22})
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Read() != tt.want {
				t.Fatalf("level = %v, want %v", p.Read(), tt.want)
			}
			if _, err := g.Read(99); err == nil {
				t.Fatal("unknown channel read without error")
			}
		})
	}
}
