package app

import (
	"context"

	"gardenlights/internal/notifier"
	logx "gardenlights/pkg/logx"
)

// Switch turns the given lights on or off once and logs the resulting
// status. lights are 1-based positions in the configured ports; an empty
// list means every light.
func (a *App) Switch(ctx context.Context, on bool, lights []int) error {
	channels, err := a.resolveLights(lights)
	if err != nil {
		return err
	}
	if on {
		err = a.drv.On(ctx, channels)
	} else {
		err = a.drv.Off(ctx, channels)
	}
	if err != nil {
		a.log.Error("output actuation failed", logx.Ints("channels", channels), logx.Err(err))
		return &ExitError{Code: ExitFailure, Err: err}
	}
	a.log.Info(a.Status())
	return nil
}

// Status reads every output back from the driver, e.g. "01:On, 02:Off".
func (a *App) Status() string {
	return notifier.FormatStatus(a.disp.Status(nil))
}

// Close releases resources for one-shot use; Run does this on its own.
func (a *App) Close() { a.close() }

func (a *App) resolveLights(lights []int) ([]int, error) {
	ports := a.cfg.Ports
	if len(lights) == 0 {
		return append([]int(nil), ports...), nil
	}
	out := make([]int, 0, len(lights))
	for _, n := range lights {
		if n < 1 || n > len(ports) {
			valid := make([]int, len(ports))
			for i := range ports {
				valid[i] = i + 1
			}
			a.log.Error("light not configured", logx.Int("light", n), logx.Ints("configured", valid))
			return nil, usageError("light %d is not configured; valid lights: %v", n, valid)
		}
		out = append(out, ports[n-1])
	}
	return out, nil
}
