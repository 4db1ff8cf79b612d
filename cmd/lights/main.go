// lights switches garden lights on a weekly schedule anchored to fixed
// times or to sunrise and sunset.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"gardenlights/internal/app"
	"gardenlights/internal/config"
	logx "gardenlights/pkg/logx"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lights: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(app.ExitFailure)
	}
}

type flags struct {
	configPath string
	on         bool
	off        bool
	status     bool
	dryRun     bool
	lights     []int
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("lights", pflag.ContinueOnError)
	fs.StringVarP(&f.configPath, "config", "c", config.DefaultPath, "path to the config file (JSON or YAML)")
	fs.BoolVar(&f.on, "on", false, "turn lights on and exit (all, or the light numbers given as arguments)")
	fs.BoolVar(&f.off, "off", false, "turn lights off and exit (all, or the light numbers given as arguments)")
	fs.BoolVar(&f.status, "status", false, "print the state of every light and exit")
	fs.BoolVar(&f.dryRun, "dry-run", false, "use the in-memory output driver instead of GPIO")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lights [--config FILE] [--dry-run] [--on|--off [N ...] | --status]\n\n%s", fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return f, err
		}
		return f, &app.ExitError{Code: app.ExitUsage, Err: err}
	}

	modes := 0
	for _, m := range []bool{f.on, f.off, f.status} {
		if m {
			modes++
		}
	}
	if modes > 1 {
		return f, &app.ExitError{Code: app.ExitUsage, Err: errors.New("--on, --off and --status are mutually exclusive")}
	}
	if len(fs.Args()) > 0 && !f.on && !f.off {
		return f, &app.ExitError{Code: app.ExitUsage, Err: fmt.Errorf("unexpected argument: %s", fs.Arg(0))}
	}
	for _, a := range fs.Args() {
		n, err := strconv.Atoi(a)
		if err != nil {
			return f, &app.ExitError{Code: app.ExitUsage, Err: fmt.Errorf("light number %q: %w", a, err)}
		}
		f.lights = append(f.lights, n)
	}
	return f, nil
}

func run(args []string) error {
	f, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		logx.NewConsole("info").Error("config not usable", logx.String("path", f.configPath), logx.Err(err))
		return &app.ExitError{Code: app.ExitConfig, Err: err}
	}

	a, err := app.New(cfg, app.Options{DryRun: f.dryRun, ConfigPath: f.configPath})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case f.on || f.off:
		defer a.Close()
		return a.Switch(ctx, f.on, f.lights)
	case f.status:
		defer a.Close()
		fmt.Println(a.Status())
		return nil
	default:
		return a.Run(ctx)
	}
}
