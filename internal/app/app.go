// Package app wires every component from one immutable config and runs the
// control loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gardenlights/internal/config"
	"gardenlights/internal/dispatch"
	"gardenlights/internal/ephemeris"
	"gardenlights/internal/httpapi"
	"gardenlights/internal/notifier"
	"gardenlights/internal/output"
	rtsup "gardenlights/internal/runtime/supervisor"
	"gardenlights/internal/schedule"
	"gardenlights/internal/storage"
	"gardenlights/internal/tasks"
	logx "gardenlights/pkg/logx"
	"gardenlights/pkg/systemd"
)

type App struct {
	cfg     *config.Config
	cfgPath string
	loc     *time.Location
	coord   ephemeris.Coordinate

	log  logx.Logger
	logs *logx.Service

	store   storage.BlobStore
	cache   *ephemeris.Cache
	drv     output.Driver
	notif   *notifier.Service
	disp    *dispatch.Dispatcher
	clock   *schedule.Clock
	loader  *tasks.Loader
	watcher *tasks.Watcher
	http    *httpapi.Server
	sd      *systemd.Notifier
}

// New builds the application. Errors are *ExitError values.
func New(cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{
		cfg:     cfg,
		cfgPath: opts.ConfigPath,
		coord:   ephemeris.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.loc, err = cfg.Location(); err != nil {
		return nil, configError(err)
	}

	if opts.Logger.IsZero() {
		a.logs, a.log = logx.New(mapLogConfig(cfg))
	} else {
		a.log = opts.Logger
	}
	log := a.log.With(logx.String("comp", "app"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, configError(err)
	}
	if a.store, err = storage.Open(sc, a.log.With(logx.String("comp", "storage"))); err != nil {
		return nil, &ExitError{Code: ExitFailure, Err: fmt.Errorf("open ephemeris store: %w", err)}
	}

	fetcher, err := buildFetcher(cfg, opts)
	if err != nil {
		return nil, err
	}
	maxAge, err := config.ParseDurationOrDefault("ephemeris.max_age", cfg.Ephemeris.MaxAge, ephemeris.DefaultMaxAge)
	if err != nil {
		return nil, configError(err)
	}
	cacheOpts := []ephemeris.Option{
		ephemeris.WithMaxAge(maxAge),
		ephemeris.WithLogger(a.log.With(logx.String("comp", "ephemeris"))),
	}
	if opts.Now != nil {
		cacheOpts = append(cacheOpts, ephemeris.WithClock(opts.Now))
	}
	a.cache = ephemeris.NewCache(a.store, fetcher, cacheOpts...)

	if a.drv, err = buildDriver(cfg, opts, a.log.With(logx.String("comp", "output"))); err != nil {
		return nil, err
	}

	device := deviceName(cfg)
	sinks, err := buildSinks(cfg, device)
	if err != nil {
		return nil, configError(err)
	}
	a.notif = notifier.New(a.log.With(logx.String("comp", "notifier")), sinks...)

	dispOpts := []dispatch.Option{
		dispatch.WithLogger(a.log.With(logx.String("comp", "dispatch"))),
		dispatch.WithDevice(device),
	}
	if opts.Now != nil {
		dispOpts = append(dispOpts, dispatch.WithClock(opts.Now))
	}
	a.disp = dispatch.New(a.drv, cfg.Ports, a.notif, dispOpts...)

	if a.clock, err = schedule.NewClock(cfg.Loop.Schedule, a.loc); err != nil {
		return nil, configError(err)
	}

	a.loader = &tasks.Loader{
		Path:      cfg.TaskFile,
		Channels:  cfg.Ports,
		Ephemeris: a.ephemeris,
		Log:       a.log.With(logx.String("comp", "tasks")),
	}
	if cfg.Loop.WatchTasks {
		a.watcher = tasks.NewWatcher(cfg.TaskFile, a.log.With(logx.String("comp", "tasks.watch")))
	}
	if cfg.HTTP.Enabled {
		a.http = httpapi.New(cfg.HTTP.Addr, a.disp, cfg.Ports, device, a.log.With(logx.String("comp", "http")))
	}

	a.sd = systemd.New(cfg.Systemd.Notify)
	if wd := systemd.WatchdogInterval(); wd > 0 && cfg.Systemd.Notify {
		log.Info("systemd watchdog active", logx.Duration("interval", wd))
	}

	log.Info("configured",
		logx.Ints("ports", cfg.Ports),
		logx.String("tz", a.loc.String()),
		logx.String("taskfile", cfg.TaskFile),
		logx.String("coord", a.coord.String()),
	)
	return a, nil
}

func (a *App) ephemeris(ctx context.Context) (tasks.Lookuper, error) {
	rec, err := a.cache.Resolve(ctx, a.coord, a.loc)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Dispatcher exposes the applied state.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.disp }

// Run evaluates the schedule on every clock tick until ctx is done or a
// fatal error occurs. The first evaluation happens immediately.
func (a *App) Run(ctx context.Context) (err error) {
	log := a.log.With(logx.String("comp", "app"))
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		rtsup.WithCancelOnError(true),
	)

	a.notif.Start(sup)
	var wake <-chan struct{}
	if a.watcher != nil {
		sup.GoRestart("tasks.watch", a.watcher.Run, 250*time.Millisecond, 5*time.Second)
		wake = a.watcher.C()
	}
	if a.http != nil {
		sup.GoRestart("http.serve", a.http.Serve, 500*time.Millisecond, 10*time.Second)
	}
	if a.logs != nil && a.cfgPath != "" {
		sup.Go("logging.reload", a.reloadOnHangup)
	}

	reason := StopSignal
	defer func() {
		if err != nil {
			reason = StopFatal
		}
		a.shutdown(sup, reason)
	}()

	a.sdNotify(a.sd.Ready)
	log.Info("control loop started", logx.String("schedule", a.cfg.Loop.Schedule))

	runCtx := sup.Context()
	now := a.clock.Now()
	for {
		if err := a.Tick(runCtx, now); err != nil {
			return err
		}
		a.sdNotify(a.sd.Watchdog)
		if a.cfg.Systemd.Notify {
			a.sdNotify(func() error { return a.sd.Status(a.statusLine()) })
		}

		var woken bool
		now, woken, err = a.clock.Wait(runCtx, wake)
		if err != nil {
			if serr := sup.Err(); serr != nil {
				return &ExitError{Code: ExitFailure, Err: serr}
			}
			return nil
		}
		if woken {
			log.Debug("task file changed; evaluating early")
		}
	}
}

// Tick runs one load, evaluate and dispatch cycle for now. It returns an
// *ExitError only for fatal conditions; actuation failures are logged and
// retried on the next tick.
//
// An empty task list (missing file, or only comments) skips actuation
// entirely: outputs keep whatever state they had, they are not forced off.
func (a *App) Tick(ctx context.Context, now time.Time) error {
	ts, err := a.loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return a.fatal(err)
	}
	if len(ts) == 0 {
		a.log.Debug("no tasks; skipping actuation", logx.String("taskfile", a.cfg.TaskFile))
		return nil
	}

	desired := schedule.Evaluate(ts, now.In(a.loc), a.cfg.Ports)
	changed, err := a.disp.Apply(ctx, desired)
	if err != nil {
		if ctx.Err() == nil {
			a.log.Error("output actuation failed", logx.Err(err))
		}
		return nil
	}
	if a.log.Enabled(logx.LevelDebug) {
		on, _ := desired.Split(a.cfg.Ports)
		a.log.Debug("tick",
			logx.Time("now", now),
			logx.Int("tasks", len(ts)),
			logx.Ints("on", on),
			logx.Bool("changed", changed),
		)
	}
	return nil
}

func (a *App) fatal(err error) error {
	var pe *tasks.ParseError
	switch {
	case errors.As(err, &pe):
		a.log.Error("task file rejected",
			logx.String("file", pe.File),
			logx.Int("line", pe.Line),
			logx.String("field", pe.Field),
			logx.String("value", pe.Value),
			logx.Err(pe.Err),
		)
		return configError(err)
	case errors.Is(err, ephemeris.ErrNoEphemeris):
		a.log.Error("no ephemerides available",
			logx.String("taskfile", a.cfg.TaskFile),
			logx.String("coord", a.coord.String()),
			logx.Err(err),
		)
		return configError(err)
	default:
		a.log.Error("tick failed", logx.Err(err))
		return &ExitError{Code: ExitFailure, Err: err}
	}
}

// ReloadLogging re-reads the config file and applies its logging section.
// Every other section needs a restart.
func (a *App) ReloadLogging() error {
	if a.logs == nil {
		return nil
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.logs.Apply(mapLogConfig(cfg))
	a.log.Info("logging reconfigured",
		logx.String("level", cfg.Logging.Level),
		logx.Bool("file", cfg.Logging.File.Enabled),
	)
	return nil
}

func (a *App) reloadOnHangup(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := a.ReloadLogging(); err != nil {
				a.log.Warn("logging reload failed; keeping previous", logx.Err(err))
			}
		}
	}
}

func (a *App) statusLine() string {
	return notifier.FormatStatus(a.disp.Status(a.disp.Snapshot().Applied))
}

func (a *App) sdNotify(send func() error) {
	if err := send(); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	}
}

// shutdown stops background goroutines with a bounded wait, then releases
// resources.
func (a *App) shutdown(sup *rtsup.Supervisor, reason StopReason) {
	a.sdNotify(a.sd.Stopping)
	a.log.Info("stopping", logx.String("reason", string(reason)))

	sup.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sup.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("background goroutines did not stop in time", logx.Int64("active", sup.Active()))
	}
	a.close()
}

// close releases what New acquired. Safe on a partially built App.
func (a *App) close() {
	if a.notif != nil {
		if err := a.notif.Close(); err != nil {
			a.log.Warn("notifier close failed", logx.Err(err))
		}
	}
	if a.drv != nil {
		_ = a.drv.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", logx.Err(err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
