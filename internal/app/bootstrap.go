package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gardenlights/internal/config"
	"gardenlights/internal/ephemeris"
	"gardenlights/internal/notifier"
	"gardenlights/internal/output"
	logx "gardenlights/pkg/logx"
)

// Options overrides parts of the wiring. Zero values mean "build from config".
type Options struct {
	// DryRun swaps the GPIO driver for the in-memory one.
	DryRun bool
	// ConfigPath is re-read on SIGHUP to apply the logging section.
	ConfigPath string

	Driver  output.Driver
	Fetcher ephemeris.Fetcher
	Now     func() time.Time
	// Logger, when set, is used instead of a logx.Service built from config.
	Logger logx.Logger
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func buildDriver(cfg *config.Config, opts Options, log logx.Logger) (output.Driver, error) {
	if opts.Driver != nil {
		return opts.Driver, nil
	}
	settle, err := config.ParseDurationOrDefault("output.settle", cfg.Output.Settle, output.DefaultSettle)
	if err != nil {
		return nil, configError(err)
	}
	if opts.DryRun || strings.EqualFold(strings.TrimSpace(cfg.Output.Driver), "memory") {
		log.Info("using in-memory output driver", logx.Bool("dry_run", opts.DryRun))
		return output.NewMemory(cfg.Ports, settle), nil
	}
	drv, err := output.NewGPIO(cfg.Ports, cfg.Output.IsActiveLow(), settle, log)
	if err != nil {
		return nil, &ExitError{Code: ExitFailure, Err: fmt.Errorf("gpio init: %w", err)}
	}
	return drv, nil
}

func buildFetcher(cfg *config.Config, opts Options) (ephemeris.Fetcher, error) {
	if opts.Fetcher != nil {
		return opts.Fetcher, nil
	}
	ec := cfg.Ephemeris
	connect, err := config.ParseDurationOrDefault("ephemeris.connect_timeout", ec.ConnectTimeout, ephemeris.DefaultConnectTimeout)
	if err != nil {
		return nil, configError(err)
	}
	read, err := config.ParseDurationOrDefault("ephemeris.read_timeout", ec.ReadTimeout, ephemeris.DefaultReadTimeout)
	if err != nil {
		return nil, configError(err)
	}
	return ephemeris.NewHTTPFetcher(ec.URL, connect, read), nil
}

// deviceName identifies this controller in remote notifications.
func deviceName(cfg *config.Config) string {
	if k := cfg.Notifier.Kafka; k != nil && strings.TrimSpace(k.Device) != "" {
		return strings.TrimSpace(k.Device)
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "lights"
}

func buildSinks(cfg *config.Config, device string) ([]notifier.Sink, error) {
	var sinks []notifier.Sink
	if tc := cfg.Notifier.Telegram; tc != nil && tc.Enabled {
		timeout, err := config.ParseDurationOrDefault("notifier.telegram.timeout", tc.Timeout, 8*time.Second)
		if err != nil {
			return nil, err
		}
		tg, err := notifier.NewTelegram(notifier.TelegramConfig{
			Token:      tc.Token,
			ChatID:     tc.ChatID,
			ThreadID:   tc.ThreadID,
			RatePerSec: tc.RatePerSec,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("notifier.telegram: %w", err)
		}
		sinks = append(sinks, tg)
	}
	if kc := cfg.Notifier.Kafka; kc != nil && kc.Enabled {
		k, err := notifier.NewKafka(notifier.KafkaConfig{
			Brokers: kc.Brokers,
			Topic:   kc.Topic,
			Device:  device,
		})
		if err != nil {
			return nil, fmt.Errorf("notifier.kafka: %w", err)
		}
		sinks = append(sinks, k)
	}
	return sinks, nil
}
