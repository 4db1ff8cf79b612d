package config

// Config is the daemon configuration. It is parsed once at startup and
// treated as immutable afterwards; components receive it (or a section of
// it) by pointer.
//
// The first five keys are mandatory, everything else has defaults.
type Config struct {
	// Ports lists the GPIO channel of every output, in user-facing order:
	// task files refer to Ports[0] as light 1.
	Ports     []int   `json:"ports"`
	LocalTZ   string  `json:"local_tz"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TaskFile  string  `json:"taskfile"`

	Output    OutputConfig    `json:"output,omitempty"`
	Ephemeris EphemerisConfig `json:"ephemeris,omitempty"`
	Storage   StorageConfig   `json:"storage,omitempty"`
	Loop      LoopConfig      `json:"loop,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
	Notifier  NotifierConfig  `json:"notifier,omitempty"`
	HTTP      HTTPConfig      `json:"http,omitempty"`
	Systemd   SystemdConfig   `json:"systemd,omitempty"`
}

// OutputConfig controls the output driver.
//
// Defaults:
//   - driver: "gpio"
//   - active_low: true (relay boards switch on a LOW level)
//   - settle: "500ms"
type OutputConfig struct {
	Driver    string `json:"driver,omitempty"` // "gpio" | "memory"
	ActiveLow *bool  `json:"active_low,omitempty"`
	// Settle is a Go duration string slept between two successive outputs.
	Settle string `json:"settle,omitempty"`
}

// EphemerisConfig controls the sunrise/sunset provider and its cache.
type EphemerisConfig struct {
	URL            string `json:"url,omitempty"`             // default: https://api.sunrise-sunset.org/json
	MaxAge         string `json:"max_age,omitempty"`         // default: "24h"
	ConnectTimeout string `json:"connect_timeout,omitempty"` // default: "3s"
	ReadTimeout    string `json:"read_timeout,omitempty"`    // default: "10s"
}

// StorageConfig selects the durable ephemeris cache.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "/var/lib/lights/ephemerides.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "file" (default) | "sqlite"
	Path        string `json:"path,omitempty"`   // default: /tmp/ephemerides.cbor
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// LoopConfig controls the evaluation cadence.
type LoopConfig struct {
	// Schedule is a standard 5-field cron expression. Each tick lands on a
	// whole minute matched by it. Default "* * * * *".
	Schedule string `json:"schedule,omitempty"`
	// WatchTasks re-evaluates as soon as the task file changes instead of
	// waiting for the next tick.
	WatchTasks bool `json:"watch_tasks,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// NotifierConfig lists the extra sinks that receive status changes. The
// log sink is always active.
type NotifierConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Kafka    *KafkaConfig    `json:"kafka,omitempty"`
}

type TelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled"`
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
	Device  string   `json:"device,omitempty"` // message key; default: hostname
}

// HTTPConfig controls the optional read-only status endpoint.
//
// Prefer binding to localhost (e.g. "127.0.0.1:8086").
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}

type SystemdConfig struct {
	// Notify sends READY/STATUS/WATCHDOG messages when running under a
	// Type=notify unit. It is a no-op outside systemd.
	Notify bool `json:"notify"`
}

// mandatoryFields are the top-level keys every config file must carry.
var mandatoryFields = []string{"ports", "local_tz", "latitude", "longitude", "taskfile"}
