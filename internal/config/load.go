package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	// Minimal device images often ship without /usr/share/zoneinfo.
	_ "time/tzdata"
)

var (
	ErrNotFound      = errors.New("configuration file not found")
	ErrMissingFields = errors.New("configuration keys are missing")
	ErrInvalid       = errors.New("invalid configuration")
)

// DefaultPath is where the daemon looks for its configuration.
const DefaultPath = "/etc/lights.json"

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw file contents. The path only selects the format.
func Parse(path string, data []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(jb, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var missing []string
	for _, k := range mandatoryFields {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("%w: trailing data", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &cfg, nil
}

// Validate checks values that cannot be expressed by the JSON schema alone.
func (c *Config) Validate() error {
	if len(c.Ports) == 0 {
		return fmt.Errorf("%w: ports: at least one port is required", ErrInvalid)
	}
	seen := make(map[int]struct{}, len(c.Ports))
	for _, p := range c.Ports {
		if p < 0 {
			return fmt.Errorf("%w: ports: negative port %d", ErrInvalid, p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: ports: duplicate port %d", ErrInvalid, p)
		}
		seen[p] = struct{}{}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: local_tz: %v", ErrInvalid, err)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalid, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalid, c.Longitude)
	}
	if strings.TrimSpace(c.TaskFile) == "" {
		return fmt.Errorf("%w: taskfile is empty", ErrInvalid)
	}

	durations := map[string]string{
		"output.settle":             c.Output.Settle,
		"ephemeris.max_age":         c.Ephemeris.MaxAge,
		"ephemeris.connect_timeout": c.Ephemeris.ConnectTimeout,
		"ephemeris.read_timeout":    c.Ephemeris.ReadTimeout,
		"storage.busy_timeout":      c.Storage.BusyTimeout,
	}
	if c.Notifier.Telegram != nil {
		durations["notifier.telegram.timeout"] = c.Notifier.Telegram.Timeout
	}
	names := make([]string, 0, len(durations))
	for k := range durations {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if _, err := ParseDurationField(k, durations[k]); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Output.Driver)) {
	case "", "gpio", "memory":
	default:
		return fmt.Errorf("%w: output.driver: unknown driver %q", ErrInvalid, c.Output.Driver)
	}
	return nil
}

// Location resolves local_tz.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.LocalTZ)
	if name == "" {
		return nil, errors.New("timezone required")
	}
	return time.LoadLocation(name)
}

// IsActiveLow reports the relay polarity (default true).
func (o OutputConfig) IsActiveLow() bool {
	if o.ActiveLow == nil {
		return true
	}
	return *o.ActiveLow
}

// ConsoleEnabled defaults to true when the key is omitted.
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}
