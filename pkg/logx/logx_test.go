package logx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestServiceApplySwapsLevel(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "lights.log")
	svc, log := New(Config{Level: "error", File: FileConfig{Enabled: true, Path: path}})
	defer svc.Close()
	log = log.With(String("comp", "test"))

	log.Info("hidden")
	if log.Enabled(LevelDebug) {
		t.Fatal("debug enabled at error level")
	}

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	if !log.Enabled(LevelDebug) {
		t.Fatal("derived logger did not follow Apply")
	}
	log.Info("shown", Int("light", 2), Err(errors.New("relay stuck")))

	out := readLog(t, path)
	if strings.Contains(out, "hidden") {
		t.Fatalf("info written at error level: %s", out)
	}
	for _, want := range []string{`"message":"shown"`, `"comp":"test"`, `"light":2`, `"err":"relay stuck"`, `"caller":"logx_test.go:`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %s", out, want)
		}
	}
}

func TestZeroAndNop(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() || Nop().IsZero() {
		t.Fatal("IsZero mismatch")
	}
	zero.Error("dropped")
	if zero.Enabled(LevelInfo) {
		t.Fatal("zero logger reports info enabled")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]string{"DEBUG": "debug", " warning ": "warn", "": "info", "verbose": "info", "Error": "error"}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
