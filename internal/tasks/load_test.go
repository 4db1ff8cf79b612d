package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "gardenlights/pkg/logx"
)

func TestLoaderMissingFile(t *testing.T) {
	t.Parallel()
	called := false
	l := &Loader{
		Path:     filepath.Join(t.TempDir(), "nope.tasks"),
		Channels: channels,
		Ephemeris: func(ctx context.Context) (Lookuper, error) {
			called = true
			return today, nil
		},
	}
	got, err := l.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("Load = %v, %v; want empty, nil", got, err)
	}
	if called {
		t.Fatal("ephemeris resolved for a missing task file")
	}
}

func TestLoaderSelfHeals(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "lights.tasks")
	l := &Loader{Path: path, Channels: channels}

	if got, _ := l.Load(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty schedule, got %v", got)
	}
	if err := os.WriteFile(path, []byte("* 08:00 09:00 *\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := l.Load(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("Load after fix = %v, %v", got, err)
	}
}

func TestLoaderEphemerisError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "lights.tasks")
	if err := os.WriteFile(path, []byte("* 08:00 sunset *\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("no ephemeris")
	l := &Loader{
		Path:      path,
		Channels:  channels,
		Ephemeris: func(ctx context.Context) (Lookuper, error) { return nil, boom },
	}
	if _, err := l.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestWatcherSignalsOnWrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "lights.tasks")
	if err := os.WriteFile(path, []byte("# empty\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(path, logx.Nop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// Writes must be spaced wider than the debounce, or each one would
	// push the signal back again. The first write may land before the
	// watch is registered, so retry a few times.
	for attempt := 0; attempt < 5; attempt++ {
		time.Sleep(300 * time.Millisecond)
		if err := os.WriteFile(path, []byte("* 08:00 09:00 *\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case <-w.C():
			cancel()
			<-done
			return
		case <-time.After(time.Second):
		}
	}
	t.Fatal("no change signal after writing the task file")
}
