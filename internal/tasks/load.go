package tasks

import (
	"bytes"
	"context"
	"os"

	logx "gardenlights/pkg/logx"
)

// Loader re-reads the task file from scratch on every call, so edits apply
// on the next tick without a restart.
type Loader struct {
	Path     string
	Channels []int
	// Ephemeris is called only once the task file has been read, so a
	// missing task file never touches the ephemeris provider.
	Ephemeris func(ctx context.Context) (Lookuper, error)
	Log       logx.Logger
}

// Load returns the current schedule.
//
// A missing or unreadable file is not an error: it yields an empty schedule
// and is logged, and the next call tries again. Ephemeris failures and
// *ParseError are returned as-is and are meant to be fatal.
func (l *Loader) Load(ctx context.Context) ([]Task, error) {
	log := l.Log
	if log.IsZero() {
		log = logx.Nop()
	}

	src, err := os.ReadFile(l.Path)
	if err != nil {
		log.Error("task file not readable", logx.String("path", l.Path), logx.Err(err))
		return nil, nil
	}

	var ephem Lookuper
	if l.Ephemeris != nil {
		ephem, err = l.Ephemeris(ctx)
		if err != nil {
			return nil, err
		}
	}

	out, err := Parse(bytes.NewReader(src), l.Path, l.Channels, ephem)
	if err != nil {
		return nil, err
	}
	log.Debug("tasks loaded", logx.String("path", l.Path), logx.Int("count", len(out)))
	return out, nil
}
