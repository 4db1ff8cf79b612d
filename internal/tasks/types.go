package tasks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSyntax covers malformed lines and unresolvable tokens.
	ErrSyntax = errors.New("syntax error")
	// ErrPorts is a light index outside the configured channel list.
	ErrPorts = errors.New("ports error")
)

// Lookuper resolves a symbolic time (e.g. "sunset") to HHMM.
// ephemeris.Record implements it.
type Lookuper interface {
	Lookup(name string) (int, bool)
}

// Weekdays is a set of weekdays, bit 0 = Monday .. bit 6 = Sunday.
type Weekdays uint8

// AllDays is the "*" day set.
const AllDays Weekdays = 1<<7 - 1

// WeekdayOf returns t's weekday in this package's numbering
// (Monday = 0 .. Sunday = 6).
func WeekdayOf(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }

func (w Weekdays) Has(day int) bool {
	if day < 0 || day > 6 {
		return false
	}
	return w&(1<<uint(day)) != 0
}

func (w Weekdays) Days() []int {
	out := make([]int, 0, 7)
	for d := 0; d < 7; d++ {
		if w.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (w Weekdays) String() string {
	if w == AllDays {
		return "*"
	}
	parts := make([]string, 0, 7)
	for _, d := range w.Days() {
		parts = append(parts, strconv.Itoa(d))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Task is one parsed line of the task file.
//
// Start and End are HHMM integers (0..2359). End <= Start means the window
// runs past midnight.
type Task struct {
	Outputs []int // channel identifiers, in the order given
	Start   int
	End     int
	Days    Weekdays

	Line int // 1-based source line
}

func (t Task) String() string {
	return fmt.Sprintf("%v %04d-%04d %s", t.Outputs, t.Start, t.End, t.Days)
}

// ParseError pinpoints the offending task file token.
type ParseError struct {
	File  string
	Line  int
	Field string // "line" | "lights" | "start" | "end" | "days"
	Value string
	Err   error // ErrSyntax or ErrPorts, possibly wrapped
}

func (e *ParseError) Error() string {
	file := e.File
	if file == "" {
		file = "<tasks>"
	}
	return fmt.Sprintf("%s:%d: %s %q: %v", file, e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
