package schedule

import (
	"slices"
	"time"

	"gardenlights/internal/tasks"
)

// State maps a channel to its on (true) / off (false) state.
type State map[int]bool

// Equal compares two states as whole mappings.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		ov, ok := o[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Split partitions the state into off and on channels, both in the order of
// channels. Channels missing from s are skipped.
func (s State) Split(channels []int) (off, on []int) {
	for _, ch := range channels {
		v, ok := s[ch]
		if !ok {
			continue
		}
		if v {
			on = append(on, ch)
		} else {
			off = append(off, ch)
		}
	}
	return off, on
}

// TimeOfDay encodes t as HHMM (e.g. 18:30 -> 1830).
func TimeOfDay(t time.Time) int { return t.Hour()*100 + t.Minute() }

// Evaluate computes the desired state of every channel at now. now must
// already be in the schedule's local zone.
//
// A task is active when its weekday set contains now's weekday and
//
//	start < tod < end      (end + 2400 when end <= start)
//
// with tod always in 0..2359. An overnight window therefore only covers its
// evening part: 22:00-06:00 is on at 23:00 but off at 01:00.
//
// Overlapping tasks are OR-ed: once a channel is on, no task turns it off.
func Evaluate(ts []tasks.Task, now time.Time, channels []int) State {
	desired := make(State, len(channels))
	for _, ch := range channels {
		desired[ch] = false
	}

	tod := TimeOfDay(now)
	day := tasks.WeekdayOf(now)
	for _, t := range ts {
		if !Active(t, tod, day) {
			continue
		}
		for _, ch := range t.Outputs {
			if slices.Contains(channels, ch) {
				desired[ch] = true
			}
		}
	}
	return desired
}

// Active reports whether t covers time of day tod (HHMM) on weekday day.
func Active(t tasks.Task, tod, day int) bool {
	end := t.End
	if end <= t.Start {
		end += 2400
	}
	return t.Start < tod && tod < end && t.Days.Has(day)
}
