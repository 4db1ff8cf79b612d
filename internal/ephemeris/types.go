package ephemeris

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNoEphemeris means the provider failed and nothing was ever cached.
	ErrNoEphemeris = errors.New("ephemeris: no cached record and fetch failed")
	// ErrMalformed wraps provider payloads that could not be decoded.
	ErrMalformed = errors.New("ephemeris: malformed response")
)

// DayLengthKey is the provider field carried through without conversion.
const DayLengthKey = "day_length"

// Coordinate is a point on Earth, fixed for the process lifetime.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// Record maps named solar events to absolute instants for one calendar date.
//
// Events keep absolute instants; Lookup renders them in the zone attached
// with In.
type Record struct {
	Date      string               `cbor:"date"`
	Events    map[string]time.Time `cbor:"events"`
	DayLength string               `cbor:"day_length"` // raw provider value

	loc *time.Location
}

// In returns a copy of r whose lookups use loc.
func (r Record) In(loc *time.Location) Record {
	r.loc = loc
	return r
}

// Lookup returns the event's local time of day encoded as HHMM (e.g. 1830).
func (r Record) Lookup(name string) (int, bool) {
	t, ok := r.Events[name]
	if !ok {
		return 0, false
	}
	if r.loc != nil {
		t = t.In(r.loc)
	}
	return t.Hour()*100 + t.Minute(), true
}

// DayLengthDuration interprets the raw day_length as seconds.
func (r Record) DayLengthDuration() (time.Duration, error) {
	secs, err := strconv.ParseInt(r.DayLength, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("day_length %q: %w", r.DayLength, err)
	}
	return time.Duration(secs) * time.Second, nil
}
