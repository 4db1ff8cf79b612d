package ephemeris

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gardenlights/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	blob    []byte
	savedAt time.Time
	now     func() time.Time
}

func (s *memStore) Load(ctx context.Context) ([]byte, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob == nil {
		return nil, time.Time{}, storage.ErrNotFound
	}
	return append([]byte(nil), s.blob...), s.savedAt, nil
}

func (s *memStore) Save(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = append([]byte(nil), blob...)
	s.savedAt = s.now()
	return nil
}

func (s *memStore) Close() error { return nil }

type fakeFetcher struct {
	calls int
	rec   Record
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, at Coordinate, date time.Time) (Record, error) {
	f.calls++
	if f.err != nil {
		return Record{}, f.err
	}
	rec := f.rec
	rec.Date = date.Format("2006-01-02")
	rec.Events = make(map[string]time.Time, len(f.rec.Events))
	for k, v := range f.rec.Events {
		rec.Events[k] = v
	}
	return rec, nil
}

func sampleRecord() Record {
	return Record{
		Events: map[string]time.Time{
			"sunrise": time.Date(2026, 6, 21, 4, 44, 52, 0, time.UTC),
			"sunset":  time.Date(2026, 6, 21, 19, 48, 37, 0, time.UTC),
		},
		DayLength: "54225",
	}
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var (
	madrid = mustLoad("Europe/Madrid")
	here   = Coordinate{Latitude: 40.4168, Longitude: -3.7038}
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestCache(f Fetcher) (*Cache, *memStore, *testClock) {
	clk := &testClock{t: time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)}
	st := &memStore{now: clk.Now}
	return NewCache(st, f, WithClock(clk.Now)), st, clk
}

func TestResolveCachesWithinMaxAge(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{rec: sampleRecord()}
	c, _, clk := newTestCache(f)
	ctx := context.Background()

	first, err := c.Resolve(ctx, here, madrid)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	clk.Advance(23 * time.Hour)
	second, err := c.Resolve(ctx, here, madrid)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", f.calls)
	}
	for _, name := range []string{"sunrise", "sunset"} {
		if !first.Events[name].Equal(second.Events[name]) {
			t.Fatalf("%s changed across cache round-trip: %v vs %v", name, first.Events[name], second.Events[name])
		}
	}
	if second.DayLength != "54225" {
		t.Fatalf("DayLength = %q", second.DayLength)
	}
	if hhmm, _ := second.Lookup("sunset"); hhmm != 2148 {
		t.Fatalf("sunset = %d, want 2148 (CEST)", hhmm)
	}
}

func TestResolveRefreshesAfterMaxAge(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{rec: sampleRecord()}
	c, _, clk := newTestCache(f)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, here, madrid); err != nil {
		t.Fatal(err)
	}
	clk.Advance(24 * time.Hour)
	if _, err := c.Resolve(ctx, here, madrid); err != nil {
		t.Fatal(err)
	}
	if f.calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", f.calls)
	}
}

func TestResolveFallsBackToStaleRecord(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{rec: sampleRecord()}
	c, st, clk := newTestCache(f)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, here, madrid); err != nil {
		t.Fatal(err)
	}
	savedAt := st.savedAt
	f.err = errors.New("dial tcp: i/o timeout")
	clk.Advance(72 * time.Hour)

	rec, err := c.Resolve(ctx, here, madrid)
	if err != nil {
		t.Fatalf("Resolve with stale cache: %v", err)
	}
	if hhmm, ok := rec.Lookup("sunrise"); !ok || hhmm != 644 {
		t.Fatalf("sunrise = %d (%v), want 644", hhmm, ok)
	}
	if !st.savedAt.Equal(savedAt) {
		t.Fatal("stale record must not be rewritten")
	}
}

func TestResolveNoCacheFetchFailure(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{err: context.DeadlineExceeded}
	c, _, _ := newTestCache(f)

	_, err := c.Resolve(context.Background(), here, madrid)
	if !errors.Is(err, ErrNoEphemeris) {
		t.Fatalf("err = %v, want ErrNoEphemeris", err)
	}
}

func TestResolveIgnoresCorruptBlob(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{rec: sampleRecord()}
	c, st, clk := newTestCache(f)
	st.blob = []byte{0xff, 0x00}
	st.savedAt = clk.Now()

	if _, err := c.Resolve(context.Background(), here, madrid); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("corrupt cache should force a fetch, calls = %d", f.calls)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()
	rec := sampleRecord()
	rec.Date = "2026-06-21"
	b, err := Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != string(again) {
		t.Fatal("encoding is not deterministic")
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Date != rec.Date || got.DayLength != rec.DayLength || len(got.Events) != len(rec.Events) {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	for k, v := range rec.Events {
		if !got.Events[k].Equal(v) {
			t.Fatalf("%s = %v, want %v", k, got.Events[k], v)
		}
	}
}

func TestDayLengthDuration(t *testing.T) {
	t.Parallel()
	d, err := sampleRecord().DayLengthDuration()
	if err != nil {
		t.Fatal(err)
	}
	if d != 54225*time.Second {
		t.Fatalf("DayLengthDuration = %v", d)
	}
}
