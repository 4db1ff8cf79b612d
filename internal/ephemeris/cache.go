package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gardenlights/internal/storage"
	logx "gardenlights/pkg/logx"
)

// DefaultMaxAge is how long a stored record is served without refreshing.
const DefaultMaxAge = 24 * time.Hour

// Cache resolves today's record, hitting the provider at most once per MaxAge.
type Cache struct {
	store   storage.BlobStore
	fetcher Fetcher
	maxAge  time.Duration
	log     logx.Logger

	now func() time.Time
}

type Option func(*Cache)

func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

func WithLogger(log logx.Logger) Option { return func(c *Cache) { c.log = log } }

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func NewCache(store storage.BlobStore, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		fetcher: fetcher,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log.IsZero() {
		c.log = logx.Nop()
	}
	return c
}

// Resolve returns today's record for at, rendered in loc.
func (c *Cache) Resolve(ctx context.Context, at Coordinate, loc *time.Location) (Record, error) {
	now := c.now()

	stored, savedAt, haveStored := c.loadStored(ctx)
	if haveStored && now.Sub(savedAt) < c.maxAge {
		return stored.In(loc), nil
	}

	c.log.Info("download ephemerides", logx.String("at", at.String()))
	fresh, err := c.fetcher.Fetch(ctx, at, now.In(loc))
	if err != nil {
		if !haveStored {
			c.log.Error("ephemerides fetch failed and no cache exists", logx.Err(err))
			return Record{}, fmt.Errorf("%w: %v", ErrNoEphemeris, err)
		}
		c.log.Error("ephemerides fetch failed; using last stored values",
			logx.Err(err),
			logx.String("date", stored.Date),
			logx.Duration("age", now.Sub(savedAt)),
		)
		return stored.In(loc), nil
	}

	for k, t := range fresh.Events {
		fresh.Events[k] = t.In(loc)
	}
	blob, err := Marshal(fresh)
	if err == nil {
		err = c.store.Save(ctx, blob)
	}
	if err != nil {
		c.log.Warn("ephemerides not persisted", logx.Err(err))
	}
	if d, err := fresh.DayLengthDuration(); err == nil {
		c.log.Info("ephemerides updated", logx.String("date", fresh.Date), logx.Duration("day_length", d))
	}
	return fresh.In(loc), nil
}

// loadStored returns the last persisted record, ignoring unreadable blobs.
func (c *Cache) loadStored(ctx context.Context) (Record, time.Time, bool) {
	blob, savedAt, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn("ephemerides cache unreadable", logx.Err(err))
		}
		return Record{}, time.Time{}, false
	}
	rec, err := Unmarshal(blob)
	if err != nil {
		c.log.Warn("ephemerides cache corrupt", logx.Err(err))
		return Record{}, time.Time{}, false
	}
	return rec, savedAt, true
}
