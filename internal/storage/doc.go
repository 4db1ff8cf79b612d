// Package storage persists the daemon's durable state: a single opaque
// blob (the last known-good ephemeris record) plus the time it was saved.
//
// Drivers:
//   - "file": one file; its modification time is the freshness signal
//   - "sqlite": one row in a SQLite database (modernc.org/sqlite, no cgo)
package storage
