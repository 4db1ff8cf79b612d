package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Load when nothing has been saved yet.
	ErrNotFound = errors.New("storage: no stored blob")
	ErrClosed   = errors.New("storage: closed")
)

// Config configures storage.
//
// If Driver is empty it defaults to "file".
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DefaultPath is where the file driver keeps the cached record.
const DefaultPath = "/tmp/ephemerides.cbor"

// BlobStore holds one blob. Single writer, single reader.
type BlobStore interface {
	Load(ctx context.Context) (blob []byte, savedAt time.Time, err error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}
