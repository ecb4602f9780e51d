package archive

import (
	"context"
	"errors"

	"cmctracker/internal/fetcher"
	"cmctracker/internal/summary"
)

var (
	// ErrNotConfigured indicates the postgres pool was not initialised.
	ErrNotConfigured = errors.New("archive: pool not configured")
	// ErrNotOpen indicates an operation before Open.
	ErrNotOpen = errors.New("archive: store not opened")
)

// Store is the durable, ordered sequence of accepted snapshots for one
// tracked market. Append persists the whole sequence synchronously, so a
// crash loses at most the in-flight tick.
type Store interface {
	// Open prepares the store for a session. In resume mode an existing
	// archive is loaded; otherwise it is moved aside and the session starts
	// empty. Prior data is never silently overwritten.
	Open(ctx context.Context, resume bool) ([]fetcher.Snapshot, error)
	// Load reads the current sequence without any session side effects.
	Load(ctx context.Context) ([]fetcher.Snapshot, error)
	// Append accepts one snapshot and rewrites durable storage.
	Append(ctx context.Context, snap fetcher.Snapshot) error
	// Snapshots returns the in-memory sequence, oldest first.
	Snapshots() []fetcher.Snapshot
	// WriteResult records the end-of-session delta alongside the archive.
	WriteResult(ctx context.Context, delta summary.Delta) error
	// Rotate moves the live archive into its archived location. The data is
	// preserved for later inspection, never deleted.
	Rotate(ctx context.Context) error
}
