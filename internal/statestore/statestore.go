// Package statestore persists fetched snapshots so a restart inside the
// same cache window can warm-start without touching the object store. This
// is the dashboard-local cache; nothing derived is ever written here.
package statestore

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound is returned by GetSnapshot when no snapshot exists
// for the given cache bucket. Callers should use errors.Is() to check for
// this specific error; it simply means a fresh fetch is needed.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore defines the interface for caching raw fetched datasets
type SnapshotStore interface {
	// SaveSnapshot stores the raw dataset bodies for a cache bucket
	SaveSnapshot(ctx context.Context, bucketTick time.Time, datasets map[string][]byte) error

	// GetSnapshot retrieves the dataset bodies for a cache bucket
	GetSnapshot(ctx context.Context, bucketTick time.Time) (map[string][]byte, error)

	// Prune removes snapshots for cache buckets older than before
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close shuts down the store
	Close() error
}
