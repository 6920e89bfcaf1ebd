// Package store defines the narrow persistence contract the pipeline and
// matching engine depend on, plus its Postgres and in-memory
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/addislabs/jobsift/internal/posting"
)

// ErrConflict is returned by Insert when a posting with the same
// fingerprint is already stored. Callers must treat it as a duplicate
// detection, not a failure: two channels re-broadcasting the same posting
// may race past the deduplicator.
var ErrConflict = errors.New("posting with this fingerprint already exists")

// ErrUnavailable wraps store connectivity failures so callers can
// distinguish them from normal outcomes and apply their own retry policy.
var ErrUnavailable = errors.New("store unavailable")

// Store is the persistence collaborator contract. All calls are bounded by
// the caller's context.
type Store interface {
	// FindByFingerprint returns the active posting with the given
	// fingerprint, or nil when none is stored.
	FindByFingerprint(ctx context.Context, fingerprint string) (*posting.JobPosting, error)
	// FindRecent returns active postings first seen within the window,
	// newest first.
	FindRecent(ctx context.Context, window time.Duration) ([]*posting.JobPosting, error)
	// FindActive returns every active posting, newest first.
	FindActive(ctx context.Context) ([]*posting.JobPosting, error)
	// Insert persists a posting and returns its id, or ErrConflict when an
	// active posting with the same fingerprint exists.
	Insert(ctx context.Context, p *posting.JobPosting) (string, error)
	// DeactivateOlderThan marks postings older than age inactive and
	// reports how many were affected.
	DeactivateOlderThan(ctx context.Context, age time.Duration) (int, error)
}
