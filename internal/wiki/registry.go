package wiki

import (
	"context"
	"time"
)

// Registry tracks the set of configured repositories and gates mutation
// eligibility. Implementations live in internal/registry.
type Registry interface {
	// Get returns the repository or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*Repository, error)

	// List returns all repositories ordered by id.
	List(ctx context.Context) ([]*Repository, error)

	// Add registers a repository. Fails with ErrAlreadyExists on a
	// duplicate id.
	Add(ctx context.Context, repo *Repository) error

	// Update applies the non-nil fields of upd and returns the new state.
	Update(ctx context.Context, id string, upd RepositoryUpdate) (*Repository, error)

	// Remove deletes the registry record. The working tree on disk is not
	// touched here.
	Remove(ctx context.Context, id string) error

	// RecordSyncResult stores the outcome of a sync. A failed sync is
	// recorded, not propagated: the registry stays available when a remote
	// is unreachable.
	RecordSyncResult(ctx context.Context, id string, ok bool, at time.Time, errMsg string) error

	// SetSyncStatus sets the transient sync state: SyncPending while a
	// sync is in flight, SyncUnavailable when the clone is missing.
	SetSyncStatus(ctx context.Context, id string, status SyncStatus) error

	// CheckWritable returns the repository if mutations are allowed, or
	// ErrReadOnly / ErrDisabled / ErrNotFound.
	CheckWritable(ctx context.Context, id string) (*Repository, error)

	Close() error
}
