// Package lock arbitrates exclusive mutation rights on assets. A holder is
// either a scheduler job (holder = job ID) or a live collaborator session
// (holder = user ID). At most one non-expired lock exists per asset; expiry
// is enforced lazily on every acquisition attempt rather than by a sweeper,
// so a crashed holder can never block an asset past its TTL.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/framecraft/api/internal/model"
)

var (
	// ErrLockHeld reports that a different, non-expired holder owns the
	// lock. Recoverable: retry after backoff or after the TTL lapses.
	ErrLockHeld = errors.New("lock held by another holder")

	// ErrNotHolder reports a release attempted while a different holder's
	// lock is active. Releasing when no lock is held is a no-op instead.
	ErrNotHolder = errors.New("lock held by a different holder")

	// ErrNoLock reports that no live lock exists on the asset.
	ErrNoLock = errors.New("no lock held")
)

// Manager grants and revokes asset locks.
type Manager interface {
	// Acquire takes the lock for holderID, or extends it when holderID
	// already owns it (re-entrant). Fails with ErrLockHeld while another
	// holder's lock is live.
	Acquire(ctx context.Context, assetID, holderID string, ttl time.Duration) (*model.Lock, error)

	// Release drops holderID's lock. No-op if no live lock exists;
	// ErrNotHolder if another holder's lock is active.
	Release(ctx context.Context, assetID, holderID string) error

	// Get returns the live lock on an asset, or ErrNoLock if none.
	Get(ctx context.Context, assetID string) (*model.Lock, error)
}
