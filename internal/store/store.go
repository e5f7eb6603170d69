// Package store persists assets, their immutable version lineages, and edit
// job records. Two interchangeable backends exist: an in-process memory store
// and a Redis store. Both give the same guarantee the scheduler leans on:
// Append is a compare-and-swap against the asset's head pointer, so version
// history stays linear even if locking were ever bypassed.
package store

import (
	"context"
	"errors"

	"github.com/framecraft/api/internal/model"
)

var (
	// ErrNotFound reports a missing asset, version, or job.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports an Append whose parent is no longer the asset's
	// head. Under correct locking this never fires; when it does, it marks
	// an internal inconsistency and is logged accordingly.
	ErrConflict = errors.New("version conflict")

	// ErrAssetDeleted reports an operation against a soft-deleted asset.
	ErrAssetDeleted = errors.New("asset deleted")
)

// AssetStore owns asset records and their head pointers.
type AssetStore interface {
	// CreateAsset atomically writes the asset together with its root
	// version (the original upload) and points the head at it.
	CreateAsset(ctx context.Context, asset *model.ContentAsset, root *model.AssetVersion) error

	// GetAsset returns the asset, including soft-deleted ones; callers
	// decide whether Deleted() matters for them.
	GetAsset(ctx context.Context, assetID string) (*model.ContentAsset, error)

	// DeleteAsset soft-deletes the asset. Queued jobs for it fail fast at
	// dequeue; the version lineage is retained for external retention
	// tooling to reap.
	DeleteAsset(ctx context.Context, assetID string) error
}

// VersionStore owns the immutable lineage of versions per asset.
type VersionStore interface {
	// Append creates a new version whose parent must equal the asset's
	// current head, and atomically advances the head. Returns ErrConflict
	// if the parent is stale.
	Append(ctx context.Context, assetID, parentVersionID, payloadRef string, op *model.AppliedOperation) (*model.AssetVersion, error)

	// GetVersion returns a version by ID.
	GetVersion(ctx context.Context, versionID string) (*model.AssetVersion, error)

	// Head returns the asset's current head version.
	Head(ctx context.Context, assetID string) (*model.AssetVersion, error)

	// History returns the asset's lineage, head first.
	History(ctx context.Context, assetID string) ([]*model.AssetVersion, error)
}

// JobStore owns edit job records. Jobs are written by the scheduler and read
// by status polling; they are kept after completion for audit.
type JobStore interface {
	SaveJob(ctx context.Context, job *model.EditJob) error
	GetJob(ctx context.Context, jobID string) (*model.EditJob, error)
}

// Store bundles the three persistence concerns a backend implements together.
type Store interface {
	AssetStore
	VersionStore
	JobStore
}
