package service

import (
	"context"
	"errors"
	"time"

	"github.com/framecraft/api/internal/lock"
	"github.com/framecraft/api/internal/model"
	"github.com/framecraft/api/internal/notify"
	"github.com/framecraft/api/internal/store"
)

var (
	// ErrNotOwner rejects an action reserved for the asset owner.
	ErrNotOwner = errors.New("not the asset owner")

	// ErrNotAuthorized rejects a lock request the authorizer declined.
	ErrNotAuthorized = errors.New("holder not authorized for this asset")
)

// HolderAuthorizer decides whether a human collaborator may hold an asset's
// lock. Authorization itself belongs to an external subsystem; this is its
// narrow interface.
type HolderAuthorizer interface {
	AuthorizeHolder(ctx context.Context, assetID, userID string) (bool, error)
}

// OwnerAuthorizer permits only the asset owner. The default until a
// collaboration ACL service is wired in.
type OwnerAuthorizer struct {
	Assets store.AssetStore
}

func (a *OwnerAuthorizer) AuthorizeHolder(ctx context.Context, assetID, userID string) (bool, error) {
	asset, err := a.Assets.GetAsset(ctx, assetID)
	if err != nil {
		return false, err
	}
	return asset.OwnerID == userID, nil
}

// LockService handles human-held collaboration locks. Job-held locks never
// pass through here; the scheduler talks to the lock manager directly.
type LockService struct {
	store      store.Store
	locks      lock.Manager
	authorizer HolderAuthorizer
	notifier   notify.Dispatcher
	defaultTTL time.Duration
}

func NewLockService(st store.Store, locks lock.Manager, authorizer HolderAuthorizer, notifier notify.Dispatcher, defaultTTL time.Duration) *LockService {
	return &LockService{
		store:      st,
		locks:      locks,
		authorizer: authorizer,
		notifier:   notifier,
		defaultTTL: defaultTTL,
	}
}

// Acquire takes (or renews) the collaboration lock for a user session.
func (s *LockService) Acquire(ctx context.Context, assetID, userID string, ttl time.Duration) (*model.Lock, error) {
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Deleted() {
		return nil, store.ErrAssetDeleted
	}

	ok, err := s.authorizer.AuthorizeHolder(ctx, assetID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	l, err := s.locks.Acquire(ctx, assetID, userID, ttl)
	if errors.Is(err, lock.ErrLockHeld) {
		s.notifier.Dispatch(ctx, notify.Event{
			Type:    notify.EventLockContended,
			UserID:  userID,
			AssetID: assetID,
			Message: "asset is being edited by someone else",
		})
		return nil, err
	}
	return l, err
}

// Release drops the user's collaboration lock.
func (s *LockService) Release(ctx context.Context, assetID, userID string) error {
	return s.locks.Release(ctx, assetID, userID)
}

// Get inspects the live lock on an asset.
func (s *LockService) Get(ctx context.Context, assetID string) (*model.Lock, error) {
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.locks.Get(ctx, assetID)
}
