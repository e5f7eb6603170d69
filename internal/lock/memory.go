package lock

import (
	"context"
	"sync"
	"time"

	"github.com/framecraft/api/internal/model"
)

// Memory is the in-process lock manager. Expired entries are overwritten on
// the next acquire; there is no sweeper goroutine.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*model.Lock

	// now is swappable for tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory lock manager.
func NewMemory() *Memory {
	return &Memory{
		locks: make(map[string]*model.Lock),
		now:   time.Now,
	}
}

func (m *Memory) Acquire(_ context.Context, assetID, holderID string, ttl time.Duration) (*model.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cur, ok := m.locks[assetID]
	if ok && !cur.Expired(now) && cur.HolderID != holderID {
		return nil, ErrLockHeld
	}

	if ok && !cur.Expired(now) && cur.HolderID == holderID {
		// Re-entrant acquire extends the expiration.
		cur.ExpiresAt = now.Add(ttl)
		cp := *cur
		return &cp, nil
	}

	l := &model.Lock{
		AssetID:    assetID,
		HolderID:   holderID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	m.locks[assetID] = l
	cp := *l
	return &cp, nil
}

func (m *Memory) Release(_ context.Context, assetID, holderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.locks[assetID]
	if !ok || cur.Expired(m.now()) {
		return nil
	}
	if cur.HolderID != holderID {
		return ErrNotHolder
	}
	delete(m.locks, assetID)
	return nil
}

func (m *Memory) Get(_ context.Context, assetID string) (*model.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.locks[assetID]
	if !ok || cur.Expired(m.now()) {
		return nil, ErrNoLock
	}
	cp := *cur
	return &cp, nil
}
