package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framecraft/api/internal/model"
)

// Memory is the in-process backend. It is the default for development and the
// backend the scheduler tests run against.
type Memory struct {
	mu       sync.RWMutex
	assets   map[string]*model.ContentAsset
	versions map[string]*model.AssetVersion
	lineage  map[string][]string // assetID -> version IDs, oldest first
	jobs     map[string]*model.EditJob
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		assets:   make(map[string]*model.ContentAsset),
		versions: make(map[string]*model.AssetVersion),
		lineage:  make(map[string][]string),
		jobs:     make(map[string]*model.EditJob),
	}
}

func (m *Memory) CreateAsset(_ context.Context, asset *model.ContentAsset, root *model.AssetVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[asset.ID]; ok {
		return fmt.Errorf("asset %s already exists", asset.ID)
	}

	a := *asset
	v := *root
	a.HeadVersionID = v.ID
	m.assets[a.ID] = &a
	m.versions[v.ID] = &v
	m.lineage[a.ID] = []string{v.ID}

	asset.HeadVersionID = v.ID
	return nil
}

func (m *Memory) GetAsset(_ context.Context, assetID string) (*model.ContentAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) DeleteAsset(_ context.Context, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[assetID]
	if !ok {
		return fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}
	if a.DeletedAt == nil {
		now := time.Now()
		a.DeletedAt = &now
	}
	return nil
}

func (m *Memory) Append(_ context.Context, assetID, parentVersionID, payloadRef string, op *model.AppliedOperation) (*model.AssetVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}
	if a.HeadVersionID != parentVersionID {
		return nil, fmt.Errorf("append onto %s but head is %s: %w", parentVersionID, a.HeadVersionID, ErrConflict)
	}

	parent := parentVersionID
	v := &model.AssetVersion{
		ID:              uuid.New().String(),
		AssetID:         assetID,
		ParentVersionID: &parent,
		PayloadRef:      payloadRef,
		Operation:       op,
		CreatedAt:       time.Now(),
	}
	m.versions[v.ID] = v
	m.lineage[assetID] = append(m.lineage[assetID], v.ID)
	a.HeadVersionID = v.ID

	cp := *v
	return &cp, nil
}

func (m *Memory) GetVersion(_ context.Context, versionID string) (*model.AssetVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("version %s: %w", versionID, ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (m *Memory) Head(_ context.Context, assetID string) (*model.AssetVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}
	v, ok := m.versions[a.HeadVersionID]
	if !ok {
		return nil, fmt.Errorf("head version %s: %w", a.HeadVersionID, ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (m *Memory) History(_ context.Context, assetID string) ([]*model.AssetVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, ok := m.lineage[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}

	// Head first.
	out := make([]*model.AssetVersion, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *m.versions[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) SaveJob(_ context.Context, job *model.EditJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) GetJob(_ context.Context, jobID string) (*model.EditJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	cp := *j
	return &cp, nil
}
