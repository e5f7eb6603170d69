package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/framecraft/api/internal/model"
)

func newAsset(t *testing.T, m *Memory) (*model.ContentAsset, *model.AssetVersion) {
	t.Helper()

	asset := &model.ContentAsset{
		ID:        uuid.New().String(),
		OwnerID:   "user-1",
		Kind:      model.AssetKindVideo,
		CreatedAt: time.Now(),
	}
	root := &model.AssetVersion{
		ID:         uuid.New().String(),
		AssetID:    asset.ID,
		PayloadRef: "blob://uploads/original",
		CreatedAt:  time.Now(),
	}
	if err := m.CreateAsset(context.Background(), asset, root); err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}
	return asset, root
}

func TestCreateAssetSetsHead(t *testing.T) {
	m := NewMemory()
	asset, root := newAsset(t, m)

	got, err := m.GetAsset(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if got.HeadVersionID != root.ID {
		t.Errorf("head = %s, want root %s", got.HeadVersionID, root.ID)
	}

	head, err := m.Head(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if head.ParentVersionID != nil {
		t.Errorf("root version should have nil parent, got %v", *head.ParentVersionID)
	}
	if head.Operation != nil {
		t.Errorf("root version should have nil operation")
	}
}

func TestAppendAdvancesHead(t *testing.T) {
	m := NewMemory()
	asset, root := newAsset(t, m)
	ctx := context.Background()

	op := &model.AppliedOperation{JobID: "j1", Type: model.OpStyleTransfer, Steps: []string{"style_transfer"}}
	v, err := m.Append(ctx, asset.ID, root.ID, "blob://edits/v1", op)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if v.ParentVersionID == nil || *v.ParentVersionID != root.ID {
		t.Errorf("new version parent = %v, want %s", v.ParentVersionID, root.ID)
	}

	head, err := m.Head(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if head.ID != v.ID {
		t.Errorf("head = %s, want %s", head.ID, v.ID)
	}

	// The previous head is still retrievable, unchanged.
	prev, err := m.GetVersion(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetVersion(root) failed: %v", err)
	}
	if prev.PayloadRef != root.PayloadRef {
		t.Errorf("root payload changed: %s", prev.PayloadRef)
	}
}

func TestAppendStaleParentConflicts(t *testing.T) {
	m := NewMemory()
	asset, root := newAsset(t, m)
	ctx := context.Background()

	if _, err := m.Append(ctx, asset.ID, root.ID, "blob://edits/v1", nil); err != nil {
		t.Fatalf("first append failed: %v", err)
	}

	// Appending onto the old head again must conflict.
	if _, err := m.Append(ctx, asset.ID, root.ID, "blob://edits/v2", nil); !errors.Is(err, ErrConflict) {
		t.Errorf("stale append = %v, want ErrConflict", err)
	}

	// The failed append left no trace.
	history, err := m.History(ctx, asset.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestHistoryHeadFirst(t *testing.T) {
	m := NewMemory()
	asset, root := newAsset(t, m)
	ctx := context.Background()

	v1, _ := m.Append(ctx, asset.ID, root.ID, "blob://edits/v1", nil)
	v2, _ := m.Append(ctx, asset.ID, v1.ID, "blob://edits/v2", nil)

	history, err := m.History(ctx, asset.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	want := []string{v2.ID, v1.ID, root.ID}
	if len(history) != len(want) {
		t.Fatalf("history length = %d, want %d", len(history), len(want))
	}
	for i, id := range want {
		if history[i].ID != id {
			t.Errorf("history[%d] = %s, want %s", i, history[i].ID, id)
		}
	}
}

func TestNotFoundErrors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.GetAsset(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAsset = %v, want ErrNotFound", err)
	}
	if _, err := m.GetVersion(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVersion = %v, want ErrNotFound", err)
	}
	if _, err := m.GetJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob = %v, want ErrNotFound", err)
	}
	if _, err := m.Append(ctx, "missing", "v0", "ref", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Append = %v, want ErrNotFound", err)
	}
}

func TestDeleteAssetIsSoft(t *testing.T) {
	m := NewMemory()
	asset, root := newAsset(t, m)
	ctx := context.Background()

	if err := m.DeleteAsset(ctx, asset.ID); err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}

	got, err := m.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset after delete failed: %v", err)
	}
	if !got.Deleted() {
		t.Error("asset not marked deleted")
	}

	// Lineage survives for external retention tooling.
	if _, err := m.GetVersion(ctx, root.ID); err != nil {
		t.Errorf("version gone after soft delete: %v", err)
	}
}

func TestJobRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := &model.EditJob{
		ID:        uuid.New().String(),
		AssetID:   "a1",
		UserID:    "user-1",
		Operation: model.EditOperation{Type: model.OpAutoEnhance},
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	if err := m.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	// Mutating the caller's copy must not affect the stored record.
	job.Status = model.JobStatusFailed

	got, err := m.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != model.JobStatusQueued {
		t.Errorf("stored status = %s, want queued", got.Status)
	}
}
