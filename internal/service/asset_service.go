package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/framecraft/api/internal/model"
	"github.com/framecraft/api/internal/store"
)

// AssetService handles asset registration and lineage queries. Version
// creation for edits stays with the scheduler; this service only mints the
// root version at upload time.
type AssetService struct {
	store store.Store
}

func NewAssetService(st store.Store) *AssetService {
	return &AssetService{store: st}
}

// Create registers a creative work from an uploaded blob reference and mints
// its root version (the original upload: nil parent, nil operation).
func (s *AssetService) Create(ctx context.Context, ownerID string, req *model.CreateAssetRequest) (*model.AssetResponse, error) {
	now := time.Now()
	asset := &model.ContentAsset{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Kind:      req.Kind,
		Title:     req.Title,
		CreatedAt: now,
	}
	root := &model.AssetVersion{
		ID:         uuid.New().String(),
		AssetID:    asset.ID,
		PayloadRef: req.PayloadRef,
		CreatedAt:  now,
	}

	if err := s.store.CreateAsset(ctx, asset, root); err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return &model.AssetResponse{Asset: asset, Head: root}, nil
}

// Get returns an asset with its current head version.
func (s *AssetService) Get(ctx context.Context, assetID string) (*model.AssetResponse, error) {
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	head, err := s.store.Head(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &model.AssetResponse{Asset: asset, Head: head}, nil
}

// HeadVersion returns the asset's current head version.
func (s *AssetService) HeadVersion(ctx context.Context, assetID string) (*model.AssetVersion, error) {
	return s.store.Head(ctx, assetID)
}

// History returns the asset's lineage, head first.
func (s *AssetService) History(ctx context.Context, assetID string) (*model.VersionHistoryResponse, error) {
	versions, err := s.store.History(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &model.VersionHistoryResponse{AssetID: assetID, Versions: versions}, nil
}

// GetVersion returns one version by ID.
func (s *AssetService) GetVersion(ctx context.Context, versionID string) (*model.AssetVersion, error) {
	return s.store.GetVersion(ctx, versionID)
}

// Delete soft-deletes an asset. Only the owner may delete. Jobs still queued
// for the asset fail fast when the scheduler dequeues them.
func (s *AssetService) Delete(ctx context.Context, assetID, userID string) error {
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.OwnerID != userID {
		return ErrNotOwner
	}
	return s.store.DeleteAsset(ctx, assetID)
}
