package model

import "time"

// AssetKind identifies the media type of a creative work
type AssetKind string

const (
	AssetKindVideo AssetKind = "video"
	AssetKindImage AssetKind = "image"
	AssetKindAudio AssetKind = "audio"
)

var ValidAssetKinds = []AssetKind{
	AssetKindVideo, AssetKindImage, AssetKindAudio,
}

// ContentAsset represents a single creative work. The asset record itself is
// never edited in place; every edit appends an AssetVersion and advances
// HeadVersionID.
type ContentAsset struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"ownerId"`
	Kind          AssetKind  `json:"kind"`
	Title         string     `json:"title,omitempty"`
	HeadVersionID string     `json:"headVersionId"`
	CreatedAt     time.Time  `json:"createdAt"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
}

// Deleted reports whether the asset has been soft-deleted.
func (a *ContentAsset) Deleted() bool {
	return a.DeletedAt != nil
}

// AssetVersion is an immutable snapshot in an asset's edit lineage. Versions
// form a singly-linked chain through ParentVersionID, rooted at the original
// upload (nil parent, nil operation).
type AssetVersion struct {
	ID              string            `json:"id"`
	AssetID         string            `json:"assetId"`
	ParentVersionID *string           `json:"parentVersionId"`
	PayloadRef      string            `json:"payloadRef"`
	Operation       *AppliedOperation `json:"operation,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// Lock is an exclusivity grant on one asset. The holder is either a job ID
// (scheduler-driven edits) or a user ID (live collaboration session).
type Lock struct {
	AssetID    string    `json:"assetId"`
	HolderID   string    `json:"holderId"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Expired reports whether the lock has passed its expiration.
func (l *Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
