package model

import "time"

// CreateAssetRequest registers a creative work from an already-uploaded blob.
// The blob itself lives in external object storage; this core only references
// it by PayloadRef.
type CreateAssetRequest struct {
	Kind       AssetKind `json:"kind" validate:"required,oneof=video image audio"`
	Title      string    `json:"title" validate:"omitempty,max=200"`
	PayloadRef string    `json:"payloadRef" validate:"required"`
}

// AssetResponse is an asset together with its current head version.
type AssetResponse struct {
	Asset *ContentAsset `json:"asset"`
	Head  *AssetVersion `json:"head"`
}

// VersionHistoryResponse lists an asset's lineage, head first.
type VersionHistoryResponse struct {
	AssetID  string          `json:"assetId"`
	Versions []*AssetVersion `json:"versions"`
}

// SubmitEditRequest asks for an edit against an asset's current head.
type SubmitEditRequest struct {
	AssetID   string        `json:"assetId" validate:"required,uuid"`
	Operation EditOperation `json:"operation" validate:"required"`
}

// SubmitEditResponse acknowledges an accepted (queued) edit job.
type SubmitEditResponse struct {
	JobID     string    `json:"jobId"`
	AssetID   string    `json:"assetId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusResponse reports the state machine position of an edit job.
type JobStatusResponse struct {
	JobID           string     `json:"jobId"`
	AssetID         string     `json:"assetId"`
	Status          JobStatus  `json:"status"`
	Progress        int        `json:"progress"`
	CurrentStep     string     `json:"currentStep,omitempty"`
	Error           *string    `json:"error"`
	ResultVersionID *string    `json:"resultVersionId"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
}

// NewJobStatusResponse maps a job onto its status payload.
func NewJobStatusResponse(job *EditJob) *JobStatusResponse {
	return &JobStatusResponse{
		JobID:           job.ID,
		AssetID:         job.AssetID,
		Status:          job.Status,
		Progress:        job.Progress,
		CurrentStep:     job.CurrentStep,
		Error:           job.Error,
		ResultVersionID: job.ResultVersionID,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
	}
}

// AcquireLockRequest is a human collaborator's request for exclusive editing
// rights on an asset.
type AcquireLockRequest struct {
	TTLSeconds int `json:"ttlSeconds" validate:"omitempty,min=1,max=3600"`
}

// LockResponse describes an active lock.
type LockResponse struct {
	AssetID    string    `json:"assetId"`
	HolderID   string    `json:"holderId"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// NewLockResponse maps a lock onto its API payload.
func NewLockResponse(l *Lock) *LockResponse {
	return &LockResponse{
		AssetID:    l.AssetID,
		HolderID:   l.HolderID,
		AcquiredAt: l.AcquiredAt,
		ExpiresAt:  l.ExpiresAt,
	}
}
