package model

import "time"

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status has no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// EditJob is a single requested edit tracked through the
// queued → processing → {completed|failed} state machine. Only the scheduler
// transitions a job; ResultVersionID is set exactly when the job completes.
type EditJob struct {
	ID              string        `json:"id"`
	AssetID         string        `json:"assetId"`
	UserID          string        `json:"userId"`
	Operation       EditOperation `json:"operation"`
	Status          JobStatus     `json:"status"`
	Progress        int           `json:"progress"`
	CurrentStep     string        `json:"currentStep,omitempty"`
	Error           *string       `json:"error,omitempty"`
	ResultVersionID *string       `json:"resultVersionId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	StartedAt       *time.Time    `json:"startedAt,omitempty"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
}
