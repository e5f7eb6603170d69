// Package queue holds pending edit jobs per asset in submission order. The
// scheduler pops strictly FIFO; a job bounced by lock contention goes back to
// the FRONT of its asset's queue so submission order survives the retry.
package queue

import "sync"

// PerAsset is a set of independent FIFO queues of job IDs, one per asset.
type PerAsset struct {
	mu      sync.Mutex
	pending map[string][]string
}

// New creates an empty queue set.
func New() *PerAsset {
	return &PerAsset{pending: make(map[string][]string)}
}

// Push appends a job to the back of an asset's queue and returns the new
// queue length.
func (q *PerAsset) Push(assetID, jobID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[assetID] = append(q.pending[assetID], jobID)
	return len(q.pending[assetID])
}

// PushFront returns a job to the front of its asset's queue, ahead of every
// later submission.
func (q *PerAsset) PushFront(assetID, jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[assetID] = append([]string{jobID}, q.pending[assetID]...)
}

// Pop removes and returns the oldest job for an asset.
func (q *PerAsset) Pop(assetID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := q.pending[assetID]
	if len(jobs) == 0 {
		return "", false
	}
	jobID := jobs[0]
	if len(jobs) == 1 {
		delete(q.pending, assetID)
	} else {
		q.pending[assetID] = jobs[1:]
	}
	return jobID, true
}

// Len returns how many jobs wait for an asset.
func (q *PerAsset) Len(assetID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending[assetID])
}
