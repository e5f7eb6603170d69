// Package scheduler drives edit jobs through the
// queued → processing → {completed|failed} state machine. Jobs for one asset
// run strictly in submission order; jobs for different assets run
// concurrently on a bounded worker pool. Every mutation of an asset happens
// under that asset's lock, and the resulting version is appended with a
// head compare-and-swap as the final backstop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/framecraft/api/internal/executor"
	"github.com/framecraft/api/internal/lock"
	"github.com/framecraft/api/internal/model"
	"github.com/framecraft/api/internal/notify"
	"github.com/framecraft/api/internal/queue"
	"github.com/framecraft/api/internal/store"
)

// Failure codes surfaced over the WebSocket error frame.
const (
	CodeExecutionFailed  = "EXECUTION_FAILED"
	CodeTimeout          = "TIMEOUT"
	CodeVersionConflict  = "VERSION_CONFLICT"
	CodeAssetUnavailable = "ASSET_UNAVAILABLE"
)

// errLockExpired marks a job whose lock lapsed mid-processing.
var errLockExpired = errors.New("lock expired before the edit completed")

// Broadcaster pushes live job updates to subscribers. The websocket hub
// implements it; tests plug in a no-op.
type Broadcaster interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// NopBroadcaster discards all updates.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastProgress(string, int, model.JobStatus, string) {}
func (NopBroadcaster) BroadcastComplete(string, interface{})                  {}
func (NopBroadcaster) BroadcastError(string, string, string)                  {}

// Config bounds the scheduler's concurrency and lock behavior.
type Config struct {
	// Workers bounds system-wide concurrent edit execution.
	Workers int

	// LockTTL is the lease a job takes on its asset; it is renewed on
	// every progress update, so only a stalled edit times out.
	LockTTL time.Duration

	// RetryBackoff is how long a job bounced by a collaborator's lock
	// waits before the next acquisition attempt.
	RetryBackoff time.Duration
}

// Scheduler owns job state transitions. Nothing else writes job status, head
// pointers, or job-held locks.
type Scheduler struct {
	store    store.Store
	locks    lock.Manager
	queue    *queue.PerAsset
	exec     executor.Executor
	notifier notify.Dispatcher
	hub      Broadcaster
	log      zerolog.Logger
	cfg      Config

	dispatch chan string

	mu        sync.Mutex
	active    map[string]bool
	contended map[string]bool

	baseCtx  context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// New creates a scheduler. Call Run to start the worker pool.
func New(st store.Store, locks lock.Manager, exec executor.Executor, notifier notify.Dispatcher, hub Broadcaster, log zerolog.Logger, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.RetryBackoff > cfg.LockTTL {
		cfg.RetryBackoff = cfg.LockTTL
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     st,
		locks:     locks,
		queue:     queue.New(),
		exec:      exec,
		notifier:  notifier,
		hub:       hub,
		log:       log,
		cfg:       cfg,
		dispatch:  make(chan string, 1024),
		active:    make(map[string]bool),
		contended: make(map[string]bool),
		baseCtx:   baseCtx,
		cancel:    cancel,
		quit:      make(chan struct{}),
	}
}

// Submit validates the operation, creates the job in state queued, and
// places it at the back of the asset's FIFO queue. Validation failures are
// returned synchronously and never produce a job.
func (s *Scheduler) Submit(ctx context.Context, assetID, userID string, op model.EditOperation) (*model.EditJob, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Deleted() {
		return nil, fmt.Errorf("asset %s: %w", assetID, store.ErrAssetDeleted)
	}

	job := &model.EditJob{
		ID:        uuid.New().String(),
		AssetID:   assetID,
		UserID:    userID,
		Operation: op,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.queue.Push(assetID, job.ID)
	s.signal(assetID)

	s.log.Info().
		Str("job_id", job.ID).
		Str("asset_id", assetID).
		Str("operation", string(op.Type)).
		Msg("edit job queued")
	return job, nil
}

// GetJob returns a job for status polling.
func (s *Scheduler) GetJob(ctx context.Context, jobID string) (*model.EditJob, error) {
	return s.store.GetJob(ctx, jobID)
}

// Run starts the worker pool.
func (s *Scheduler) Run() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	s.log.Info().Int("workers", s.cfg.Workers).Msg("scheduler started")
}

// Shutdown waits for in-flight jobs to finish; when ctx expires first, the
// remaining executions are cancelled.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.quit) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// signal wakes a worker for an asset. The dispatch channel is buffered; when
// it is momentarily full the wakeup is retried instead of dropped.
func (s *Scheduler) signal(assetID string) {
	select {
	case s.dispatch <- assetID:
	default:
		time.AfterFunc(s.cfg.RetryBackoff, func() { s.signal(assetID) })
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case assetID := <-s.dispatch:
			s.runAsset(assetID)
		}
	}
}

// runAsset drives at most one job for the asset. The active guard is what
// serializes an asset's jobs: a second worker woken for the same asset backs
// off immediately, and the finishing worker re-signals while work remains.
func (s *Scheduler) runAsset(assetID string) {
	s.mu.Lock()
	if s.active[assetID] {
		s.mu.Unlock()
		return
	}
	s.active[assetID] = true
	s.mu.Unlock()

	deferred := false
	defer func() {
		s.mu.Lock()
		delete(s.active, assetID)
		remaining := s.queue.Len(assetID)
		s.mu.Unlock()
		// A deferred job owns its own wakeup via deferJob's backoff timer;
		// re-signaling here would pop the same blocked job straight back.
		if remaining > 0 && !deferred {
			s.signal(assetID)
		}
	}()

	jobID, ok := s.queue.Pop(assetID)
	if !ok {
		return
	}
	deferred = s.processJob(s.baseCtx, assetID, jobID)
}

// processJob runs one dequeued job to a terminal state. It reports true when
// the job was deferred by a held lock instead, so the caller leaves the
// wakeup to the backoff timer.
func (s *Scheduler) processJob(ctx context.Context, assetID, jobID string) bool {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("dequeued job not found")
		return false
	}

	// Fail fast when the asset disappeared while the job sat queued.
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil || asset.Deleted() {
		s.failJob(ctx, job, CodeAssetUnavailable, "asset is no longer available")
		return false
	}

	lk, err := s.locks.Acquire(ctx, assetID, job.ID, s.cfg.LockTTL)
	if errors.Is(err, lock.ErrLockHeld) {
		s.deferJob(ctx, job)
		return true
	}
	if err != nil {
		s.failJob(ctx, job, CodeExecutionFailed, fmt.Sprintf("lock acquisition failed: %v", err))
		return false
	}

	s.mu.Lock()
	delete(s.contended, job.ID)
	s.mu.Unlock()

	now := time.Now()
	job.Status = model.JobStatusProcessing
	job.StartedAt = &now
	if err := s.store.SaveJob(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist processing transition")
	}
	s.hub.BroadcastProgress(job.ID, job.Progress, job.Status, "")

	head, err := s.store.Head(ctx, assetID)
	if err != nil {
		s.failJob(ctx, job, CodeAssetUnavailable, fmt.Sprintf("head version unavailable: %v", err))
		return false
	}

	steps := job.Operation.Steps()
	srcRef := head.PayloadRef
	for i, step := range steps {
		res, renewed, err := s.runStep(ctx, job, asset.Kind, lk, step, srcRef, i, len(steps))
		lk = renewed
		if err != nil {
			if errors.Is(err, errLockExpired) {
				s.failJob(ctx, job, CodeTimeout, errLockExpired.Error())
			} else {
				// Collaborator failure text goes onto the job verbatim.
				s.failJob(ctx, job, CodeExecutionFailed, err.Error())
			}
			return false
		}
		srcRef = res.PayloadRef
	}

	version, err := s.store.Append(ctx, assetID, head.ID, srcRef, job.Operation.Applied(job.ID))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Someone advanced the head while we held the lock. That
			// means the locking invariant was bypassed; the CAS kept
			// the history linear, but it needs eyes.
			s.log.Error().
				Str("job_id", job.ID).
				Str("asset_id", assetID).
				Str("expected_parent", head.ID).
				Msg("version conflict under held lock")
			s.failJob(ctx, job, CodeVersionConflict, "internal version conflict, asset left at previous version")
			return false
		}
		s.failJob(ctx, job, CodeExecutionFailed, fmt.Sprintf("version append failed: %v", err))
		return false
	}

	s.completeJob(ctx, job, version)
	return false
}

// deferJob keeps a lock-blocked job queued: back to the FRONT of the queue so
// FIFO holds, then retry after backoff. Collaboration locks take precedence;
// the job is never failed for contention.
func (s *Scheduler) deferJob(ctx context.Context, job *model.EditJob) {
	s.queue.PushFront(job.AssetID, job.ID)

	s.mu.Lock()
	firstBounce := !s.contended[job.ID]
	s.contended[job.ID] = true
	s.mu.Unlock()

	if firstBounce {
		s.notifier.Dispatch(ctx, notify.Event{
			Type:    notify.EventLockContended,
			UserID:  job.UserID,
			AssetID: job.AssetID,
			JobID:   job.ID,
			Message: "edit is waiting for an active collaboration session to finish",
		})
		s.log.Info().
			Str("job_id", job.ID).
			Str("asset_id", job.AssetID).
			Msg("job deferred, asset locked by collaborator")
	}

	assetID := job.AssetID
	time.AfterFunc(s.cfg.RetryBackoff, func() { s.signal(assetID) })
}

type stepOutcome struct {
	res *executor.Result
	err error
}

// runStep runs one pipeline step and tracks its progress. Each progress
// update renews the asset lock; if the lock cannot be renewed or expires with
// no progress, the execution is cancelled and the step fails with
// errLockExpired.
func (s *Scheduler) runStep(ctx context.Context, job *model.EditJob, kind model.AssetKind, lk *model.Lock, step, srcRef string, index, total int) (*executor.Result, *model.Lock, error) {
	stepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan executor.Progress, 16)
	done := make(chan stepOutcome, 1)

	go func() {
		res, err := s.exec.Execute(stepCtx, &executor.Request{
			Step:             step,
			Operation:        job.Operation,
			AssetKind:        kind,
			SourcePayloadRef: srcRef,
		}, updates)
		done <- stepOutcome{res: res, err: err}
	}()

	expiry := time.NewTimer(time.Until(lk.ExpiresAt))
	defer expiry.Stop()

	for {
		select {
		case p := <-updates:
			renewed, err := s.locks.Acquire(ctx, job.AssetID, job.ID, s.cfg.LockTTL)
			if err != nil {
				cancel()
				<-done
				return nil, lk, errLockExpired
			}
			lk = renewed
			if !expiry.Stop() {
				select {
				case <-expiry.C:
				default:
				}
			}
			expiry.Reset(time.Until(lk.ExpiresAt))

			s.recordProgress(ctx, job, p, index, total)

		case o := <-done:
			if o.err != nil {
				return nil, lk, o.err
			}
			return o.res, lk, nil

		case <-expiry.C:
			cancel()
			<-done
			return nil, lk, errLockExpired
		}
	}
}

// recordProgress maps a step-local percentage onto the job's overall 0-100
// range and clamps it monotonic, so a misbehaving executor can never move a
// job backwards.
func (s *Scheduler) recordProgress(ctx context.Context, job *model.EditJob, p executor.Progress, index, total int) {
	pct := p.Percent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	overall := (index*100 + pct) / total
	if overall > job.Progress {
		job.Progress = overall
	}
	job.CurrentStep = p.Step

	if err := s.store.SaveJob(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to persist progress")
	}
	s.hub.BroadcastProgress(job.ID, job.Progress, job.Status, job.CurrentStep)
}

func (s *Scheduler) completeJob(ctx context.Context, job *model.EditJob, version *model.AssetVersion) {
	now := time.Now()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.CurrentStep = ""
	job.ResultVersionID = &version.ID
	job.CompletedAt = &now

	if err := s.store.SaveJob(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist completion")
	}
	s.releaseJobLock(ctx, job)

	s.hub.BroadcastComplete(job.ID, version)
	s.notifier.Dispatch(ctx, notify.Event{
		Type:    notify.EventJobCompleted,
		UserID:  job.UserID,
		AssetID: job.AssetID,
		JobID:   job.ID,
		Message: fmt.Sprintf("%s finished, new version %s", job.Operation.Type, version.ID),
	})

	s.log.Info().
		Str("job_id", job.ID).
		Str("asset_id", job.AssetID).
		Str("version_id", version.ID).
		Msg("edit job completed")
}

// failJob records the error on the job and releases the lock. The asset's
// head is left untouched; callers observing the asset still see the
// previous version.
func (s *Scheduler) failJob(ctx context.Context, job *model.EditJob, code, msg string) {
	s.mu.Lock()
	delete(s.contended, job.ID)
	s.mu.Unlock()

	now := time.Now()
	job.Status = model.JobStatusFailed
	job.CurrentStep = ""
	job.Error = &msg
	job.CompletedAt = &now

	if err := s.store.SaveJob(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist failure")
	}
	s.releaseJobLock(ctx, job)

	s.hub.BroadcastError(job.ID, code, msg)
	s.notifier.Dispatch(ctx, notify.Event{
		Type:    notify.EventJobFailed,
		UserID:  job.UserID,
		AssetID: job.AssetID,
		JobID:   job.ID,
		Message: msg,
	})

	s.log.Warn().
		Str("job_id", job.ID).
		Str("asset_id", job.AssetID).
		Str("code", code).
		Str("error", msg).
		Msg("edit job failed")
}

func (s *Scheduler) releaseJobLock(ctx context.Context, job *model.EditJob) {
	err := s.locks.Release(ctx, job.AssetID, job.ID)
	if err != nil && !errors.Is(err, lock.ErrNotHolder) {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("lock release failed")
	}
}
