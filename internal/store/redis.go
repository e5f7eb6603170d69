package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/framecraft/api/internal/model"
)

// Redis is the deployed backend. Assets, versions, and jobs are JSON blobs;
// the head pointer lives in its own key so Append can compare-and-swap it in
// a single Lua round trip.
type Redis struct {
	client       *redis.Client
	jobRetention time.Duration // 0 keeps job records forever
}

// NewRedis creates a Redis-backed store. jobRetention bounds how long
// finished job records are kept; pass 0 to keep them indefinitely.
func NewRedis(client *redis.Client, jobRetention time.Duration) *Redis {
	return &Redis{client: client, jobRetention: jobRetention}
}

func assetKey(id string) string   { return "asset:" + id }
func headKey(id string) string    { return "asset:" + id + ":head" }
func lineageKey(id string) string { return "asset:" + id + ":lineage" }
func versionKey(id string) string { return "version:" + id }
func jobKey(id string) string     { return "job:" + id }

// appendScript swaps the head pointer only if it still equals the expected
// parent, writing the version record and lineage entry in the same step.
var appendScript = redis.NewScript(`
local head = redis.call('GET', KEYS[1])
if head ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[3])
redis.call('RPUSH', KEYS[3], ARGV[2])
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

func (r *Redis) CreateAsset(ctx context.Context, asset *model.ContentAsset, root *model.AssetVersion) error {
	a := *asset
	a.HeadVersionID = root.ID

	assetData, err := json.Marshal(&a)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}
	versionData, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("marshal root version: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, assetKey(a.ID), assetData, 0)
	pipe.Set(ctx, versionKey(root.ID), versionData, 0)
	pipe.RPush(ctx, lineageKey(a.ID), root.ID)
	pipe.Set(ctx, headKey(a.ID), root.ID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create asset: %w", err)
	}

	asset.HeadVersionID = root.ID
	return nil
}

func (r *Redis) GetAsset(ctx context.Context, assetID string) (*model.ContentAsset, error) {
	data, err := r.client.Get(ctx, assetKey(assetID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}

	var asset model.ContentAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, fmt.Errorf("unmarshal asset: %w", err)
	}

	// The head key is authoritative; the record's copy can lag an append.
	head, err := r.client.Get(ctx, headKey(assetID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get head: %w", err)
	}
	if head != "" {
		asset.HeadVersionID = head
	}
	return &asset, nil
}

func (r *Redis) DeleteAsset(ctx context.Context, assetID string) error {
	asset, err := r.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.DeletedAt == nil {
		now := time.Now()
		asset.DeletedAt = &now
	}

	data, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}
	if err := r.client.Set(ctx, assetKey(assetID), data, 0).Err(); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}

func (r *Redis) Append(ctx context.Context, assetID, parentVersionID, payloadRef string, op *model.AppliedOperation) (*model.AssetVersion, error) {
	if err := r.client.Get(ctx, assetKey(assetID)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
		}
		return nil, fmt.Errorf("get asset: %w", err)
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
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal version: %w", err)
	}

	ok, err := appendScript.Run(ctx, r.client,
		[]string{headKey(assetID), versionKey(v.ID), lineageKey(assetID)},
		parentVersionID, v.ID, data,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}
	if ok == 0 {
		return nil, fmt.Errorf("append onto stale parent %s: %w", parentVersionID, ErrConflict)
	}
	return v, nil
}

func (r *Redis) GetVersion(ctx context.Context, versionID string) (*model.AssetVersion, error) {
	data, err := r.client.Get(ctx, versionKey(versionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("version %s: %w", versionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}

	var v model.AssetVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal version: %w", err)
	}
	return &v, nil
}

func (r *Redis) Head(ctx context.Context, assetID string) (*model.AssetVersion, error) {
	head, err := r.client.Get(ctx, headKey(assetID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
		}
		return nil, fmt.Errorf("get head: %w", err)
	}
	return r.GetVersion(ctx, head)
}

func (r *Redis) History(ctx context.Context, assetID string) ([]*model.AssetVersion, error) {
	ids, err := r.client.LRange(ctx, lineageKey(assetID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get lineage: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}

	out := make([]*model.AssetVersion, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		v, err := r.GetVersion(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Redis) SaveJob(ctx context.Context, job *model.EditJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	var ttl time.Duration
	if r.jobRetention > 0 && job.Status.Terminal() {
		ttl = r.jobRetention
	}
	if err := r.client.Set(ctx, jobKey(job.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (r *Redis) GetJob(ctx context.Context, jobID string) (*model.EditJob, error) {
	data, err := r.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job model.EditJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}
