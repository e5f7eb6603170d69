package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/framecraft/api/internal/model"
)

// Redis is the deployed lock manager: one key per asset holding the lock
// record as JSON, expired by Redis itself via PX. Holder checks run inside
// Lua so acquire/release are single atomic round trips.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed lock manager.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func lockKey(assetID string) string { return "lock:" + assetID }

// acquireScript grants the lock when free, extends it for the same holder,
// and returns nil while a different holder's lock is live.
var acquireScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  if cjson.decode(cur)['holderId'] == ARGV[1] then
    redis.call('PEXPIRE', KEYS[1], ARGV[3])
    return cur
  end
  return false
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return ARGV[2]
`)

// releaseScript deletes the lock only when the caller still holds it.
var releaseScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return 1
end
if cjson.decode(cur)['holderId'] == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

func (r *Redis) Acquire(ctx context.Context, assetID, holderID string, ttl time.Duration) (*model.Lock, error) {
	now := time.Now()
	candidate := &model.Lock{
		AssetID:    assetID,
		HolderID:   holderID,
		AcquiredAt: now,
	}
	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}

	stored, err := acquireScript.Run(ctx, r.client,
		[]string{lockKey(assetID)},
		holderID, data, ttl.Milliseconds(),
	).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	var l model.Lock
	if err := json.Unmarshal([]byte(stored), &l); err != nil {
		return nil, fmt.Errorf("unmarshal lock: %w", err)
	}
	l.ExpiresAt = now.Add(ttl)
	return &l, nil
}

func (r *Redis) Release(ctx context.Context, assetID, holderID string) error {
	ok, err := releaseScript.Run(ctx, r.client, []string{lockKey(assetID)}, holderID).Int()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if ok == 0 {
		return ErrNotHolder
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, assetID string) (*model.Lock, error) {
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, lockKey(assetID))
	ttlCmd := pipe.PTTL(ctx, lockKey(assetID))
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoLock
		}
		return nil, fmt.Errorf("get lock: %w", err)
	}

	var l model.Lock
	if err := json.Unmarshal([]byte(getCmd.Val()), &l); err != nil {
		return nil, fmt.Errorf("unmarshal lock: %w", err)
	}
	if ttl := ttlCmd.Val(); ttl > 0 {
		l.ExpiresAt = time.Now().Add(ttl)
	}
	return &l, nil
}
