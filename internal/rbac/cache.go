package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix      = "rbac:role_permissions:"
	generationKeyPrefix = "rbac:role_generation:"
	globalGenerationKey = generationKeyPrefix + "all"
)

// storeIfCurrent writes KEYS[1] only while the role and global generations
// still equal the values read before the load started.
var storeIfCurrent = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then return 0 end
if (redis.call('GET', KEYS[3]) or '0') ~= ARGV[2] then return 0 end
redis.call('SET', KEYS[1], ARGV[3], 'PX', ARGV[4])
return 1
`)

type generation struct {
	role, global string
}

// CachedResolver memoizes permission sets per role in Redis for a bounded TTL.
// Concurrent misses for the same role share one storage read; different roles
// never wait on each other.
type CachedResolver struct {
	next   PermissionResolver
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedResolver wraps next. With a nil client or a non-positive ttl every
// call goes straight to next.
func NewCachedResolver(next PermissionResolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{next: next, client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether memoization is active.
func (c *CachedResolver) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Resolve returns the cached set for roleID or loads it from the wrapped resolver.
func (c *CachedResolver) Resolve(ctx context.Context, roleID int64) (PermissionSet, error) {
	if !c.Enabled() {
		return c.next.Resolve(ctx, roleID)
	}
	key := CacheKey(roleID)
	if set, ok := c.lookup(ctx, key); ok {
		return set, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		gen, genErr := c.generation(ctx, roleID)
		set, err := c.next.Resolve(ctx, roleID)
		if err != nil {
			return PermissionSet{}, err
		}
		if genErr == nil {
			c.store(ctx, roleID, gen, set)
		}
		return set, nil
	})
	select {
	case <-ctx.Done():
		return PermissionSet{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// The shared load ran on another request's context which was cancelled.
			if res.Shared && isContextError(res.Err) && ctx.Err() == nil {
				return c.next.Resolve(ctx, roleID)
			}
			return PermissionSet{}, res.Err
		}
		return res.Val.(PermissionSet), nil
	}
}

// Invalidate drops the memoized set for roleID. Loads that started before the
// call will not write their result back.
func (c *CachedResolver) Invalidate(ctx context.Context, roleID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	key := CacheKey(roleID)
	c.group.Forget(key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(roleID))
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rbac: invalidate role %d: %w", roleID, err)
	}
	return nil
}

// InvalidateAll drops every memoized set and reports how many keys were removed.
func (c *CachedResolver) InvalidateAll(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	if err := c.client.Incr(ctx, globalGenerationKey).Err(); err != nil {
		return 0, fmt.Errorf("rbac: bump cache generation: %w", err)
	}
	removed := 0
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		c.group.Forget(iter.Val())
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, fmt.Errorf("rbac: invalidate %s: %w", iter.Val(), err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("rbac: scan cached roles: %w", err)
	}
	return removed, nil
}

func (c *CachedResolver) generation(ctx context.Context, roleID int64) (generation, error) {
	vals, err := c.client.MGet(ctx, generationKey(roleID), globalGenerationKey).Result()
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("permission cache generation", slog.Int64("role_id", roleID), slog.Any("error", err))
		}
		return generation{}, err
	}
	return generation{role: generationValue(vals[0]), global: generationValue(vals[1])}, nil
}

func generationValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

func (c *CachedResolver) lookup(ctx context.Context, key string) (PermissionSet, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			c.logger.Warn("permission cache read", slog.String("key", key), slog.Any("error", err))
		}
		return PermissionSet{}, false
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		c.logger.Warn("permission cache decode", slog.String("key", key), slog.Any("error", err))
		return PermissionSet{}, false
	}
	return NewPermissionSet(codes...), true
}

func (c *CachedResolver) store(ctx context.Context, roleID int64, gen generation, set PermissionSet) {
	raw, err := json.Marshal(set.Codes())
	if err != nil {
		return
	}
	key := CacheKey(roleID)
	keys := []string{key, generationKey(roleID), globalGenerationKey}
	stored, err := storeIfCurrent.Run(ctx, c.client, keys, gen.role, gen.global, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("permission cache write", slog.String("key", key), slog.Any("error", err))
		}
		return
	}
	if stored == 0 {
		c.logger.Debug("permission cache write skipped after invalidation", slog.Int64("role_id", roleID))
	}
}

// CacheKey returns the Redis key holding roleID's memoized permissions.
func CacheKey(roleID int64) string {
	return cacheKeyPrefix + strconv.FormatInt(roleID, 10)
}

func generationKey(roleID int64) string {
	return generationKeyPrefix + strconv.FormatInt(roleID, 10)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var _ PermissionResolver = (*CachedResolver)(nil)
