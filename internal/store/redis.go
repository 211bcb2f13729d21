package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis implements KV on a Redis server.  Paths map directly onto keys under
// a configurable prefix, so `/sheet_locks/2025-12-24_18:30` becomes
// `shuttle:/sheet_locks/2025-12-24_18:30`.  The conditional operations run as
// Lua scripts so the read-compare-write is a single server-side step.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis wraps an already-connected client.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "shuttle:"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// casScript compares the current value (missing compares only against the
// "create" mode) and swaps in the new one atomically.
var casScript = redis.NewScript(`
    local cur = redis.call('GET', KEYS[1])
    if ARGV[1] == 'create' then
        if cur then return 0 end
    else
        if cur ~= ARGV[2] then return 0 end
    end
    redis.call('SET', KEYS[1], ARGV[3])
    return 1
`)

var cadScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        redis.call('DEL', KEYS[1])
        return 1
    end
    return 0
`)

func (r *Redis) key(path string) string { return r.prefix + path }

func (r *Redis) Get(ctx context.Context, path string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.key(path)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, path, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, path, value string) error {
	if err := r.rdb.Set(ctx, r.key(path), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, path string) error {
	if err := r.rdb.Del(ctx, r.key(path)).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func (r *Redis) CompareAndSet(ctx context.Context, path string, old *string, value string) (bool, error) {
	mode, oldVal := "swap", ""
	if old == nil {
		mode = "create"
	} else {
		oldVal = *old
	}
	n, err := casScript.Run(ctx, r.rdb, []string{r.key(path)}, mode, oldVal, value).Int()
	if err != nil {
		return false, fmt.Errorf("%w: cas %s: %v", ErrUnavailable, path, err)
	}
	return n == 1, nil
}

func (r *Redis) CompareAndDelete(ctx context.Context, path, old string) (bool, error) {
	n, err := cadScript.Run(ctx, r.rdb, []string{r.key(path)}, old).Int()
	if err != nil {
		return false, fmt.Errorf("%w: cad %s: %v", ErrUnavailable, path, err)
	}
	return n == 1, nil
}

func (r *Redis) Increment(ctx context.Context, path string) (int64, error) {
	n, err := r.rdb.Incr(ctx, r.key(path)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ErrUnavailable, path, err)
	}
	return n, nil
}
