package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client that answered PING.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return rdb, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Lock is a single-holder lease on a Redis key.
type Lock struct {
	rdb   redis.Cmdable
	key   string
	token string
}

// TryLock acquires key for ttl. ok is false when another holder has it.
func TryLock(ctx context.Context, rdb redis.Cmdable, key, token string, ttl time.Duration) (*Lock, bool, error) {
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("kv.TryLock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{rdb: rdb, key: key, token: token}, true, nil
}

// Release reports whether the lease was still ours.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	res, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return false, fmt.Errorf("kv.Release %s: %w", l.key, err)
	}
	return res == 1, nil
}
