package rate

import (
	"context"
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// fixedWindowScript increments the window counter and starts its expiry on
// the first hit. It returns the new count and the remaining ttl in ms.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call("INCR", KEYS[1])
	if count == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl < 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// RedisLimiter shares windows across instances. Redis failures let the
// request through and log a warning.
type RedisLimiter struct {
	client redis.UniversalClient
	log    logrus.FieldLogger
	prefix string
}

func NewRedis(client redis.UniversalClient, log logrus.FieldLogger) *RedisLimiter {
	return &RedisLimiter{client: client, log: log, prefix: "microblog:rl:"}
}

// Ping checks connectivity, used at startup to decide whether to fall back.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return errors.Wrap(l.client.Ping(ctx).Err(), "redis ping")
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 {
		return true, 0
	}
	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		l.log.Warnf("rate limiter redis error, allowing %s: %v", key, err)
		return true, 0
	}
	retry := time.Duration(res[1]) * time.Millisecond
	return res[0] <= int64(limit), retry
}
