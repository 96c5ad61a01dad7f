package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout
const (
	termIDPrefix      = "termid:"
	rateLimitPrefix   = "ratelimit:"
	RiskAnalysisQueue = "risk:analysis:queue"
)

// Hit counts one request of key inside a fixed window and returns the
// count so far and the time left in the window
func (r *RedisInternal) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := rateLimitPrefix + key
	pipe := r.Redis.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

// RememberTermID records that original was replaced by adopted
func (r *RedisInternal) RememberTermID(ctx context.Context, original, adopted string, ttl time.Duration) error {
	return r.Redis.Set(ctx, termIDPrefix+original, adopted, ttl).Err()
}

// LookupTermID returns the id adopted in place of original, if still cached
func (r *RedisInternal) LookupTermID(ctx context.Context, original string) (string, bool, error) {
	v, err := r.Redis.Get(ctx, termIDPrefix+original).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// EnqueueRiskAnalysis pushes a job for the external risk analysis worker
func (r *RedisInternal) EnqueueRiskAnalysis(ctx context.Context, job []byte) error {
	return r.Redis.LPush(ctx, RiskAnalysisQueue, job).Err()
}
