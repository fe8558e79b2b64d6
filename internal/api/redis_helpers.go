package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// passwordAttemptWindow 是分享口令错误计数的统计窗口。
const passwordAttemptWindow = time.Hour

// redisRateCounter 是口令尝试计数用到的 Redis 命令。
type redisRateCounter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// passwordAttemptKey 按令牌、客户端 IP 与整点小时分桶，例如 rate:share:<token>:10.0.0.1:2026101914。
func passwordAttemptKey(token, clientIP string, at time.Time) string {
	return "rate:share:" + token + ":" + clientIP + ":" + at.UTC().Format("2006010215")
}

// incrWithTTL 自增计数，首次写入时设置过期时间。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
