package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// rateLimitScript atomically increments a counter, sets its TTL on first use
// and returns the count together with the remaining TTL in milliseconds.
var rateLimitScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// CheckRateLimit counts one hit against key in a fixed window. It reports
// whether the hit is within limit, the hit count so far and the milliseconds
// until the window resets.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, int64, error) {
	res, err := rateLimitScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("checking rate limit: %w", err)
	}
	if len(res) != 2 {
		return false, 0, 0, fmt.Errorf("checking rate limit: unexpected reply %v", res)
	}
	count, ttlMs := res[0], res[1]
	if ttlMs < 0 {
		ttlMs = window.Milliseconds()
	}
	return count <= int64(limit), count, ttlMs, nil
}
