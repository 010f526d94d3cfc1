// Package ratelimiter implements a per-bot, minute-windowed request
// counter backed by a single atomic Redis round trip.
package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/pkg/logger"
)

// incrAndCheck increments the per-bot, per-minute-window counter and
// returns its new value, setting an expiry on first write so the key is
// self-cleaning without the periodic sweep. Lua keeps the check in one
// round trip so concurrent callers never race past the limit.
const incrAndCheckScript = `
local count = redis.call("INCR", KEYS[1])
if tonumber(count) == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`

type Limiter struct {
	client *redis.Client
	script *redis.Script
}

func New(client *redis.Client) *Limiter {
	return &Limiter{client: client, script: redis.NewScript(incrAndCheckScript)}
}

// Allow atomically increments the counter for bot_id in the current
// minute-truncated window and reports whether this request is within
// limit. On Redis failure it fails open, so a cache outage never takes
// down queries.
func (l *Limiter) Allow(ctx context.Context, botID string, limitPerMinute int) (bool, int, error) {
	now := time.Now().UTC()
	windowStart := now.Truncate(time.Minute)
	key := fmt.Sprintf("ratelimit:%s:%d", botID, windowStart.Unix())

	count, err := l.script.Run(ctx, l.client, []string{key}, 120).Int()
	if err != nil {
		logger.Error("rate limiter redis call failed, failing open", zap.Error(err), zap.String("bot_id", botID))
		return true, 0, nil
	}

	if count > limitPerMinute {
		metrics.RateLimitRejectedTotal.Inc()
		return false, count, nil
	}
	return true, count, nil
}

// RetryAfterSeconds is the number of seconds until the next minute
// boundary.
func RetryAfterSeconds(now time.Time) int {
	return 60 - now.Second()
}

// RateLimitedError builds the typed error callers should return on a
// rejected request.
func RateLimitedError(retryAfterS int) error {
	return apperr.New(apperr.KindRateLimited, fmt.Sprintf("rate limit exceeded, retry after %ds", retryAfterS))
}
