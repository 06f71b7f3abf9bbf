package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims expired events, admits the new one only while under the
// limit and reports the oldest event still inside the window. Rejected calls
// are not recorded, so a client that backs off recovers after one window.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[4]) then
  redis.call('ZADD', KEYS[1], ARGV[1], ARGV[5])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local score = ''
if oldest[2] then score = oldest[2] end
return {allowed, count, score}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter implements a sliding window rate limiter backed by Redis sorted sets.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records an event for key when it fits in the last window and reports
// when the oldest counted event leaves it.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, Reset: now.Add(window)}, nil
	}

	nowMS := now.UnixMilli()
	res, err := slidingWindow.Run(ctx, l.Client, []string{l.Prefix + key},
		strconv.FormatInt(nowMS, 10),
		strconv.FormatInt(nowMS-window.Milliseconds(), 10),
		strconv.FormatInt(window.Milliseconds(), 10),
		strconv.Itoa(max),
		key+":"+uuid.NewString(),
	).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)

	reset := now.Add(window)
	if raw, ok := res[2].(string); ok && raw != "" {
		if oldest, err := strconv.ParseFloat(raw, 64); err == nil {
			reset = time.UnixMilli(int64(oldest)).Add(window)
		}
	}
	remaining := max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: allowed == 1, Remaining: remaining, Reset: reset}, nil
}
