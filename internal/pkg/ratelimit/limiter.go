// Package ratelimit implements redis-backed sliding window limits.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "ratelimit:"

// Rule 窗口内最多允许 Limit 次请求
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision 限流结果
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Key        string // 触发限流的 key
}

// 先检查所有窗口，全部通过才记录本次请求，保证被拒绝的请求不占用额度
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local member = ARGV[2]
for i = 1, #KEYS do
  local limit = tonumber(ARGV[1 + i * 2])
  local window = tonumber(ARGV[2 + i * 2])
  redis.call('ZREMRANGEBYSCORE', KEYS[i], '-inf', now - window)
  local count = redis.call('ZCARD', KEYS[i])
  if count >= limit then
    local retry = window
    local oldest = redis.call('ZRANGE', KEYS[i], 0, 0, 'WITHSCORES')
    if oldest[2] then
      retry = tonumber(oldest[2]) + window - now
    end
    return {0, i, retry}
  end
end
for i = 1, #KEYS do
  redis.call('ZADD', KEYS[i], now, member)
  redis.call('PEXPIRE', KEYS[i], tonumber(ARGV[2 + i * 2]))
end
return {1, 0, 0}
`)

type Limiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, now: time.Now}
}

// Allow 对每个 subject 应用全部规则，任意一个超限即拒绝
func (l *Limiter) Allow(ctx context.Context, subjects []string, rules []Rule) (*Decision, error) {
	if len(subjects) == 0 || len(rules) == 0 {
		return &Decision{Allowed: true}, nil
	}

	now := l.now().UnixMilli()
	keys := make([]string, 0, len(subjects)*len(rules))
	args := []interface{}{now, uuid.NewString()}
	for _, subject := range subjects {
		for _, rule := range rules {
			keys = append(keys, fmt.Sprintf("%s%s:%s", keyPrefix, rule.Name, subject))
			args = append(args, rule.Limit, rule.Window.Milliseconds())
		}
	}

	res, err := slidingWindowScript.Run(ctx, l.rdb, keys, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	allowed, _ := res[0].(int64)
	if allowed == 1 {
		return &Decision{Allowed: true}, nil
	}

	idx, _ := res[1].(int64)
	retryMs, _ := res[2].(int64)
	if retryMs < 0 {
		retryMs = 0
	}
	decision := &Decision{RetryAfter: time.Duration(retryMs) * time.Millisecond}
	if idx >= 1 && int(idx) <= len(keys) {
		decision.Key = keys[idx-1]
	}
	return decision, nil
}
