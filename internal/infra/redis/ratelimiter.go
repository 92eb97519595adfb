package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NEXESMISSION/fulldevland/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultMutationsPerSec int64 = 20
	windowSeconds                = 1
)

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.Limiter = (*MutationLimiter)(nil)

// MutationLimiter is a distributed per-user, per-second cap on read-state
// mutations. Counters live in Redis so the cap holds across API replicas.
type MutationLimiter struct {
	client      *goredis.Client
	limitPerSec int64
	now         func() time.Time
	script      *goredis.Script
}

func NewMutationLimiter(client *goredis.Client, limitPerSec int) (*MutationLimiter, error) {
	return newMutationLimiter(client, int64(limitPerSec), time.Now)
}

func newMutationLimiter(
	client *goredis.Client,
	limitPerSec int64,
	nowFn func() time.Time,
) (*MutationLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultMutationsPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &MutationLimiter{
		client:      client,
		limitPerSec: limitPerSec,
		now:         nowFn,
		script:      allowScript,
	}, nil
}

func (m *MutationLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	if m == nil || m.client == nil || m.script == nil {
		return false, fmt.Errorf("mutation limiter is not initialized")
	}

	normalizedID := strings.TrimSpace(userID)
	if normalizedID == "" {
		return false, fmt.Errorf("user id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("ratelimit:mutations:%s:%d", normalizedID, m.now().UTC().Unix())
	result, err := m.script.Run(ctx, m.client, []string{key}, m.limitPerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate mutation limit: %w", err)
	}

	return result == 1, nil
}
