package feed

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// NewSubscriber selects the change-feed transport by name. Both transports
// carry the same contract: best-effort change signals, compensated by polling.
func NewSubscriber(backend string, dsn string, client *goredis.Client, logger *zap.Logger) (Subscriber, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendRedis, "":
		return NewRedisSubscriber(client, logger)
	case BackendPostgres:
		return NewPostgresSubscriber(dsn, logger)
	default:
		return nil, fmt.Errorf("unknown feed backend %q", backend)
	}
}
