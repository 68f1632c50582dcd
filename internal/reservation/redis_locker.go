package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix    = "psysupport:reservation:"
	defaultLockTTL    = 10 * time.Second
	releaseTimeout    = 2 * time.Second
	redisPingDeadline = 2 * time.Second
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock taken over by someone else is left alone
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// redisClient is the part of *redis.Client the locker needs
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker shares slot locks across API replicas
type RedisLocker struct {
	client redisClient
	ttl    time.Duration
}

// RedisOptions configures the connection
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

// NewRedisClient connects and pings redis
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingDeadline)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, apperrors.UnavailableError("redis", err)
	}
	return client, nil
}

// NewRedisLocker creates a locker whose locks expire after ttlSeconds
func NewRedisLocker(client *redis.Client, ttlSeconds int) *RedisLocker {
	return newRedisLocker(client, ttlSeconds)
}

func newRedisLocker(client redisClient, ttlSeconds int) *RedisLocker {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Acquire implements Locker with SET NX PX and a random token
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		metrics.ReservationAttempts.WithLabelValues("redis", "error").Inc()
		return nil, apperrors.UnavailableError("redis", err)
	}
	if !ok {
		metrics.ReservationAttempts.WithLabelValues("redis", "held").Inc()
		return nil, ErrHeld
	}
	metrics.ReservationAttempts.WithLabelValues("redis", "acquired").Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := l.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
				logger.Warn("Failed to release slot reservation",
					zap.String("key", redisKey),
					zap.Error(err))
			}
		})
	}, nil
}
