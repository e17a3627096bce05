package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// extendScript resets the expiry of the key only while it still holds the caller's token.
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Redis is a lock shared by every process connected to the same Redis server.
// A held key expires after ttl so a crashed holder cannot block the drop directory forever;
// while the holder is alive the expiry is pushed back every third of ttl.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a lock using client. Keys are prefix + the key passed to Acquire.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisFromConfig connects to the configured server.
func NewRedisFromConfig(c config.RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	return NewRedis(client, c.KeyPrefix, config.MustDuration(c.TTL))
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), bool, error) {
	k := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", k, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(k, token, stop, done)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done

			// the acquiring context may already be cancelled at release time
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, r.client, []string{k}, token).Err(); err != nil {
				logx.As().Warn().
					Str("key", k).
					Err(err).
					Msg("Failed to release cycle lock, it expires on its own")
			}
		})
	}

	return release, true, nil
}

// keepAlive extends the lock until stop is closed or the lock is found taken over.
func (r *Redis) keepAlive(key string, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := r.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := extendScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
			cancel()

			if err != nil {
				logx.As().Warn().Str("key", key).Err(err).Msg("Failed to extend cycle lock")
				continue
			}
			if n == 0 {
				logx.As().Error().
					Str("key", key).
					Dur("ttl", r.ttl).
					Msg("Cycle lock expired while the cycle was running, another process may process the drop directory")
				return
			}
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
