package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the lock only when it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// extendScript resets the expiry only while the lock still carries our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker hands out run locks backed by SET NX
type RedisLocker struct {
	client *redis.Client
	log    *logrus.Logger
}

// NewRedisClient creates a Redis client and checks the connection
func NewRedisClient(addr, password string, log *logrus.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.Infof("Connected to Redis at %s", addr)
	return client, nil
}

// NewRedisLocker wraps an existing client
func NewRedisLocker(client *redis.Client, log *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: client, log: log}
}

// Acquire takes the named lock for ttl. ok is false when someone else holds it.
// While held, the lock is extended every ttl/3 so a run longer than ttl keeps
// it; ttl only bounds how long a crashed holder blocks others. The returned
// release func is idempotent.
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	if ttl < 3*time.Millisecond {
		return nil, false, fmt.Errorf("lock %s: ttl %s is too short", name, ttl)
	}
	key := lockKey(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(name, key, token, ttl, stop, stopped)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-stopped

			// the caller's context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warnf("Failed to release lock %s: %v", name, err)
			}
		})
	}
	return release, true, nil
}

func (l *RedisLocker) keepAlive(name, key, token string, ttl time.Duration, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := extendScript.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				l.log.Warnf("Failed to extend lock %s: %v", name, err)
				continue
			}
			if n == 0 {
				l.log.Errorf("Lock %s was lost before the run finished", name)
				return
			}
		}
	}
}

func lockKey(name string) string {
	return "insights:lock:" + name
}
