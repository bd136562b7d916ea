package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"brandsim/server/internal/config"
	"brandsim/server/internal/models"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) GetClient() *redis.Client {
	return s.client
}

// Game lock methods
const gameLockKey = "brandsim:lock:game:%s"

// Deletes the key only while it still holds our token.
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisGameLocker serializes mutations of one game across server instances
type RedisGameLocker struct {
	store *RedisStore
	ttl   time.Duration
}

func NewRedisGameLocker(store *RedisStore, ttl time.Duration) *RedisGameLocker {
	return &RedisGameLocker{store: store, ttl: ttl}
}

// LockGame fails fast with models.ErrGameBusy when another holder owns the lock.
func (l *RedisGameLocker) LockGame(ctx context.Context, gameID string) (func(), error) {
	key := fmt.Sprintf(gameLockKey, gameID)
	token := uuid.NewString()

	ok, err := l.store.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !ok {
		return nil, models.ErrGameBusy
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// On failure the TTL frees the key.
		_ = releaseLockScript.Run(ctx, l.store.client, []string{key}, token).Err()
	}
	return release, nil
}
