package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix   = "cookbook:session:"
	defaultDialTimeout = 5 * time.Second
)

// RedisConfig captures the settings for connecting the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedisClient initialises a Redis client and validates connectivity with
// a ping.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisStore keeps sessions as "<prefix><id>" keys holding the user id.
// Keys carry no TTL.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	newID  func() string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, newID: newID}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Create(ctx context.Context, userID uint) (string, error) {
	value := strconv.FormatUint(uint64(userID), 10)
	for i := 0; i < maxCreateAttempts; i++ {
		id := s.newID()
		ok, err := s.client.SetNX(ctx, s.key(id), value, 0).Result()
		if err != nil {
			return "", fmt.Errorf("store session: %w", err)
		}
		if ok {
			return id, nil
		}
	}
	return "", ErrIDCollision
}

func (s *RedisStore) Resolve(ctx context.Context, id string) (uint, bool, error) {
	if id == "" {
		return 0, false, nil
	}
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load session: %w", err)
	}
	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt session value %q: %w", raw, err)
	}
	return uint(userID), true, nil
}

func (s *RedisStore) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable. Used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
