package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/convrelay/internal/domain/model"
)

const defaultKeyPrefix = "convrelay:token:"

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the Redis key namespace for cached credentials.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL bounds how long a cached credential may linger. Zero keeps entries
// until overwritten; expiry only costs an extra refresh on the next upload.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// RedisStore caches credentials in Redis as JSON values. Writes are plain
// SETs, so concurrent refreshes resolve last-write-wins.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect initializes a Redis client from URL or host:port input.
// Supporting both formats keeps local/dev and container config paths simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// Read returns the credential cached under path, or ErrMiss.
func (s *RedisStore) Read(ctx context.Context, path string) (model.Credential, error) {
	const op = "tokencache.redis.read"

	raw, err := s.client.Get(ctx, s.prefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Credential{}, ErrMiss
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("%s: %w: %w", op, ErrRead, err)
	}

	var cred model.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		// Unparseable cache entries are treated as a miss so the caller
		// refreshes and overwrites them.
		return model.Credential{}, ErrMiss
	}
	return cred, nil
}

// Write stores cred under path as JSON.
func (s *RedisStore) Write(ctx context.Context, path string, cred model.Credential) error {
	const op = "tokencache.redis.write"

	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
	}
	if err := s.client.Set(ctx, s.prefix+path, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
	}
	return nil
}
