package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"oact/internal/evidence"
)

const (
	bundleKeyPrefix = "oact:bundle:"
	bundleIndexKey  = "oact:bundles"
)

// RedisStore keeps bundles as JSON values with an optional TTL and a sorted
// set index scored by creation time.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires stored bundles after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore wraps a client whose lifecycle is managed by the caller.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Save(ctx context.Context, b *evidence.Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle %s: %w", b.ID(), err)
	}

	// The value and its index entry are written in one MULTI/EXEC. ZAddNX
	// leaves the index untouched when the id already exists.
	var setNX *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setNX = pipe.SetNX(ctx, bundleKeyPrefix+b.ID(), data, s.ttl)
		pipe.ZAddNX(ctx, bundleIndexKey, redis.Z{
			Score:  float64(b.CreatedAt().UnixMilli()),
			Member: b.ID(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save bundle %s: %w", b.ID(), err)
	}
	if !setNX.Val() {
		return conflict(b.ID())
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*evidence.Bundle, error) {
	data, err := s.client.Get(ctx, bundleKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get bundle %s: %w", id, err)
	}
	return evidence.Decode(data)
}

// List reads the newest ids from the index. Index members whose bundle has
// expired are dropped from the index as they are found.
func (s *RedisStore) List(ctx context.Context, limit int) ([]*evidence.Bundle, error) {
	limit = normalizeLimit(limit)
	ids, err := s.client.ZRevRange(ctx, bundleIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list bundle index: %w", err)
	}
	if len(ids) == 0 {
		return []*evidence.Bundle{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = bundleKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}

	out := make([]*evidence.Bundle, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		b, err := evidence.Decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, bundleIndexKey, expired...).Err(); err != nil {
			return nil, fmt.Errorf("prune bundle index: %w", err)
		}
	}
	return out, nil
}
