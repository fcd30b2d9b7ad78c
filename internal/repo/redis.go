package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sir_venger/flatstore/internal/models"
)

const redisKeyPrefix = "flatstore:meta:"

// RedisStore хранит метаданные JSON-значениями в Redis/Dragonfly без TTL.
type RedisStore struct {
	client redis.Cmdable
}

// OpenRedis подключается по URL вида redis://[:password@]host:port/db.
func OpenRedis(ctx context.Context, dsn string) (*RedisStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStore оборачивает готовый клиент.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, name string) (models.FileMeta, error) {
	val, err := s.client.Get(ctx, redisKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.FileMeta{}, models.ErrNotFound
		}
		return models.FileMeta{}, err
	}

	var fm models.FileMeta
	if err := json.Unmarshal(val, &fm); err != nil {
		return models.FileMeta{}, fmt.Errorf("decode meta %q: %w", name, err)
	}
	return fm, nil
}

func (s *RedisStore) Save(ctx context.Context, fm models.FileMeta) error {
	b, err := json.Marshal(fm)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(fm.Name), b, 0).Err()
}

// Close закрывает клиент, если он принадлежит хранилищу.
func (s *RedisStore) Close() error {
	if c, ok := s.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}

func redisKey(name string) string {
	return redisKeyPrefix + name
}
