package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func tokenKey(jti string) string {
	return "token:" + jti
}

// GetToken reports ok=false on a cache miss.
func (s *Store) GetToken(ctx context.Context, jti string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, tokenKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetToken(ctx context.Context, jti, pseudonym string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, tokenKey(jti), pseudonym, ttl).Err()
}

func (s *Store) DeleteToken(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, tokenKey(jti)).Err()
}
