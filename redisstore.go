package lendcache

import (
	"context"
	"encoding/hex"

	"github.com/go-redis/redis/v8"
)

var _ WritableStore[string, int] = &RedisStore[string, int]{}

// RedisConfig controls RedisStore instance.
type RedisConfig struct {
	// Client is an existing client to use, created from Addr/Password/DB when nil.
	Client *redis.Client

	// Addr is Redis address, e.g. "localhost:6379".
	Addr string

	// Password is Redis password.
	Password string

	// DB is Redis database number.
	DB int

	// KeyPrefix namespaces stored keys, default "lendcache:".
	KeyPrefix string

	// Codec serializes keys and values, default GobCodec.
	Codec Codec
}

// RedisStore persists values in Redis.
//
// Durability follows the Redis persistence configuration, Commit is a no-op.
type RedisStore[K comparable, V any] struct {
	client *redis.Client
	prefix string
	codec  Codec
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore[K comparable, V any](cfg RedisConfig) *RedisStore[K, V] {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "lendcache:"
	}

	codec := cfg.Codec
	if codec == nil {
		codec = GobCodec{}
	}

	client := cfg.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	return &RedisStore[K, V]{
		client: client,
		prefix: prefix,
		codec:  codec,
	}
}

// Contains reports key presence.
func (s *RedisStore[K, V]) Contains(ctx context.Context, key K) bool {
	k, err := s.key(key)
	if err != nil {
		return false
	}

	n, err := s.client.Exists(ctx, k).Result()

	return err == nil && n > 0
}

// Fetch reads and decodes the value of a key.
func (s *RedisStore[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var zero V

	k, err := s.key(key)
	if err != nil {
		return zero, err
	}

	data, err := s.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return zero, ErrNotFound
	}

	if err != nil {
		return zero, err
	}

	var v V
	if err := s.codec.Decode(data, &v); err != nil {
		return zero, err
	}

	return v, nil
}

// Replace is a no-op, Redis keeps authoritative copies.
func (s *RedisStore[K, V]) Replace(_ context.Context, _ K, _ V) error {
	return nil
}

// Insert encodes and stores the value without expiration.
func (s *RedisStore[K, V]) Insert(ctx context.Context, key K, value V) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}

	data, err := s.codec.Encode(value)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, k, data, 0).Err()
}

// Remove deletes the value of a key.
func (s *RedisStore[K, V]) Remove(ctx context.Context, key K) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}

	return s.client.Del(ctx, k).Err()
}

// Commit is a no-op, durability is delegated to the Redis server.
func (s *RedisStore[K, V]) Commit(_ context.Context) error {
	return nil
}

// Close closes the underlying client.
func (s *RedisStore[K, V]) Close() error {
	return s.client.Close()
}

// key derives the Redis key, hex keeps it printable in redis-cli.
func (s *RedisStore[K, V]) key(key K) (string, error) {
	enc, err := s.codec.Encode(key)
	if err != nil {
		return "", err
	}

	return s.prefix + hex.EncodeToString(enc), nil
}
