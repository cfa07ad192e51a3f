package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/eleven-am/hlsladder/internal/domain"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis stores each manifest as a string value under
// {prefix}:{videoId}:{role}:{name}.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	var addrs []string
	for _, addr := range strings.Split(opts.Addr, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis addr is required")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      addrs,
		Password:   opts.Password,
		DB:         opts.DB,
		MaxRetries: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedis(client, opts.Prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "hlsladder"
	}
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) key(key domain.ManifestKey) (string, error) {
	name, err := relativePath(key)
	if err != nil {
		return "", err
	}
	return s.prefix + ":" + key.VideoID + ":" + string(key.Role) + ":" + name, nil
}

func (s *Redis) ReadManifest(ctx context.Context, key domain.ManifestKey) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrManifestNotFound, k)
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	return data, nil
}

func (s *Redis) WriteManifest(ctx context.Context, key domain.ManifestKey, data []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, k, data, 0).Err(); err != nil {
		return fmt.Errorf("set manifest: %w", err)
	}
	return nil
}

func (s *Redis) ManifestExists(ctx context.Context, key domain.ManifestKey) (bool, error) {
	k, err := s.key(key)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("check manifest: %w", err)
	}
	return n > 0, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
