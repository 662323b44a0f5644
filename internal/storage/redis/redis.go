// Package redis provides a storage adapter backed by a shared Redis
// instance, enabling multiple server processes to agree on persisted
// room and user facts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Store implements storage.Adapter on a Redis client. All keys are
// namespaced with a prefix so several deployments can share one instance.
type Store struct {
	client *goredis.Client
	prefix string
}

// New wraps an existing Redis client. The caller may keep using the same
// client for pub/sub; the store only issues key and set commands.
func New(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return true, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *Store) IndexAdd(ctx context.Context, index, member string) error {
	if err := s.client.SAdd(ctx, s.key(index), member).Err(); err != nil {
		return fmt.Errorf("redis sadd %s: %w", index, err)
	}
	return nil
}

func (s *Store) IndexGet(ctx context.Context, index string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key(index)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", index, err)
	}
	return members, nil
}

func (s *Store) IndexRemove(ctx context.Context, index, member string) error {
	if err := s.client.SRem(ctx, s.key(index), member).Err(); err != nil {
		return fmt.Errorf("redis srem %s: %w", index, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
