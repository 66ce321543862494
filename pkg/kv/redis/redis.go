// Package redis stores kv.Medium entries as plain Redis strings.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formbuilder/pkg/kv"
)

// Store wraps a go-redis client.
type Store struct {
	client *goredis.Client
	owned  bool
}

var (
	_ kv.Medium  = (*Store)(nil)
	_ kv.Batcher = (*Store)(nil)
	_ kv.Closer  = (*Store)(nil)
)

// New wraps an existing client. Close leaves the client open.
func New(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Dial connects to addr and verifies the connection with PING. The returned
// store owns the client.
func Dial(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &Store{client: client, owned: true}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// SetMany writes all entries inside MULTI/EXEC.
func (s *Store) SetMany(ctx context.Context, entries []kv.Entry) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, e.Key, e.Value, 0)
		}
		return nil
	})
	return err
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close closes the client when the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
