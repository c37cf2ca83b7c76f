package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

// DefaultPrefix namespaces keys written by Redis.
const DefaultPrefix = "formc:"

// RedisConfig holds connection settings for NewRedis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis stores each form as a JSON string under <prefix>form:<id> and tracks
// ids in the set <prefix>forms.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis ping %s: %w", cfg.Addr, err)
	}
	return NewRedisWithClient(client, cfg.Prefix), nil
}

// NewRedisWithClient wraps an existing client. An empty prefix uses
// DefaultPrefix.
func NewRedisWithClient(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) formKey(id string) string { return r.prefix + "form:" + id }
func (r *Redis) indexKey() string         { return r.prefix + "forms" }

func (r *Redis) Get(ctx context.Context, id string) (metadata.FormMetadata, error) {
	raw, err := r.client.Get(ctx, r.formKey(strings.TrimSpace(id))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return metadata.FormMetadata{}, ErrNotFound
		}
		return metadata.FormMetadata{}, fmt.Errorf("store: redis get %s: %w", id, err)
	}
	var form metadata.FormMetadata
	if err := json.Unmarshal(raw, &form); err != nil {
		return metadata.FormMetadata{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return form, nil
}

func (r *Redis) Put(ctx context.Context, form metadata.FormMetadata) error {
	id := strings.TrimSpace(form.ID)
	if id == "" {
		return ErrMissingID
	}
	payload, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.formKey(id), payload, 0)
		pipe.SAdd(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: redis put %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.formKey(id))
		pipe.SRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: redis delete %s: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis list: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
