// Package redis implements kvstore.Store on a redis-compatible server.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"

	"github.com/fbain/service/internal/kvstore"
)

// Error is the class for redis transport errors.
var Error = errs.Class("redis")

// Client is the entrypoint into redis.
type Client struct {
	db *redis.Client
}

// Open returns a configured Client, verifying a successful connection.
func Open(ctx context.Context, address, password string, db int) (*Client, error) {
	client := &Client{
		db: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}

	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Get returns the string value at key.
func (client *Client) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey.New("")
	}
	value, err := client.db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", kvstore.ErrKeyNotFound.New("%q", key)
	}
	if err != nil {
		return "", Error.New("get: %v", err)
	}
	return value, nil
}

// Set writes value at key with an optional ttl.
func (client *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := client.db.Set(ctx, key, value, ttl).Err(); err != nil {
		return Error.New("set: %v", err)
	}
	return nil
}

// SetNX writes value only if key is absent.
func (client *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, kvstore.ErrEmptyKey.New("")
	}
	if ttl < 0 {
		ttl = 0
	}
	ok, err := client.db.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, Error.New("setnx: %v", err)
	}
	return ok, nil
}

// Delete removes keys.
func (client *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := client.db.Del(ctx, keys...).Err(); err != nil {
		return Error.New("del: %v", err)
	}
	return nil
}

// Exists reports whether key is present.
func (client *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := client.db.Exists(ctx, key).Result()
	if err != nil {
		return false, Error.New("exists: %v", err)
	}
	return n > 0, nil
}

// HGet returns one field of the hash at key.
func (client *Client) HGet(ctx context.Context, key, field string) (string, error) {
	value, err := client.db.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", kvstore.ErrKeyNotFound.New("%q %q", key, field)
	}
	if err != nil {
		return "", Error.New("hget: %v", err)
	}
	return value, nil
}

// HGetAll returns all fields of the hash at key.
func (client *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := client.db.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, Error.New("hgetall: %v", err)
	}
	// redis reports an absent hash as an empty map
	if len(fields) == 0 {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}
	return fields, nil
}

// HSet writes fields into the hash at key.
func (client *Client) HSet(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	args := make([]any, 0, len(fields)*2)
	for field, value := range fields {
		args = append(args, field, value)
	}
	if err := client.db.HSet(ctx, key, args...).Err(); err != nil {
		return Error.New("hset: %v", err)
	}
	return nil
}

// HSetNX writes one field of the hash at key only if the field is absent.
func (client *Client) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	ok, err := client.db.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, Error.New("hsetnx: %v", err)
	}
	return ok, nil
}

// HDel removes fields from the hash at key.
func (client *Client) HDel(ctx context.Context, key string, fields ...string) error {
	if err := client.db.HDel(ctx, key, fields...).Err(); err != nil {
		return Error.New("hdel: %v", err)
	}
	return nil
}

// Expire sets the ttl of key.
func (client *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := client.db.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, Error.New("expire: %v", err)
	}
	return ok, nil
}

// ExpireAt sets an absolute expiry on key.
func (client *Client) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	ok, err := client.db.ExpireAt(ctx, key, at).Result()
	if err != nil {
		return false, Error.New("expireat: %v", err)
	}
	return ok, nil
}

// Persist clears any expiry on key.
func (client *Client) Persist(ctx context.Context, key string) error {
	if err := client.db.Persist(ctx, key).Err(); err != nil {
		return Error.New("persist: %v", err)
	}
	return nil
}

// TTL returns the remaining ttl of key.
func (client *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := client.db.TTL(ctx, key).Result()
	if err != nil {
		return 0, Error.New("ttl: %v", err)
	}
	// go-redis maps the redis sentinels to -1s and -2s
	switch ttl {
	case -2 * time.Second:
		return 0, kvstore.ErrKeyNotFound.New("%q", key)
	case -1 * time.Second:
		return kvstore.TTLNone, nil
	}
	return ttl, nil
}

// IncrBy atomically adds n to the integer at key.
func (client *Client) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	value, err := client.db.IncrBy(ctx, key, n).Result()
	if err != nil {
		return 0, Error.New("incrby: %v", err)
	}
	return value, nil
}

// Ping verifies the connection to redis.
func (client *Client) Ping(ctx context.Context) error {
	if err := client.db.Ping(ctx).Err(); err != nil {
		return Error.New("ping failed: %v", err)
	}
	return nil
}

// Close closes the redis client.
func (client *Client) Close() error {
	return client.db.Close()
}
