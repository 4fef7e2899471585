package blobstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "spinly"

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; defaults to "spinly".
	Prefix string
}

// RedisProvider stores each blob as a hash and tracks the keys of each store
// in a set, so List does not need SCAN.
type RedisProvider struct {
	client *redis.Client
	prefix string
}

// NewRedisProvider connects and pings the server.
func NewRedisProvider(ctx context.Context, opts RedisOptions) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis at %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = redisKeyPrefix
	}
	return &RedisProvider{client: client, prefix: prefix}, nil
}

// Store returns the named store.
func (p *RedisProvider) Store(name string) (Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &RedisStore{client: p.client, prefix: p.prefix + ":" + name, name: name}, nil
}

// Close closes the client.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// RedisStore is one named store.
type RedisStore struct {
	client *redis.Client
	prefix string
	name   string
}

func (s *RedisStore) blobKey(key string) string { return s.prefix + ":blob:" + key }
func (s *RedisStore) indexKey() string          { return s.prefix + ":keys" }

func (s *RedisStore) Get(ctx context.Context, key string) (*Blob, error) {
	fields, err := s.client.HGetAll(ctx, s.blobKey(key)).Result()
	if err != nil {
		return nil, ioError("get", s.name, key, err)
	}
	data, ok := fields["data"]
	if !ok {
		return nil, ErrNotFound
	}

	var meta Metadata
	if raw := fields["meta"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, ioError("get", s.name, key, fmt.Errorf("corrupt metadata: %w", err))
		}
	}
	return &Blob{Key: key, Data: []byte(data), Metadata: meta}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, data []byte, meta Metadata) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	rawMeta := ""
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return ioError("set", s.name, key, err)
		}
		rawMeta = string(raw)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.blobKey(key))
		pipe.HSet(ctx, s.blobKey(key), "data", data, "meta", rawMeta)
		pipe.SAdd(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return ioError("set", s.name, key, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, ioError("list", s.name, "", err)
	}
	return keys, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.blobKey(key))
		pipe.SRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return ioError("delete", s.name, key, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}
