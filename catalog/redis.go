package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"upc-catalog/internal/types"
)

const (
	redisKeyPrefix  = "catalog:record:"
	redisMaxRetries = 16
)

type redisBackend struct {
	client *redis.Client
}

// OpenRedis connects to Redis. dsn is either a redis:// URL or a host:port.
func OpenRedis(ctx context.Context, dsn string) (*Catalog, error) {
	opts := &redis.Options{Addr: dsn}
	if strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://") {
		parsed, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newCatalog(&redisBackend{client: client}), nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func decodeRedisRecord(data string) (*types.CatalogRecord, error) {
	var record types.CatalogRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if record.Retailers == nil {
		record.Retailers = []types.RetailerOffer{}
	}
	return &record, nil
}

func (r *redisBackend) get(ctx context.Context, id string) (*types.CatalogRecord, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	return decodeRedisRecord(data)
}

// mutate uses optimistic locking: the write is dropped and retried when
// another client touched the key between WATCH and EXEC.
func (r *redisBackend) mutate(ctx context.Context, id string, fn mutateFunc) error {
	key := redisKey(id)

	txf := func(tx *redis.Tx) error {
		var existing *types.CatalogRecord
		data, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get %s: %w", id, err)
		default:
			existing, err = decodeRedisRecord(data)
			if err != nil {
				return err
			}
		}

		next, err := fn(existing)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis mutate %s: too many conflicting writers", id)
}

func (r *redisBackend) delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisBackend) list(ctx context.Context) ([]types.CatalogRecord, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return []types.CatalogRecord{}, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make([]types.CatalogRecord, 0, len(values))
	for _, v := range values {
		// deleted between SCAN and MGET
		data, ok := v.(string)
		if !ok {
			continue
		}
		record, err := decodeRedisRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	return out, nil
}

func (r *redisBackend) close() error {
	return r.client.Close()
}
