package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const maxWatchRetries = 5

// RedisStore keeps a table as a hash (id -> JSON) plus a list holding insertion order.
type RedisStore[T Entity] struct {
	client   *redis.Client
	key      string
	orderKey string
}

func NewRedisStore[T Entity](client *redis.Client, prefix, table string) *RedisStore[T] {
	key := table
	if prefix != "" {
		key = prefix + ":" + table
	}
	return &RedisStore[T]{
		client:   client,
		key:      key,
		orderKey: key + ":order",
	}
}

func (s *RedisStore[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	id := newID()
	rec.SetID(id)

	data, err := encode(rec)
	if err != nil {
		return zero, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, id, data)
		pipe.RPush(ctx, s.orderKey, id)
		return nil
	})
	if err != nil {
		return zero, fmt.Errorf("failed to create record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore[T]) Retrieve(ctx context.Context, id string) (T, error) {
	var zero T
	data, err := s.client.HGet(ctx, s.key, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("failed to get record: %w", err)
	}
	return decode[T](data)
}

func (s *RedisStore[T]) RetrieveAll(ctx context.Context) ([]T, error) {
	ids, err := s.client.LRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list record ids: %w", err)
	}
	records := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	values, err := s.client.HMGet(ctx, s.key, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decode[T]([]byte(raw))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Update uses WATCH so a concurrent writer on the same table forces a retry instead of a lost update.
func (s *RedisStore[T]) Update(ctx context.Context, id string, mutate MutateFunc[T]) (T, error) {
	var updated T

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, s.key, id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		rec, err := decode[T](data)
		if err != nil {
			return err
		}
		if err := applyMutation(rec, id, mutate); err != nil {
			return err
		}
		encoded, err := encode(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, id, encoded)
			return nil
		})
		if err == nil {
			updated = rec
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var zero T
		if errors.Is(err, ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	var zero T
	return zero, fmt.Errorf("failed to update record %s: too many concurrent writers", id)
}

func (s *RedisStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.key, id)
		pipe.LRem(ctx, s.orderKey, 0, id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	return removed.Val() > 0, nil
}

func (s *RedisStore[T]) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
