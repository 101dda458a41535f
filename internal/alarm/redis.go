package alarm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "expensetracker:alarm:"

// RedisRegistry stores registrations as Redis hashes so that every process
// sharing the instance sees the same pending wake-ups.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: redisKeyPrefix}
}

func (r *RedisRegistry) key(token string) string {
	return r.prefix + token
}

func (r *RedisRegistry) Put(ctx context.Context, reg Registration) error {
	key := r.key(reg.Token)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"fire_at", reg.FireAt.UnixMilli(),
			"precision", string(reg.Precision),
			"created_at", reg.CreatedAt.UnixMilli(),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put alarm %s: %w", reg.Token, err)
	}
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("remove alarm %s: %w", token, err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, token string) (*Registration, error) {
	fields, err := r.client.HGetAll(ctx, r.key(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("get alarm %s: %w", token, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	reg, err := decodeRedisRegistration(token, fields)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]Registration, error) {
	var out []Registration
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		token := iter.Val()[len(r.prefix):]
		reg, err := r.Get(ctx, token)
		if err != nil {
			return nil, err
		}
		if reg != nil {
			out = append(out, *reg)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan alarms: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

func (r *RedisRegistry) Take(ctx context.Context, token string, fireAt time.Time) (bool, error) {
	key := r.key(token)
	taken := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, "fire_at").Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms != fireAt.UnixMilli() {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err == nil {
			taken = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Replaced concurrently; the new registration stays pending.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("take alarm %s: %w", token, err)
	}
	return taken, nil
}

func (r *RedisRegistry) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan alarms: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func decodeRedisRegistration(token string, fields map[string]string) (Registration, error) {
	fireMs, err := strconv.ParseInt(fields["fire_at"], 10, 64)
	if err != nil {
		return Registration{}, fmt.Errorf("decode alarm %s fire_at: %w", token, err)
	}
	createdMs, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	return Registration{
		Token:     token,
		FireAt:    time.UnixMilli(fireMs),
		Precision: Precision(fields["precision"]),
		CreatedAt: time.UnixMilli(createdMs),
	}, nil
}
