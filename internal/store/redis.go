package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	redisIndexKey  = "estimates:index"
	redisKeyPrefix = "estimate:"
)

// Redis keeps each record in a hash and orders ids in a sorted set scored by
// save time.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to addr and verifies it answers.
func OpenRedis(ctx context.Context, addr string) (*Redis, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Driver() Driver { return DriverRedis }

func redisKey(id string) string { return redisKeyPrefix + id }

func (r *Redis) Put(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("put estimate: empty id")
	}
	ms := savedAtMillis(rec.SavedAt)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey(rec.ID), map[string]any{
			"name":       rec.Name,
			"savedAt":    ms,
			"grandTotal": strconv.FormatFloat(rec.GrandTotal, 'g', -1, 64),
			"payload":    string(rec.Payload),
		})
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(ms), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put estimate %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (Record, error) {
	fields, err := r.client.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("get estimate %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec := recordFromFields(id, fields["name"], fields["savedAt"], fields["grandTotal"])
	rec.Payload = []byte(fields["payload"])
	return rec, nil
}

func (r *Redis) List(ctx context.Context) ([]Summary, error) {
	ids, err := r.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list estimate ids: %w", err)
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, redisKey(id), "name", "savedAt", "grandTotal")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}

	out := make([]Summary, 0, len(ids))
	for i, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) != 3 || vals[1] == nil {
			continue
		}
		out = append(out, recordFromFields(ids[i], str(vals[0]), str(vals[1]), str(vals[2])).summary())
	}
	sortSummaries(out)
	return out, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisKey(id))
		pipe.ZRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete estimate %s: %w", id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

func str(v any) string {
	s, _ := v.(string)
	return s
}
